package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"storybook-server/internal/domain"
)

// storyMarkdown раскладывает историю в markdown: заголовок, обложка и страницы по порядку.
func storyMarkdown(s *domain.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	if s.Topic != "" {
		fmt.Fprintf(&b, "*%s*\n\n", s.Topic)
	}
	if s.CoverImage != "" {
		fmt.Fprintf(&b, "![cover](%s)\n\n", s.CoverImage)
	}
	for i, p := range s.Pages {
		fmt.Fprintf(&b, "## Page %d\n\n%s\n\n", i+1, p.Text)
		if p.ImageURL != "" {
			fmt.Fprintf(&b, "![page %d](%s)\n\n", i+1, p.ImageURL)
		}
	}
	return b.String()
}

func charactersMarkdown(chars []domain.Character) string {
	var b strings.Builder
	b.WriteString("| ID | Name | Description |\n|----|------|-------------|\n")
	for _, c := range chars {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(c.ID), cell(c.Name), cell(c.Description))
	}
	return b.String()
}

func libraryMarkdown(stories []domain.Story) string {
	if len(stories) == 0 {
		return "*The library is empty.*\n"
	}
	var b strings.Builder
	b.WriteString("| ID | Title | Pages | Origin |\n|----|-------|-------|--------|\n")
	for _, s := range stories {
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", cell(s.ID), cell(s.Title), len(s.Pages), s.Origin)
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func (a *app) renderer() (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(a.settings.WordWrap)}
	switch a.settings.Style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(a.settings.Style))
	}
	return glamour.NewTermRenderer(opts...)
}

func (a *app) printMarkdown(w io.Writer, md string) error {
	r, err := a.renderer()
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readStory читает историю в JSON (как ее отдает API) и проверяет инварианты.
func readStory(r io.Reader) (*domain.Story, error) {
	var s domain.Story
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: failed to decode story: %v", domain.ErrInvalidInput, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
