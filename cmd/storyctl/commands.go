package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/domain"
	"storybook-server/internal/generator"
	"storybook-server/internal/repository"
	"storybook-server/internal/scene"
	"storybook-server/internal/speech"
	"storybook-server/internal/store"
)

func (a *app) charactersCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "characters",
		Short: "List the characters stories can be written about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chars := a.catalog.List()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), chars)
			}
			return a.printMarkdown(cmd.OutOrStdout(), charactersMarkdown(chars))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print characters as JSON")
	return cmd
}

func (a *app) generateCmd() *cobra.Command {
	var (
		characterID string
		topic       string
		asJSON      bool
		speak       bool
		save        bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an illustrated story",
		Long: `Generate a story about a character from the catalog.

Without AI credentials (or with GENERATION_MODE=mock) the deterministic
three-page generator is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			story, err := a.generate(cmd.Context(), characterID, topic)
			if err != nil {
				return err
			}
			if save {
				if err := a.saveStory(cmd.Context(), story); err != nil {
					return err
				}
			}
			if err := a.writeStory(cmd.OutOrStdout(), story, asJSON); err != nil {
				return err
			}
			if speak {
				return a.readAloud(cmd.Context(), story)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&characterID, "character", "c", "", "Character ID (see 'storyctl characters')")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Story topic")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the story as JSON")
	cmd.Flags().BoolVar(&speak, "speak", false, "Read the story aloud after printing")
	cmd.Flags().BoolVar(&save, "save", false, "Save the story to the library (STORAGE_DRIVER)")
	_ = cmd.MarkFlagRequired("character")
	return cmd
}

func (a *app) classifyCmd() *cobra.Command {
	var (
		page   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Pick the scene category and stock illustration for page text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			category := scene.Classify(text)
			imageURL := scene.SelectIllustration(text, page)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"category": string(category),
					"imageUrl": imageURL,
				})
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", category, imageURL)
			return err
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "Page index used to rotate illustrations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func (a *app) readCmd() *cobra.Command {
	var speak bool
	cmd := &cobra.Command{
		Use:   "read [story.json]",
		Short: "Render a saved story and optionally read it aloud",
		Long:  "Reads a story in the API JSON format from a file, or from stdin when the file is omitted or '-'.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			story, err := readStory(r)
			if err != nil {
				return err
			}
			if err := a.printMarkdown(cmd.OutOrStdout(), storyMarkdown(story)); err != nil {
				return err
			}
			if speak {
				return a.readAloud(cmd.Context(), story)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "Read the story aloud with the system text-to-speech command")
	return cmd
}

func (a *app) listenCmd() *cobra.Command {
	var (
		characterID string
		lang        string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Dictate a story topic line by line",
		Long: `Reads the topic from stdin as a stream of recognition results.

Each line is a final phrase, a line starting with '~' is an interim guess,
'!code' reports a recognition error and an empty line ends the dictation.
With --character a story is generated from the dictated topic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topic, err := a.listen(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr(), lang)
			if err != nil {
				return err
			}
			if characterID == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), topic)
				return err
			}
			story, err := a.generate(cmd.Context(), characterID, topic)
			if err != nil {
				return err
			}
			return a.writeStory(cmd.OutOrStdout(), story, asJSON)
		},
	}
	cmd.Flags().StringVarP(&characterID, "character", "c", "", "Generate a story about this character from the dictated topic")
	cmd.Flags().StringVar(&lang, "lang", "en", "Language of recognition error messages (en, zh)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the generated story as JSON")
	return cmd
}

func (a *app) libraryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List stories saved in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var stories []domain.Story
			err := a.withStore(cmd.Context(), func(st *store.Store) error {
				stories = st.Library()
				return nil
			})
			if err != nil {
				return err
			}
			if asJSON {
				if stories == nil {
					stories = []domain.Story{}
				}
				return printJSON(cmd.OutOrStdout(), stories)
			}
			return a.printMarkdown(cmd.OutOrStdout(), libraryMarkdown(stories))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stories as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(st *store.Store) error {
				if !st.DeleteFromLibrary(args[0]) {
					return fmt.Errorf("story %q: %w", args[0], domain.ErrNotFound)
				}
				return nil
			})
		},
	})
	return cmd
}

// config загружает конфигурацию сервиса один раз за запуск.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// withStore открывает библиотеку из STORAGE_DRIVER и закрывает ее после fn, дожидаясь записи.
func (a *app) withStore(ctx context.Context, fn func(st *store.Store) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	repo, err := repository.Open(ctx, cfg, a.log)
	if err != nil {
		return err
	}
	defer repo.Close()

	st := store.New(ctx, repo, a.log, store.Options{})
	defer st.Close()
	return fn(st)
}

func (a *app) saveStory(ctx context.Context, story *domain.Story) error {
	return a.withStore(ctx, func(st *store.Store) error {
		if err := st.SaveToLibrary(story); err != nil {
			return err
		}
		a.log.Info("Story saved to library", zap.String("story_id", story.ID))
		return nil
	})
}

func (a *app) generate(ctx context.Context, characterID, topic string) (*domain.Story, error) {
	ch, err := a.catalog.Get(characterID)
	if err != nil {
		return nil, err
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	gen, err := generator.FromConfig(ctx, cfg, a.log)
	if err != nil {
		return nil, err
	}
	story, err := gen.Generate(ctx, ch, strings.TrimSpace(topic))
	if err != nil {
		return nil, err
	}
	a.log.Info("Story generated",
		zap.String("story_id", story.ID),
		zap.String("origin", string(story.Origin)),
		zap.Int("pages", len(story.Pages)))
	return story, nil
}

func (a *app) writeStory(w io.Writer, story *domain.Story, asJSON bool) error {
	if asJSON {
		return printJSON(w, story)
	}
	return a.printMarkdown(w, storyMarkdown(story))
}

// listen собирает тему из результатов распознавания, промежуточный текст пишется в status.
func (a *app) listen(ctx context.Context, in io.Reader, status io.Writer, lang string) (string, error) {
	engine := speech.NewLineEngine(in)
	defer engine.Close()
	rec := speech.NewRecognizer(engine, a.log)

	ended := make(chan error, 1)
	err := rec.Start(
		func(text string) { fmt.Fprintf(status, "... %s\n", text) },
		func(err error) { ended <- err },
		func() { ended <- nil },
	)
	if err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		rec.Cancel()
		return "", ctx.Err()
	case err := <-ended:
		if err != nil {
			var recErr *speech.RecognitionError
			if errors.As(err, &recErr) {
				return "", fmt.Errorf("%s: %w", recErr.Message(lang), err)
			}
			return "", err
		}
	}

	topic := rec.Stop()
	if topic == "" {
		return "", fmt.Errorf("%w: nothing was dictated", domain.ErrInvalidInput)
	}
	return topic, nil
}

func (a *app) synthesisEngine() speech.SynthesisEngine {
	if name := a.settings.TTSCommand; name != "" {
		switch base := filepath.Base(name); {
		case base == "say":
			return speech.NewCommandEngine(name, speech.SayArgs)
		case strings.HasPrefix(base, "espeak"):
			return speech.NewCommandEngine(name, speech.EspeakArgs)
		default:
			return speech.NewCommandEngine(name, nil)
		}
	}
	if e := speech.LookupCommandEngine(); e != nil {
		return e
	}
	return nil
}

// readAloud читает заголовок и страницы по очереди. Прерывание ctx останавливает чтение.
func (a *app) readAloud(ctx context.Context, story *domain.Story) error {
	synth := speech.NewSynthesizer(a.synthesisEngine(), a.log)
	if !synth.IsSupported() {
		return fmt.Errorf("no text-to-speech command found: %w", speech.ErrUnsupported)
	}
	voice := speech.Voice{Lang: a.settings.TTSLang, Rate: a.settings.TTSRate}

	texts := make([]string, 0, len(story.Pages)+1)
	texts = append(texts, story.Title)
	for _, p := range story.Pages {
		texts = append(texts, p.Text)
	}

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		done := make(chan error, 1)
		err := synth.Speak(text, speech.SpeakOptions{
			Voice:   voice,
			OnEnd:   func() { done <- nil },
			OnError: func(err error) { done <- err },
		})
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			synth.Stop()
			return ctx.Err()
		case err := <-done:
			if err != nil {
				return fmt.Errorf("failed to read part %d aloud: %w", i, err)
			}
		}
	}
	return nil
}
