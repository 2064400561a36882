// Package messaging публикует события сессии и библиотеки в RabbitMQ.
package messaging

import (
	"time"

	"storybook-server/internal/domain"
)

// EventType - тип события, он же routing key.
type EventType string

const (
	EventGenerationStarted   EventType = "generation.started"
	EventGenerationCompleted EventType = "generation.completed"
	EventGenerationFailed    EventType = "generation.failed"
	EventStorySaved          EventType = "library.story_saved"
	EventStoryDeleted        EventType = "library.story_deleted"
	EventPagesUpdated        EventType = "library.pages_updated"
	EventSessionReset        EventType = "session.reset"
)

// Event - сообщение о значимом изменении состояния.
type Event struct {
	Type        EventType     `json:"type"`
	Version     uint64        `json:"version"`
	StoryID     string        `json:"storyId,omitempty"`
	Title       string        `json:"title,omitempty"`
	CharacterID string        `json:"characterId,omitempty"`
	Origin      domain.Origin `json:"origin,omitempty"`
	PageCount   int           `json:"pageCount,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}

// Diff выводит события из перехода prev -> next.
func Diff(prev, next domain.Snapshot, now time.Time) []Event {
	var events []Event
	add := func(t EventType, s *domain.Story) {
		e := Event{Type: t, Version: next.Version, OccurredAt: now}
		if s != nil {
			e.StoryID = s.ID
			e.Title = s.Title
			e.CharacterID = s.CharacterID
			e.Origin = s.Origin
			e.PageCount = len(s.Pages)
		}
		events = append(events, e)
	}

	ps, ns := prev.Session, next.Session
	switch {
	case !ps.IsGenerating && ns.IsGenerating:
		add(EventGenerationStarted, nil)
	case ps.IsGenerating && !ns.IsGenerating:
		if ns.CurrentStory != nil && !sameStory(ps.CurrentStory, ns.CurrentStory) {
			add(EventGenerationCompleted, ns.CurrentStory)
		} else if ns != (domain.Session{}) {
			add(EventGenerationFailed, nil)
		}
	}
	if ps != (domain.Session{}) && ns == (domain.Session{}) {
		add(EventSessionReset, nil)
	}

	before := index(prev.SavedStories)
	after := index(next.SavedStories)
	for i := range next.SavedStories {
		s := &next.SavedStories[i]
		old, ok := before[s.ID]
		if !ok {
			add(EventStorySaved, s)
			continue
		}
		if !samePages(old.Pages, s.Pages) {
			add(EventPagesUpdated, s)
		}
	}
	for i := range prev.SavedStories {
		s := &prev.SavedStories[i]
		if _, ok := after[s.ID]; !ok {
			add(EventStoryDeleted, s)
		}
	}
	return events
}

func index(stories []domain.Story) map[string]*domain.Story {
	m := make(map[string]*domain.Story, len(stories))
	for i := range stories {
		m[stories[i].ID] = &stories[i]
	}
	return m
}

func sameStory(a, b *domain.Story) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && samePages(a.Pages, b.Pages)
}

func samePages(a, b []domain.StoryPage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
