package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoryID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123", NewStoryID(now))
}

func TestStoryValidate(t *testing.T) {
	valid := &Story{
		ID:    "42",
		Title: "Leo's Big Day",
		Pages: []StoryPage{{Text: "Once upon a time", ImageURL: "https://example.com/1.jpg"}},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]*Story{
		"nil story":   nil,
		"empty id":    {Title: "t", Pages: valid.Pages},
		"empty title": {ID: "1", Pages: valid.Pages},
		"no pages":    {ID: "1", Title: "t"},
		"empty text":  {ID: "1", Title: "t", Pages: []StoryPage{{ImageURL: "x"}}},
		"empty image": {ID: "1", Title: "t", Pages: []StoryPage{{Text: "x"}}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestStoryClone(t *testing.T) {
	orig := &Story{ID: "1", Title: "t", Pages: []StoryPage{{Text: "a", ImageURL: "b"}}}
	c := orig.Clone()
	c.Pages[0].Text = "changed"
	assert.Equal(t, "a", orig.Pages[0].Text, "clone must not share the pages slice")

	var nilStory *Story
	assert.Nil(t, nilStory.Clone())
	assert.Nil(t, ClonePages(nil))
}
