package scene

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"no keywords", "hello", Adventure},
		{"empty", "", Adventure},
		{"space english", "A rocket flew to the moon", Space},
		{"space chinese", "小狮子坐火箭去月球", Space},
		{"ocean", "Leo swam with a fish near the coral", Ocean},
		{"tie goes to first declared", "castle city", Castle},
		{"higher score wins over order", "the castle stood on a street in the city", City},
		{"case sensitive", "ROCKET MOON", Adventure},
		{"friendship chinese", "朋友们一起分享", Friendship},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestScoreCountsDistinctKeywords(t *testing.T) {
	c := New([]Scene{{Category: Space, Keywords: []string{"moon", "moon", "rocket"}, Images: []string{"a"}}})
	assert.Equal(t, 1, c.Score("moon moon moon", Space))
	assert.Equal(t, 2, c.Score("rocket to the moon", Space))
	assert.Equal(t, 0, c.Score("rocket", Forest))
}

func TestSelectIllustrationRotation(t *testing.T) {
	text := "A rocket flew to the moon"
	images := Default.Illustrations(Space)
	require.NotEmpty(t, images)

	for i := 0; i < 2*len(images)+1; i++ {
		assert.Equal(t, images[i%len(images)], SelectIllustration(text, i))
	}
	assert.Equal(t, SelectIllustration(text, 0), SelectIllustration(text, len(images)))
}

func TestSelectIllustrationNegativeIndex(t *testing.T) {
	images := Default.Illustrations(Adventure)
	require.Len(t, images, 2)
	assert.Equal(t, images[1], SelectIllustration("hello", -1))
	assert.Equal(t, images[0], SelectIllustration("hello", -2))
}

func TestMatchStoryIllustrations(t *testing.T) {
	texts := []string{"hello", "hello", "A rocket flew to the moon"}
	want := []string{
		Default.Illustrations(Adventure)[0],
		Default.Illustrations(Adventure)[1],
		Default.Illustrations(Space)[2],
	}
	if diff := cmp.Diff(want, MatchStoryIllustrations(texts)); diff != "" {
		t.Errorf("MatchStoryIllustrations mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoriesOrder(t *testing.T) {
	want := []Category{Space, Forest, Ocean, Castle, City, Home, School, Park,
		Mountain, Desert, Sky, Night, Magic, Adventure, Friendship}
	assert.Equal(t, want, Default.Categories())
}

func TestNewSkipsScenesWithoutImages(t *testing.T) {
	c := New([]Scene{
		{Category: Space, Keywords: []string{"moon"}},
		{Category: Night, Keywords: []string{"moon"}, Images: []string{"night.jpg"}},
	})
	assert.Equal(t, Night, c.Classify("moon"))
	assert.Equal(t, "night.jpg", c.SelectIllustration("moon", 5))
	assert.Equal(t, "", New(nil).SelectIllustration("moon", 0))
}

func TestIllustrationsReturnsCopy(t *testing.T) {
	imgs := Default.Illustrations(Space)
	imgs[0] = "mutated"
	assert.NotEqual(t, "mutated", Default.Illustrations(Space)[0])
}
