package highlights

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/shelf/internal/entities"
)

func TestBuildOverlays(t *testing.T) {
	list := []entities.Highlight{
		{ID: "a", PageNumber: 1, Text: "one", Color: "#ffeb3b", Position: entities.Position{Top: 10, Left: 5, Width: 50, Height: 20}},
		{ID: "b", PageNumber: 2, Text: "two", Color: "#ffeb3b"},
		{ID: "c", PageNumber: 1, Text: "three", Color: "#4caf50", Position: entities.Position{Top: 40, Left: 0, Width: 10, Height: 10}},
	}

	t.Run("page subset in insertion order", func(t *testing.T) {
		got := BuildOverlays(list, 1, 0)
		assert.Equal(t, []Overlay{
			{HighlightID: "a", Position: list[0].Position, Color: "#ffeb3b", Opacity: OverlayOpacity, Title: "one"},
			{HighlightID: "c", Position: list[2].Position, Color: "#4caf50", Opacity: OverlayOpacity, Title: "three"},
		}, got)
	})

	t.Run("page without highlights", func(t *testing.T) {
		got := BuildOverlays(list, 7, 1.4)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("unknown capture scale keeps position", func(t *testing.T) {
		got := BuildOverlays(list, 1, 2.0)
		assert.Equal(t, list[0].Position, got[0].Position)
	})

	t.Run("overlays are not interactive", func(t *testing.T) {
		for _, o := range BuildOverlays(list, 1, 0) {
			assert.False(t, o.Interactive)
		}
	})
}

func TestBuildOverlays_Rescales(t *testing.T) {
	list := []entities.Highlight{
		{ID: "a", PageNumber: 1, Text: "one", Scale: 1.0, Position: entities.Position{Top: 10, Left: 5, Width: 50, Height: 20}},
	}

	t.Run("same scale", func(t *testing.T) {
		got := BuildOverlays(list, 1, 1.0)
		assert.Equal(t, list[0].Position, got[0].Position)
	})

	t.Run("zoomed in", func(t *testing.T) {
		got := BuildOverlays(list, 1, 2.0)
		assert.Equal(t, entities.Position{Top: 20, Left: 10, Width: 100, Height: 40}, got[0].Position)
	})

	t.Run("zoomed out", func(t *testing.T) {
		got := BuildOverlays(list, 1, 0.5)
		assert.Equal(t, entities.Position{Top: 5, Left: 2.5, Width: 25, Height: 10}, got[0].Position)
	})
}

func TestManagerOverlays(t *testing.T) {
	m := NewManager(testIdentity, "book-1", &fakeStore{}, WithHighlights([]entities.Highlight{
		{ID: "a", PageNumber: 3, Text: "x"},
		{ID: "b", PageNumber: 4, Text: "y"},
	}))

	got := m.Overlays(3, 1.4)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "a", got[0].HighlightID)
		assert.Equal(t, "x", got[0].Title)
	}
}
