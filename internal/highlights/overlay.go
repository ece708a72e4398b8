package highlights

import (
	"github.com/mrlokans/shelf/internal/entities"
)

// OverlayOpacity is the fill opacity of a rendered highlight.
const OverlayOpacity = 0.3

// Overlay describes one rectangle drawn over the rendered page. Overlays
// never intercept pointer input.
type Overlay struct {
	HighlightID string            `json:"highlightId"`
	Position    entities.Position `json:"position"`
	Color       string            `json:"color"`
	Opacity     float64           `json:"opacity"`
	Title       string            `json:"title"`
	Interactive bool              `json:"interactive"`
}

// BuildOverlays returns one overlay per highlight on page, in list order.
//
// A highlight's position is only valid at the scale it was captured at.
// When both the capture scale and viewScale are known and differ, the box is
// scaled by viewScale/captureScale; otherwise it is used unchanged.
func BuildOverlays(list []entities.Highlight, page int, viewScale float64) []Overlay {
	out := []Overlay{}
	for _, h := range list {
		if h.PageNumber != page {
			continue
		}
		pos := h.Position
		if viewScale > 0 && h.Scale > 0 && viewScale != h.Scale {
			pos = pos.Scaled(viewScale / h.Scale)
		}
		out = append(out, Overlay{
			HighlightID: h.ID,
			Position:    pos,
			Color:       h.Color,
			Opacity:     OverlayOpacity,
			Title:       h.Text,
		})
	}
	return out
}
