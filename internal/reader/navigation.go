package reader

import (
	"math"

	"github.com/mrlokans/shelf/internal/entities"
)

const (
	DefaultZoom = 1.4
	MinZoom     = 0.6
	MaxZoom     = 2.0
	ZoomStep    = 0.2
)

// ChangePage moves current by offset and clamps the result to
// [1, pageCount]. A pageCount below one is treated as a single page.
func ChangePage(current, offset, pageCount int) int {
	if pageCount < 1 {
		pageCount = 1
	}
	return max(entities.DefaultPage, min(pageCount, current+offset))
}

// ClampPage bounds a requested page to the document. An unknown page count
// (zero) only enforces the lower bound.
func ClampPage(page, pageCount int) int {
	if page < entities.DefaultPage {
		return entities.DefaultPage
	}
	if pageCount > 0 && page > pageCount {
		return pageCount
	}
	return page
}

// ZoomIn returns the next zoom level, capped at MaxZoom.
func ZoomIn(scale float64) float64 {
	return roundZoom(math.Min(scale+ZoomStep, MaxZoom))
}

// ZoomOut returns the previous zoom level, floored at MinZoom.
func ZoomOut(scale float64) float64 {
	return roundZoom(math.Max(scale-ZoomStep, MinZoom))
}

// roundZoom keeps repeated steps on the 0.1 grid (1.4+0.2 is 1.5999...).
func roundZoom(scale float64) float64 {
	return math.Round(scale*10) / 10
}
