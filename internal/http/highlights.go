package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/highlights"
	"github.com/mrlokans/shelf/internal/reader"
)

// HighlightsController exposes the highlight manager over HTTP. Each
// request builds a manager from the stored record and waits for its writes
// before responding, so the response carries the outcome of persistence.
type HighlightsController struct {
	reader *reader.Service
}

func NewHighlightsController(reader *reader.Service) *HighlightsController {
	return &HighlightsController{reader: reader}
}

// HighlightsResponse is returned by every mutating highlight endpoint.
// Notifications are the messages the manager emitted while handling the
// request; SyncError is set when the write to the store failed.
type HighlightsResponse struct {
	Highlight     *entities.Highlight       `json:"highlight,omitempty"`
	Highlights    []entities.Highlight      `json:"highlights"`
	Notifications []highlights.Notification `json:"notifications"`
	SyncError     string                    `json:"syncError,omitempty"`
	Dirty         bool                      `json:"dirty"`
}

// List handles GET /api/books/:id/highlights. With ?page=P it returns the
// overlays for that page instead, scaled to ?scale=S when given.
func (hc *HighlightsController) List(c *gin.Context) {
	if c.Query("page") != "" {
		hc.overlays(c)
		return
	}
	session, err := hc.reader.Open(c.Request.Context(), auth.GetIdentity(c), c.Param("id"))
	if err != nil {
		respondReaderError(c, err, "list highlights")
		return
	}
	list := session.Record.Highlights
	if list == nil {
		list = []entities.Highlight{}
	}
	c.JSON(http.StatusOK, gin.H{"highlights": list})
}

func (hc *HighlightsController) overlays(c *gin.Context) {
	page, ok := queryInt(c, "page", entities.DefaultPage)
	if !ok {
		return
	}
	scale, ok := queryFloat(c, "scale", 0)
	if !ok {
		return
	}

	m, _, err := hc.reader.Manager(c.Request.Context(), auth.GetIdentity(c), c.Param("id"), reader.ManagerOptions{})
	if err != nil {
		respondReaderError(c, err, "list overlays")
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "overlays": m.Overlays(page, scale)})
}

// CaptureRequest is the client's selection at the moment of capture.
// Selection and Viewport are in the same pixel space; the stored position
// is relative to the viewport.
type CaptureRequest struct {
	Text         string          `json:"text"`
	Selection    highlights.Rect `json:"selection"`
	Viewport     highlights.Rect `json:"viewport"`
	Page         int             `json:"page"`
	Scale        float64         `json:"scale"`
	Color        string          `json:"color"`
	Note         string          `json:"note"`
	NoteProvided bool            `json:"noteProvided"`
}

// Capture handles POST /api/books/:id/highlights.
func (hc *HighlightsController) Capture(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid capture payload")
		return
	}

	viewport := &highlights.StaticViewport{
		Selection:    highlights.Selection{Text: req.Text, Rect: req.Selection},
		HasSelection: true,
		OriginRect:   req.Viewport,
		Page:         req.Page,
		ViewScale:    req.Scale,
	}
	recorder := &highlights.Recorder{}
	m, ok := hc.manager(c, reader.ManagerOptions{
		Viewport: viewport,
		Prompter: highlights.StaticPrompter{Note: req.Note, OK: req.NoteProvided},
		Notifier: recorder,
		Enabled:  true,
	})
	if !ok {
		return
	}
	if req.Color != "" {
		if err := m.SetColor(req.Color); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	h, err := m.Capture(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "capture highlight")
		return
	}
	if h == nil {
		respondError(c, http.StatusUnprocessableEntity, "empty_selection", "nothing selected")
		return
	}

	resp := hc.settle(c.Request.Context(), m, recorder)
	resp.Highlight = h
	c.JSON(http.StatusCreated, resp)
}

// Remove handles DELETE /api/books/:id/highlights/:hid.
func (hc *HighlightsController) Remove(c *gin.Context) {
	recorder := &highlights.Recorder{}
	m, ok := hc.manager(c, reader.ManagerOptions{Notifier: recorder})
	if !ok {
		return
	}
	if !m.Remove(c.Request.Context(), c.Param("hid")) {
		respondNotFound(c, "highlight")
		return
	}
	c.JSON(http.StatusOK, hc.settle(c.Request.Context(), m, recorder))
}

type noteRequest struct {
	Note *string `json:"note"`
}

// EditNote handles PATCH /api/books/:id/highlights/:hid/note. A null note
// is a cancelled edit and changes nothing; an empty note clears it.
func (hc *HighlightsController) EditNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid note payload")
		return
	}

	prompter := highlights.StaticPrompter{OK: req.Note != nil}
	if req.Note != nil {
		prompter.Note = *req.Note
	}
	recorder := &highlights.Recorder{}
	m, ok := hc.manager(c, reader.ManagerOptions{Prompter: prompter, Notifier: recorder})
	if !ok {
		return
	}

	hid := c.Param("hid")
	if !containsHighlight(m.Highlights(), hid) {
		respondNotFound(c, "highlight")
		return
	}
	if _, err := m.EditNote(c.Request.Context(), hid); err != nil {
		respondInternalError(c, err, "edit note")
		return
	}
	c.JSON(http.StatusOK, hc.settle(c.Request.Context(), m, recorder))
}

// Resync handles POST /api/books/:id/highlights/resync: the stored list is
// written back in full.
func (hc *HighlightsController) Resync(c *gin.Context) {
	recorder := &highlights.Recorder{}
	m, ok := hc.manager(c, reader.ManagerOptions{Notifier: recorder})
	if !ok {
		return
	}

	err := m.Resync(c.Request.Context())
	resp := HighlightsResponse{
		Highlights:    m.Highlights(),
		Notifications: recorder.Notifications(),
		Dirty:         m.Dirty(),
	}
	if err != nil {
		resp.SyncError = err.Error()
		c.JSON(http.StatusBadGateway, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (hc *HighlightsController) manager(c *gin.Context, opts reader.ManagerOptions) (*highlights.Manager, bool) {
	m, _, err := hc.reader.Manager(c.Request.Context(), auth.GetIdentity(c), c.Param("id"), opts)
	if err != nil {
		respondReaderError(c, err, "open highlights")
		return nil, false
	}
	return m, true
}

// settle waits for the manager's queued writes and reports their outcome.
func (hc *HighlightsController) settle(ctx context.Context, m *highlights.Manager, recorder *highlights.Recorder) HighlightsResponse {
	resp := HighlightsResponse{}
	if err := m.Flush(ctx); err != nil {
		resp.SyncError = err.Error()
	} else if err := m.Err(); err != nil {
		resp.SyncError = err.Error()
	}
	resp.Highlights = m.Highlights()
	resp.Notifications = recorder.Notifications()
	resp.Dirty = m.Dirty()
	return resp
}

func containsHighlight(list []entities.Highlight, id string) bool {
	for _, h := range list {
		if h.ID == id {
			return true
		}
	}
	return false
}
