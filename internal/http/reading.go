package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/reader"
)

// ReadingController serves a user's reading record for one book.
type ReadingController struct {
	reader *reader.Service
}

func NewReadingController(reader *reader.Service) *ReadingController {
	return &ReadingController{reader: reader}
}

// Open handles GET /api/books/:id/reading. The record is created on the
// first visit.
func (rc *ReadingController) Open(c *gin.Context) {
	session, err := rc.reader.Open(c.Request.Context(), auth.GetIdentity(c), c.Param("id"))
	if err != nil {
		respondReaderError(c, err, "open reading session")
		return
	}
	c.JSON(http.StatusOK, session)
}

type bookmarkRequest struct {
	Page *int `json:"page" binding:"required"`
}

// Bookmark handles PUT /api/books/:id/reading/page.
func (rc *ReadingController) Bookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "page is required")
		return
	}

	page, err := rc.reader.Bookmark(c.Request.Context(), auth.GetIdentity(c), c.Param("id"), *req.Page)
	if err != nil {
		respondReaderError(c, err, "bookmark page")
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page})
}

// ToggleRead handles POST /api/books/:id/reading/read.
func (rc *ReadingController) ToggleRead(c *gin.Context) {
	read, err := rc.reader.ToggleRead(c.Request.Context(), auth.GetIdentity(c), c.Param("id"))
	if err != nil {
		respondReaderError(c, err, "toggle read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": read})
}

// respondReaderError maps reader errors onto HTTP statuses.
func respondReaderError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, reader.ErrBookNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, reader.ErrFetchFailed):
		log.WithError(err).WithField("book_id", c.Param("id")).Error("Failed to load reading record")
		respondError(c, http.StatusBadGateway, "fetch_failed", "failed to load reading record")
	default:
		respondInternalError(c, err, context)
	}
}
