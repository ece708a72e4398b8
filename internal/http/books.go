package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/catalog"
)

type BooksController struct {
	catalog *catalog.Service
}

func NewBooksController(catalog *catalog.Service) *BooksController {
	return &BooksController{catalog: catalog}
}

// List handles GET /api/books?q=&category=&read=&sort=asc|desc.
func (bc *BooksController) List(c *gin.Context) {
	sort, err := catalog.ParseSortOrder(c.Query("sort"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	readOnly, ok := queryBool(c, "read")
	if !ok {
		return
	}

	filter := catalog.Filter{
		Search:   c.Query("q"),
		Category: c.Query("category"),
		ReadOnly: readOnly,
		Sort:     sort,
	}
	books, err := bc.catalog.List(c.Request.Context(), auth.GetIdentity(c).UserID, filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (bc *BooksController) Categories(c *gin.Context) {
	categories, err := bc.catalog.Categories(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (bc *BooksController) Get(c *gin.Context) {
	book, err := bc.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}
