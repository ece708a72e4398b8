package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/requests"
)

type RequestsController struct {
	service *requests.Service
}

func NewRequestsController(service *requests.Service) *RequestsController {
	return &RequestsController{service: service}
}

// Submit handles POST /api/requests. Delivery happens in the background;
// the stored request is returned with its current status.
func (rc *RequestsController) Submit(c *gin.Context) {
	var req requests.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request payload")
		return
	}

	stored, err := rc.service.Submit(c.Request.Context(), auth.GetIdentity(c), req)
	if err != nil {
		var verr *requests.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid book request",
				Code:    "validation_failed",
				Details: verr.Fields,
			})
		case errors.Is(err, requests.ErrIdentityRequired):
			respondError(c, http.StatusUnauthorized, "", auth.ErrAuthRequired.Error())
		default:
			respondInternalError(c, err, "submit book request")
		}
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// List handles GET /api/requests for the caller.
func (rc *RequestsController) List(c *gin.Context) {
	list, err := rc.service.ListForUser(c.Request.Context(), auth.GetIdentity(c))
	if err != nil {
		if errors.Is(err, requests.ErrIdentityRequired) {
			respondError(c, http.StatusUnauthorized, "", auth.ErrAuthRequired.Error())
			return
		}
		respondInternalError(c, err, "list book requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list, "count": len(list)})
}
