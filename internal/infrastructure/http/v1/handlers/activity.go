package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/domain/activity"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// ActivityLister lists the activity log.
type ActivityLister interface {
	List(ctx context.Context, f activity.Filter) ([]*activity.Entry, error)
}

// ActivityHandler serves the activity log.
type ActivityHandler struct {
	*BaseHandler
	service ActivityLister
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(base *BaseHandler, service ActivityLister) *ActivityHandler {
	return &ActivityHandler{BaseHandler: base, service: service}
}

// List handles GET /activity?branch&from&to&limit
func (h *ActivityHandler) List(c *gin.Context) {
	var q dto.ActivityQuery
	if !h.BindQuery(c, &q) {
		return
	}

	entries, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"entries": dto.FromActivityEntries(entries)})
}
