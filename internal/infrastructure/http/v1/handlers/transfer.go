package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/domain/registers/transfer"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// TransferLister reads the transfer history of both ledgers.
type TransferLister interface {
	List(ctx context.Context, f transfer.Filter) ([]*transfer.Transfer, error)
}

var _ TransferLister = (*transfer.Service)(nil)

type TransferHandler struct {
	*BaseHandler
	service TransferLister
}

func NewTransferHandler(base *BaseHandler, service TransferLister) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// List handles GET /stocks/transfers?date&branch&kind
func (h *TransferHandler) List(c *gin.Context) {
	var q dto.TransferQuery
	if !h.BindQuery(c, &q) {
		return
	}

	transfers, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"transfers": dto.FromTransfers(transfers)})
}
