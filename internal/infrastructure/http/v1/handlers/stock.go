package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/domain/registers/transfer"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// StockService is the discrete ledger as seen by the HTTP layer.
type StockService interface {
	GetStocks(ctx context.Context, date time.Time, branch string) (*stock.Snapshot, error)
	AddStock(ctx context.Context, date time.Time, branch string, lines []stock.Line) ([]*stock.Entry, error)
	RecordReturns(ctx context.Context, date time.Time, branch string, lines []stock.Line) ([]*stock.Entry, error)
	FinishBatch(ctx context.Context, date time.Time, branch string) (*closing.Flag, error)
	GetBatchStatus(ctx context.Context, date time.Time, branch string) (closing.Status, error)
	TransferStock(ctx context.Context, date time.Time, fromBranch, toBranch string, lines []stock.Line) ([]*transfer.Transfer, error)
}

var _ StockService = (*stock.Service)(nil)

// StockHandler handles HTTP requests for the discrete stock ledger.
type StockHandler struct {
	*BaseHandler
	service StockService
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service StockService) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetStocks handles GET /stocks?date&branch
func (h *StockHandler) GetStocks(c *gin.Context) {
	var q dto.ScopeQuery
	if !h.BindQuery(c, &q) {
		return
	}

	snap, err := h.service.GetStocks(c.Request.Context(), dto.ParseDate(q.Date), q.Branch)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockSnapshot(snap))
}

// Update handles POST /stocks/update
func (h *StockHandler) Update(c *gin.Context) {
	var req dto.StockUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entries, err := h.service.AddStock(c.Request.Context(), dto.ParseDate(req.Date), req.Branch, req.Lines())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"stocks": dto.FromStockEntries(entries)})
}

// UpdateReturns handles POST /stocks/update-returns
func (h *StockHandler) UpdateReturns(c *gin.Context) {
	var req dto.StockUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entries, err := h.service.RecordReturns(c.Request.Context(), dto.ParseDate(req.Date), req.Branch, req.Lines())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"stocks": dto.FromStockEntries(entries)})
}

// FinishBatch handles POST /stocks/finish-batch
func (h *StockHandler) FinishBatch(c *gin.Context) {
	var req dto.FinishBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	flag, err := h.service.FinishBatch(c.Request.Context(), dto.ParseDate(req.Date), req.Branch)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromFlag(flag))
}

// GetBatchStatus handles GET /stocks/batch-status?date&branch
func (h *StockHandler) GetBatchStatus(c *gin.Context) {
	var q dto.ScopeQuery
	if !h.BindQuery(c, &q) {
		return
	}

	date := dto.ParseDate(q.Date)
	st, err := h.service.GetBatchStatus(c.Request.Context(), date, q.Branch)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStatus(date, q.Branch, string(item.TypeNormal), st))
}

// Transfer handles POST /stocks/transfer
func (h *StockHandler) Transfer(c *gin.Context) {
	var req dto.StockTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	transfers, err := h.service.TransferStock(c.Request.Context(), dto.ParseDate(req.Date), req.FromBranch, req.ToBranch, req.Lines())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"transfers": dto.FromTransfers(transfers)})
}
