package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/registers/grocery"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// GroceryService is the batch-expiry ledger as seen by the HTTP layer.
type GroceryService interface {
	AddBatch(ctx context.Context, in grocery.AddBatchInput) (*grocery.Batch, error)
	ListBatches(ctx context.Context, f grocery.BatchFilter) ([]*grocery.Batch, error)
	GetAvailableStock(ctx context.Context, itemCode, branch string) (types.Quantity, error)
	UpdateRemaining(ctx context.Context, branch string, date time.Time, updates []grocery.RemainingUpdate) ([]*grocery.RemainingResult, error)
	RecordReturn(ctx context.Context, in grocery.ReturnInput) (*grocery.Return, error)
	ListReturns(ctx context.Context, f grocery.RecordFilter) ([]*grocery.Return, error)
	ListSales(ctx context.Context, f grocery.RecordFilter) ([]*grocery.Sale, error)
	FinishBatch(ctx context.Context, date time.Time, branch string) (*closing.Flag, error)
	GetBatchStatus(ctx context.Context, date time.Time, branch string) (closing.Status, error)
	TransferStock(ctx context.Context, in grocery.TransferInput) (*grocery.TransferResult, error)
}

var _ GroceryService = (*grocery.Service)(nil)

// GroceryHandler handles HTTP requests for the grocery lots ledger.
type GroceryHandler struct {
	*BaseHandler
	service GroceryService
}

// NewGroceryHandler creates a new grocery handler.
func NewGroceryHandler(base *BaseHandler, service GroceryService) *GroceryHandler {
	return &GroceryHandler{
		BaseHandler: base,
		service:     service,
	}
}

// AddBatch handles POST /grocery/stocks
func (h *GroceryHandler) AddBatch(c *gin.Context) {
	var req dto.GroceryBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.AddBatch(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromGroceryBatch(b))
}

// ListBatches handles GET /grocery/stocks?branch&itemCode&includeEmpty
func (h *GroceryHandler) ListBatches(c *gin.Context) {
	var q dto.GroceryBatchQuery
	if !h.BindQuery(c, &q) {
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), grocery.BatchFilter{
		Branch:       q.Branch,
		ItemCode:     q.ItemCode,
		IncludeEmpty: q.IncludeEmpty,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"batches": dto.FromGroceryBatches(batches)})
}

// GetAvailable handles GET /grocery/stocks/available?itemCode&branch
func (h *GroceryHandler) GetAvailable(c *gin.Context) {
	var q dto.GroceryAvailableQuery
	if !h.BindQuery(c, &q) {
		return
	}

	qty, err := h.service.GetAvailableStock(c.Request.Context(), q.ItemCode, q.Branch)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailableResponse{ItemCode: q.ItemCode, Branch: q.Branch, Available: qty})
}

// UpdateRemaining handles PUT /grocery/stocks/remaining
func (h *GroceryHandler) UpdateRemaining(c *gin.Context) {
	var req dto.GroceryRemainingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	results, err := h.service.UpdateRemaining(c.Request.Context(), req.Branch, dto.ParseDate(req.Date), req.ToUpdates())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"results": dto.FromRemainingResults(results)})
}

// RecordReturn handles POST /grocery/returns
func (h *GroceryHandler) RecordReturn(c *gin.Context) {
	var req dto.GroceryReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ret, err := h.service.RecordReturn(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromGroceryReturn(ret))
}

// ListReturns handles GET /grocery/returns?branch&from&to
func (h *GroceryHandler) ListReturns(c *gin.Context) {
	var q dto.RecordQuery
	if !h.BindQuery(c, &q) {
		return
	}

	returns, err := h.service.ListReturns(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"returns": dto.FromGroceryReturns(returns)})
}

// ListSales handles GET /grocery/sales?branch&from&to
func (h *GroceryHandler) ListSales(c *gin.Context) {
	var q dto.RecordQuery
	if !h.BindQuery(c, &q) {
		return
	}

	sales, err := h.service.ListSales(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"sales": dto.FromGrocerySales(sales)})
}

// FinishBatch handles POST /grocery/finish-batch
func (h *GroceryHandler) FinishBatch(c *gin.Context) {
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

// GetBatchStatus handles GET /grocery/batch-status?date&branch
func (h *GroceryHandler) GetBatchStatus(c *gin.Context) {
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

	h.OK(c, dto.FromStatus(date, q.Branch, string(item.TypeGrocery), st))
}

// Transfer handles POST /grocery/transfer
func (h *GroceryHandler) Transfer(c *gin.Context) {
	var req dto.GroceryTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.TransferStock(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromGroceryTransfer(res))
}
