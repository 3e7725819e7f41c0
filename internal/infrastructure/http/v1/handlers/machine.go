package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/domain/registers/machine"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// MachineService is the machine batch service as seen by the HTTP layer.
type MachineService interface {
	StartBatch(ctx context.Context, in machine.StartInput) (*machine.Batch, error)
	FinishBatch(ctx context.Context, batchID string, endValue int64) (*machine.FinishResult, error)
	ListBatches(ctx context.Context, f machine.Filter) ([]*machine.Batch, error)
}

var _ MachineService = (*machine.Service)(nil)

// MachineHandler handles HTTP requests for machine batches.
type MachineHandler struct {
	*BaseHandler
	service MachineService
}

// NewMachineHandler creates a new machine batch handler.
func NewMachineHandler(base *BaseHandler, service MachineService) *MachineHandler {
	return &MachineHandler{BaseHandler: base, service: service}
}

// Start handles POST /machines/batches/start
func (h *MachineHandler) Start(c *gin.Context) {
	var req dto.MachineStartRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.StartBatch(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMachineBatch(b))
}

// Finish handles POST /machines/batches/:batchId/finish
func (h *MachineHandler) Finish(c *gin.Context) {
	var req dto.MachineFinishRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.service.FinishBatch(c.Request.Context(), strings.TrimSpace(c.Param("batchId")), *req.EndValue)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMachineFinish(res))
}

// List handles GET /machines/batches?branch&status&date
func (h *MachineHandler) List(c *gin.Context) {
	var q dto.MachineBatchQuery
	if !h.BindQuery(c, &q) {
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"batches": dto.FromMachineBatches(batches)})
}
