package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// ReportService builds read-only reports.
type ReportService interface {
	GetDailySummary(ctx context.Context, filter reports.DailySummaryFilter) (*reports.DailySummary, error)
	GetExpiringBatches(ctx context.Context, filter reports.ExpiringFilter) (*reports.ExpiringReport, error)
}

var _ ReportService = (*reports.Service)(nil)

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service ReportService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetDailySummary handles GET /reports/daily-summary?date&branch
func (h *ReportsHandler) GetDailySummary(c *gin.Context) {
	var req dto.DailySummaryRequest
	if !h.BindQuery(c, &req) {
		return
	}

	summary, err := h.service.GetDailySummary(c.Request.Context(), reports.DailySummaryFilter{
		Date:     dto.ParseDate(req.Date),
		Branches: req.Branch,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDailySummary(summary))
}

// GetExpiringBatches handles GET /reports/expiring-batches?branch&days
func (h *ReportsHandler) GetExpiringBatches(c *gin.Context) {
	var req dto.ExpiringBatchesRequest
	if !h.BindQuery(c, &req) {
		return
	}

	report, err := h.service.GetExpiringBatches(c.Request.Context(), reports.ExpiringFilter{
		Branches: req.Branch,
		Days:     req.Days,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromExpiringReport(report))
}
