// Package handlers binds v1 requests to the domain services.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/core/entity"
	"bakehouse/internal/domain"
	domainFilter "bakehouse/internal/domain/filter"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// CatalogService is what the catalog endpoints need from domain.CatalogService.
type CatalogService[T entity.Validatable] interface {
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error)
	GetByCode(ctx context.Context, code string) (T, error)
	Create(ctx context.Context, entity T) error
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, code string) error
}

// CatalogCodec converts between wire DTOs and entities of one catalog.
type CatalogCodec[T entity.Validatable, C any, U any] struct {
	New    func(req C) T
	Apply  func(req U, existing T) T
	Encode func(e T) any
	// Filters adds catalog-specific list conditions from the query string.
	Filters func(c *gin.Context) ([]domainFilter.Item, error)
}

// CatalogHandler serves list/get/create/update/delete for a catalog whose
// entries are addressed by code in the path.
type CatalogHandler[T entity.Validatable, C any, U any] struct {
	*BaseHandler
	service CatalogService[T]
	codec   CatalogCodec[T, C, U]
}

func NewCatalogHandler[T entity.Validatable, C any, U any](
	base *BaseHandler,
	service CatalogService[T],
	codec CatalogCodec[T, C, U],
) *CatalogHandler[T, C, U] {
	return &CatalogHandler[T, C, U]{BaseHandler: base, service: service, codec: codec}
}

// List handles GET ?search=&code=&limit=&offset=&orderBy=&includeInactive=&filter=<json>.
func (h *CatalogHandler[T, C, U]) List(c *gin.Context) {
	f, err := h.listFilter(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, 0, len(res.Items))
	for _, e := range res.Items {
		items = append(items, h.codec.Encode(e))
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	})
}

func (h *CatalogHandler[T, C, U]) listFilter(c *gin.Context) (domain.ListFilter, error) {
	f := domain.DefaultListFilter()
	f.Search = c.Query("search")
	f.Codes = c.QueryArray("code")
	f.Limit = h.ParseIntQuery(c, "limit", f.Limit)
	f.Offset = h.ParseIntQuery(c, "offset", 0)
	f.OrderBy = c.DefaultQuery("orderBy", f.OrderBy)
	f.IncludeInactive = c.Query("includeInactive") == "true"

	if raw := c.Query("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &f.AdvancedFilters); err != nil {
			return f, apperror.NewValidation("filter must be a JSON array of conditions")
		}
	}
	if h.codec.Filters != nil {
		extra, err := h.codec.Filters(c)
		if err != nil {
			return f, err
		}
		f.AdvancedFilters = append(f.AdvancedFilters, extra...)
	}
	return f, nil
}

func (h *CatalogHandler[T, C, U]) Get(c *gin.Context) {
	e, err := h.service.GetByCode(c.Request.Context(), codeParam(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, h.codec.Encode(e))
}

func (h *CatalogHandler[T, C, U]) Create(c *gin.Context) {
	var req C
	if !h.BindJSON(c, &req) {
		return
	}
	e := h.codec.New(req)
	if err := h.service.Create(c.Request.Context(), e); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, h.codec.Encode(e))
}

// Update applies the request onto the stored entity; the version it was
// read with guards against concurrent edits.
func (h *CatalogHandler[T, C, U]) Update(c *gin.Context) {
	var req U
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	existing, err := h.service.GetByCode(ctx, codeParam(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	updated := h.codec.Apply(req, existing)
	if err := h.service.Update(ctx, updated); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, h.codec.Encode(updated))
}

// Delete deactivates the entry.
func (h *CatalogHandler[T, C, U]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), codeParam(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func codeParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("code"))
}
