package handlers

import (
	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/domain/catalogs/item"
	domainFilter "bakehouse/internal/domain/filter"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

type ItemHandler = CatalogHandler[*item.Item, dto.CreateItemRequest, dto.UpdateItemRequest]

// NewItemHandler serves /items; GET accepts ?itemType= as well.
func NewItemHandler(base *BaseHandler, service CatalogService[*item.Item]) *ItemHandler {
	return NewCatalogHandler(base, service, CatalogCodec[*item.Item, dto.CreateItemRequest, dto.UpdateItemRequest]{
		New: dto.CreateItemRequest.ToEntity,
		Apply: func(req dto.UpdateItemRequest, existing *item.Item) *item.Item {
			req.ApplyTo(existing)
			return existing
		},
		Encode:  func(it *item.Item) any { return dto.FromItem(it) },
		Filters: itemTypeFilter,
	})
}

func itemTypeFilter(c *gin.Context) ([]domainFilter.Item, error) {
	raw := c.Query("itemType")
	if raw == "" {
		return nil, nil
	}
	if t := item.Type(raw); !t.Valid() {
		return nil, apperror.NewValidation("invalid item type").WithDetail("value", raw)
	}
	return []domainFilter.Item{domainFilter.Eq("item_type", raw)}, nil
}

// BranchHandler serves /branches. Branches have no update endpoint.
type BranchHandler = CatalogHandler[*branch.Branch, dto.CreateBranchRequest, struct{}]

func NewBranchHandler(base *BaseHandler, service CatalogService[*branch.Branch]) *BranchHandler {
	return NewCatalogHandler(base, service, CatalogCodec[*branch.Branch, dto.CreateBranchRequest, struct{}]{
		New:    dto.CreateBranchRequest.ToEntity,
		Encode: func(b *branch.Branch) any { return dto.FromBranch(b) },
	})
}
