package dto

import (
	"encoding/json"
	"time"

	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/domain/catalogs/item"
)

// --- Items ---

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	Code     string       `json:"code" binding:"required,max=64"`
	Name     string       `json:"name" binding:"required"`
	ItemType string       `json:"itemType" binding:"required"`
	UnitKind string       `json:"unitKind" binding:"omitempty,oneof=count weight"`
	Price    *types.Money `json:"price" binding:"required"`
}

// ToEntity converts DTO to domain entity.
func (r CreateItemRequest) ToEntity() *item.Item {
	return item.NewItem(r.Code, r.Name, item.Type(r.ItemType), item.UnitKind(r.UnitKind), *r.Price)
}

// UpdateItemRequest is the request body for updating an item. The code is immutable.
type UpdateItemRequest struct {
	Name     string       `json:"name" binding:"required"`
	ItemType string       `json:"itemType" binding:"required"`
	UnitKind string       `json:"unitKind" binding:"omitempty,oneof=count weight"`
	Price    *types.Money `json:"price" binding:"required"`
	Version  int          `json:"version" binding:"required,min=1"`
}

// ApplyTo updates existing entity with DTO values.
func (r UpdateItemRequest) ApplyTo(it *item.Item) {
	it.Name = r.Name
	it.ItemType = item.Type(r.ItemType)
	it.UnitKind = item.UnitKind(r.UnitKind)
	if it.UnitKind == "" {
		it.UnitKind = item.UnitCount
	}
	it.Price = *r.Price
	it.Version = r.Version
}

// ItemResponse is the response body for an item.
type ItemResponse struct {
	ID        string      `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	ItemType  string      `json:"itemType"`
	UnitKind  string      `json:"unitKind"`
	Price     json.Number `json:"price"`
	IsActive  bool        `json:"isActive"`
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FromItem converts domain entity to response DTO.
func FromItem(it *item.Item) ItemResponse {
	return ItemResponse{
		ID:        it.ID.String(),
		Code:      it.Code,
		Name:      it.Name,
		ItemType:  string(it.ItemType),
		UnitKind:  string(it.UnitKind),
		Price:     Money(it.Price),
		IsActive:  it.IsActive,
		Version:   it.Version,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

// --- Branches ---

// CreateBranchRequest is the request body for creating a branch.
type CreateBranchRequest struct {
	Code    string `json:"code" binding:"required,max=64"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// ToEntity converts DTO to domain entity.
func (r CreateBranchRequest) ToEntity() *branch.Branch {
	return branch.NewBranch(r.Code, r.Name, r.Address)
}

// BranchResponse is the response body for a branch.
type BranchResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromBranch converts domain entity to response DTO.
func FromBranch(b *branch.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID.String(),
		Code:      b.Code,
		Name:      b.Name,
		Address:   b.Address,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
	}
}
