package branch

import "bakehouse/internal/domain"

// Repository defines the interface for Branch persistence.
type Repository interface {
	domain.CatalogRepository[*Branch]
}
