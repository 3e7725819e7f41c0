package catalog_repo

import (
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const itemTable = "cat_items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	*Repo[*item.Item]
}

var _ item.Repository = (*ItemRepo)(nil)

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		Repo: NewRepo[*item.Item](
			txManager,
			itemTable,
			postgres.ExtractDBColumns[item.Item](),
			func() *item.Item { return &item.Item{} },
		),
	}
}
