package catalog_repo

import (
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const branchTable = "cat_branches"

// BranchRepo implements branch.Repository.
type BranchRepo struct {
	*Repo[*branch.Branch]
}

var _ branch.Repository = (*BranchRepo)(nil)

// NewBranchRepo creates a new branch repository.
func NewBranchRepo(txManager *postgres.TxManager) *BranchRepo {
	return &BranchRepo{
		Repo: NewRepo[*branch.Branch](
			txManager,
			branchTable,
			postgres.ExtractDBColumns[branch.Branch](),
			func() *branch.Branch { return &branch.Branch{} },
		),
	}
}
