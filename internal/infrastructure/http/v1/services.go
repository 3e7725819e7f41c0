package v1

import (
	"fmt"

	"bakehouse/internal/core/events"
	"bakehouse/internal/core/lock"
	"bakehouse/internal/core/numerator"
	"bakehouse/internal/domain/activity"
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/domain/closing"
	"bakehouse/internal/domain/registers/grocery"
	"bakehouse/internal/domain/registers/machine"
	"bakehouse/internal/domain/registers/stock"
	"bakehouse/internal/domain/registers/transfer"
	"bakehouse/internal/domain/reports"
	"bakehouse/internal/infrastructure/http/v1/handlers"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/internal/infrastructure/storage/postgres/catalog_repo"
	"bakehouse/internal/infrastructure/storage/postgres/register_repo"
	"bakehouse/internal/infrastructure/storage/postgres/report_repo"
)

// Services are the domain services behind the API.
type Services struct {
	Stock     handlers.StockService
	Transfers handlers.TransferLister
	Grocery   handlers.GroceryService
	Machine   handlers.MachineService
	Items     handlers.CatalogService[*item.Item]
	Branches  handlers.CatalogService[*branch.Branch]
	Reports   handlers.ReportService
	Activity  handlers.ActivityLister
}

// ServicesConfig holds the infrastructure the services are built on.
type ServicesConfig struct {
	TxManager *postgres.TxManager
	Numerator numerator.Generator
	// Locker guards machine batch starts; nil means in-process only.
	Locker lock.Locker
	// Publisher defaults to the transactional outbox.
	Publisher events.Publisher
}

// BuildServices wires repositories and services over one transaction manager.
func BuildServices(cfg ServicesConfig) (*Services, error) {
	txm := cfg.TxManager

	activityStore, err := postgres.NewActivityStore(txm)
	if err != nil {
		return nil, fmt.Errorf("activity store: %w", err)
	}
	activitySvc := activity.NewService(activityStore)

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = postgres.NewOutboxPublisher(txm)
	}

	itemSvc := item.NewService(catalog_repo.NewItemRepo(txm), txm, activitySvc)
	branchSvc := branch.NewService(catalog_repo.NewBranchRepo(txm), txm, activitySvc)
	coordinator := closing.NewCoordinator(register_repo.NewClosingRepo(txm), txm, publisher, activitySvc)
	transfers := register_repo.NewTransferRepo(txm)

	stockSvc := stock.NewService(stock.ServiceConfig{
		Repo:      register_repo.NewStockRepo(txm),
		TxManager: txm,
		Closing:   coordinator,
		Items:     itemSvc,
		Branches:  branchSvc,
		Transfers: transfers,
		Publisher: publisher,
		Activity:  activitySvc,
	})

	grocerySvc := grocery.NewService(grocery.ServiceConfig{
		Repo:      register_repo.NewGroceryRepo(txm),
		TxManager: txm,
		Closing:   coordinator,
		Items:     itemSvc,
		Branches:  branchSvc,
		Transfers: transfers,
		Numerator: cfg.Numerator,
		Publisher: publisher,
		Activity:  activitySvc,
	})

	machineSvc := machine.NewService(machine.ServiceConfig{
		Repo:      register_repo.NewMachineRepo(txm),
		TxManager: txm,
		Items:     itemSvc,
		Branches:  branchSvc,
		Numerator: cfg.Numerator,
		Locker:    cfg.Locker,
		Publisher: publisher,
		Activity:  activitySvc,
	})

	return &Services{
		Stock:     stockSvc,
		Transfers: transfer.NewService(transfers),
		Grocery:   grocerySvc,
		Machine:   machineSvc,
		Items:     itemSvc,
		Branches:  branchSvc,
		Reports:   reports.NewService(report_repo.NewReportRepo(txm), coordinator).WithSnapshot(txm),
		Activity:  activitySvc,
	}, nil
}
