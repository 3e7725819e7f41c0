// Package main seeds branches and items for local development.
package main

import (
	"context"
	"fmt"
	"os"

	"bakehouse/internal/config"
	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/types"
	"bakehouse/internal/domain/activity"
	"bakehouse/internal/domain/catalogs/branch"
	"bakehouse/internal/domain/catalogs/item"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/internal/infrastructure/storage/postgres/catalog_repo"
	"bakehouse/pkg/logger"
)

var branches = []struct {
	code, name, address string
}{
	{"Main", "Main Street", "1 Main Street"},
	{"Harbor", "Harbor Kiosk", "Pier 4"},
	{"Station", "Station Counter", "Central Station, hall B"},
}

var items = []struct {
	code, name string
	itemType   item.Type
	unit       item.UnitKind
	price      string
}{
	{"BREAD", "Sourdough loaf", item.TypeNormal, item.UnitCount, "6.00"},
	{"CROISSANT", "Butter croissant", item.TypeNormal, item.UnitCount, "2.40"},
	{"BAGUETTE", "Baguette", item.TypeNormal, item.UnitCount, "3.10"},
	{"JAM", "Strawberry jam 300g", item.TypeGrocery, item.UnitCount, "4.50"},
	{"FLOUR", "Rye flour", item.TypeGrocery, item.UnitWeight, "1.80"},
	{"OLIVES", "Olives, by weight", item.TypeGrocery, item.UnitWeight, "12.00"},
	{"COFFEE", "Coffee machine cup", item.TypeMachine, item.UnitCount, "1.50"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Postgres.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "seed", IsAdmin: true})

	// Seeding is not business activity.
	branchSvc := branch.NewService(catalog_repo.NewBranchRepo(txm), txm, activity.Nop{})
	itemSvc := item.NewService(catalog_repo.NewItemRepo(txm), txm, activity.Nop{})

	for _, b := range branches {
		err := branchSvc.Create(ctx, branch.NewBranch(b.code, b.name, b.address))
		if !report(log, "branch", b.code, err) {
			os.Exit(1)
		}
	}

	for _, it := range items {
		err := itemSvc.Create(ctx, item.NewItem(it.code, it.name, it.itemType, it.unit, types.MustMoney(it.price)))
		if !report(log, "item", it.code, err) {
			os.Exit(1)
		}
	}

	log.Info("seeding completed successfully")
}

// report logs the outcome; an existing code counts as success.
func report(log *logger.Logger, kind, code string, err error) bool {
	switch {
	case err == nil:
		log.Infow("seeded", "kind", kind, "code", code)
	case apperror.HasCode(err, apperror.CodeDuplicate):
		log.Infow("already present", "kind", kind, "code", code)
	default:
		log.Errorw("failed to seed", "kind", kind, "code", code, "error", err)
		return false
	}
	return true
}
