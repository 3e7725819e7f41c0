// Package main runs database migrations with the goose CLI.
// Usage: migrate [up|down|status|redo|version] (default: up)
package main

import (
	"fmt"
	"os"
	"os/exec"

	"bakehouse/internal/config"
)

const migrationsDir = "db/migrations"

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up", "down", "status", "redo", "version":
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = migrationsDir
	}

	cmd := exec.Command("goose", "-dir", dir, "postgres", cfg.Postgres.DSN, command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("Migration %s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`bakehouse migrations

Usage:
  migrate [command]

Commands:
  up        Apply all pending migrations (default)
  down      Roll back the last migration
  status    Show migration status
  redo      Roll back and re-apply the last migration
  version   Print the current schema version

Environment Variables:
  DATABASE_URL     Connection string (required)
  MIGRATIONS_DIR   Directory with goose migrations (default db/migrations)

Requires the goose binary on PATH.`)
}
