package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/persistence"
)

// Usage: migrate [up|down|status|redo|version|up-to N|down-to N]
func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Postgres.DSN == "" {
		log.Fatal("POSTGRES_DSN not provided")
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("goose: failed to close DB: %v", err)
		}
	}()

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command, args := arguments[0], arguments[1:]

	if err := persistence.Migrate(context.Background(), db, command, args...); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("goose %s success\n", command)
}
