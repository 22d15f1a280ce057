package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Pool *pgxpool.Pool

var newPool = func(ctx context.Context, url string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, url)
}

// InitPostgres connects the process-wide pool. With an empty URL the service
// runs with the snapshot sink disabled.
func InitPostgres(ctx context.Context, url string) {
	if url == "" {
		log.Println("DATABASE_URL not set, snapshot persistence disabled")
		return
	}

	pool, err := newPool(ctx, url)
	if err != nil {
		log.Fatalf("failed to create Postgres pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}

	Pool = pool
	log.Println("Connected to Postgres")
}
