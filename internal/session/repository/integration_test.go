package repository

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"staff-dashboard/internal/db"
	"staff-dashboard/internal/db/migrate"
)

func TestRedisStore_Contract(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis unavailable: %v", err)
	}
	testStoreContract(t, NewRedisStore(rdb, "test-"+t.Name(), 0))
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	defer conn.Close()
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	testStoreContract(t, NewPostgresStore(conn, "test-"+t.Name()))
}
