package migrate

import (
	"io/fs"
	"os"
	"strings"
	"testing"

	"staff-dashboard/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
		t.Errorf("error = %q, should mention DATABASE_URL", err.Error())
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "UP", "Down", "both"} {
		t.Run(direction, func(t *testing.T) {
			err := Run("postgres://localhost/test", direction)
			if err == nil {
				t.Fatalf("Run with direction %q should return error", direction)
			}
			if !strings.Contains(err.Error(), "direction") {
				t.Errorf("error = %q, should mention direction", err.Error())
			}
		})
	}
}

func TestMigrationFS_HasPairedFiles(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("ups=%d downs=%d, want equal and non-zero", ups, downs)
	}
	up, err := fs.ReadFile(db.MigrationFS, "migrations/000001_client_sessions.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(up), "client_sessions") {
		t.Error("first migration should create client_sessions")
	}
}

func TestRun_UpDown(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("second up should be a no-op: %v", err)
	}
}
