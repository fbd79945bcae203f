package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"post-webhook/internal/config"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		Path:   t.TempDir(),
		Name:   "test",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s
}

func TestBootstrap_SeedsAdminOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// A second bootstrap must be a no-op.
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	rows, err := QueryRows(ctx, s.DB, "SELECT email, roles, COUNT(*) AS n FROM _users GROUP BY email, roles")
	if err != nil {
		t.Fatalf("query users: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one user row, got %d", len(rows))
	}
	row := rows[0]
	if row["email"] != "admin@localhost" {
		t.Fatalf("expected seeded admin, got %v", row["email"])
	}
	if n, _ := row["n"].(int64); n != 1 {
		t.Fatalf("expected exactly one user, got %v", row["n"])
	}
	roles, err := s.Dialect.ScanArray(row["roles"])
	if err != nil {
		t.Fatalf("scan roles: %v", err)
	}
	if len(roles) != 1 || roles[0] != "admin" {
		t.Fatalf("expected [admin] roles, got %v", roles)
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	insert := "INSERT INTO _options (name, value) VALUES (?1, ?2)"
	if _, err := Exec(ctx, s.DB, insert, "k", "v"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := Exec(ctx, s.DB, insert, "k", "v2")
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !errors.Is(MapError(s.Dialect, err), ErrUniqueViolation) {
		t.Fatalf("expected ErrUniqueViolation, got %v", err)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, created := range []string{"2000-01-01 00:00:00", "2999-01-01 00:00:00"} {
		_, err := Exec(ctx, s.DB,
			"INSERT INTO _webhook_logs (id, event, url, created_at) VALUES (?1, 'publish', 'http://x', ?2)",
			fmt.Sprintf("log-%d", i), created)
		if err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}

	n, err := PurgeOlderThan(ctx, s, "_webhook_logs", 7)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}

	rows, err := QueryRows(ctx, s.DB, "SELECT id FROM _webhook_logs")
	if err != nil {
		t.Fatalf("query logs: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "log-1" {
		t.Fatalf("expected only the recent log to survive, got %v", rows)
	}
}

func TestPostgresArrayParsing(t *testing.T) {
	d := &PostgresDialect{}
	got, err := d.ScanArray("{admin,editor}")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0] != "admin" || got[1] != "editor" {
		t.Fatalf("unexpected roles %v", got)
	}
	if d.Name() != "postgres" || NewDialect("sqlite").Name() != "sqlite" {
		t.Fatalf("unexpected dialect names")
	}
}
