// README: Widget config store tests; skipped unless FARE_TEST_DSN points at a Postgres database.
package fareconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestStoreRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	want := RawConfig{
		Attributes: map[string]string{AttrDisplayMode: "B"},
		JSON:       `{"stopFee": 4}`,
	}
	if err := store.SaveRaw(ctx, "shop-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadRaw(ctx, "shop-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Attributes[AttrDisplayMode] != "B" || got.JSON != want.JSON {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.LoadRaw(context.Background(), "missing-widget")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("FARE_TEST_DSN")
	if dsn == "" {
		t.Skip("FARE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migration, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_widget_config.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(ctx, string(migration)); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE widget_configs"); err != nil {
		t.Fatalf("truncate widget_configs: %v", err)
	}
	return NewStore(db)
}
