package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSeedsNewDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "seed.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var rows []struct {
		Name      string `db:"name"`
		Quantity  string `db:"quantity"`
		Bought    int    `db:"bought"`
		CreatedAt int64  `db:"created_at"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT name, quantity, bought, created_at FROM grocery_items ORDER BY id`); err != nil {
		t.Fatalf("select seed rows: %v", err)
	}

	want := []string{"Milk", "Eggs", "Bread"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d seed rows, got %d", len(want), len(rows))
	}

	seen := make(map[int64]bool)
	for i, r := range rows {
		if r.Name != want[i] {
			t.Errorf("row[%d].Name = %q, want %q", i, r.Name, want[i])
		}
		if r.Quantity != "1" {
			t.Errorf("row[%d].Quantity = %q, want %q", i, r.Quantity, "1")
		}
		if r.Bought != 0 {
			t.Errorf("row[%d].Bought = %d, want 0", i, r.Bought)
		}
		if r.CreatedAt <= 0 {
			t.Errorf("row[%d].CreatedAt = %d, want epoch millis", i, r.CreatedAt)
		}
		if seen[r.CreatedAt] {
			t.Errorf("row[%d].CreatedAt = %d duplicates another seed row", i, r.CreatedAt)
		}
		seen[r.CreatedAt] = true
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "idem.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for i := 0; i < 3; i++ {
		if err := Initialize(ctx, db, nil); err != nil {
			t.Fatalf("initialize #%d: %v", i, err)
		}
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM grocery_items`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestReopenPopulatedDatabaseDoesNotReseed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "populated.db")

	db, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO grocery_items (name, quantity, bought, created_at) VALUES (?, ?, 0, ?)`, "Apples", "4", 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	db, err = Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM grocery_items`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4 (3 seeds + 1 user row)", count)
	}
}

func TestDeletedToEmptyIsNotReseeded(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "emptied.db")

	db, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM grocery_items`); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	// Same handle, same process.
	if err := Initialize(ctx, db, nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	db.Close()

	// Fresh process start against the same file.
	db, err = Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM grocery_items`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (emptied list must stay empty)", count)
	}
}

func TestOpenFailsOnUnwritablePath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "x.db"), nil)
	if err == nil {
		t.Fatal("expected error opening database in a missing directory")
	}
}
