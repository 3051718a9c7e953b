package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestNew_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	tables := []string{"scripts", "shot_index", "exports", "config", "_migrations"}
	for _, table := range tables {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	var journalMode string
	err = database.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db1, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	db1.Close()

	db2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var count int
	err = db2.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count)
	if err != nil {
		t.Fatalf("count migrations error = %v", err)
	}

	if count != 2 {
		t.Errorf("migration count = %d, want 2", count)
	}
}

func TestFailInterruptedExports(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db1, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = db1.Conn().Exec(`
		INSERT INTO exports (id, episode_id, status, created_at, updated_at)
		VALUES ('test-export', 'ep-1', 'running', datetime('now'), datetime('now'))
	`)
	if err != nil {
		t.Fatalf("insert export error = %v", err)
	}
	db1.Close()

	db2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var status, errMsg string
	if err := db2.Conn().QueryRow("SELECT status FROM exports WHERE id = 'test-export'").Scan(&status); err != nil {
		t.Fatalf("query export error = %v", err)
	}
	if status != "running" {
		t.Fatalf("export status after reopen = %s, want running", status)
	}

	n, err := db2.FailInterruptedExports(context.Background())
	if err != nil {
		t.Fatalf("FailInterruptedExports() error = %v", err)
	}
	if n != 1 {
		t.Errorf("FailInterruptedExports() = %d, want 1", n)
	}

	err = db2.Conn().QueryRow("SELECT status, error FROM exports WHERE id = 'test-export'").Scan(&status, &errMsg)
	if err != nil {
		t.Fatalf("query export error = %v", err)
	}

	if status != "failed" {
		t.Errorf("export status = %s, want failed", status)
	}
	if errMsg != "interrupted by restart" {
		t.Errorf("export error = %s, want 'interrupted by restart'", errMsg)
	}
}

func TestNew_ForeignKeysEnforced(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	_, err = database.Conn().Exec("INSERT INTO shot_index (shot_id, episode_id) VALUES ('shot-1', 'no-such-episode')")
	if err == nil {
		t.Fatal("insert with dangling episode_id succeeded, want foreign key error")
	}
}

func TestMigrate_FailedFileRollsBack(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	err = database.migrate(fstest.MapFS{
		"003_broken.sql": {Data: []byte("CREATE TABLE scratch (id TEXT); INSERT INTO no_such_table VALUES (1);")},
	})
	if err == nil {
		t.Fatal("migrate() error = nil, want failure")
	}

	var n int
	if err := database.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='scratch'").Scan(&n); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if n != 0 {
		t.Error("table from failed migration was kept")
	}
	if err := database.Conn().QueryRow("SELECT COUNT(*) FROM _migrations WHERE name = '003_broken.sql'").Scan(&n); err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if n != 0 {
		t.Error("failed migration was recorded as applied")
	}

	err = database.migrate(fstest.MapFS{
		"003_fixed.sql": {Data: []byte("CREATE TABLE scratch (id TEXT);")},
	})
	if err != nil {
		t.Fatalf("migrate() after fix error = %v", err)
	}
}
