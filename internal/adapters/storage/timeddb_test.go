package storage

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"makerspace/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE booking (id TEXT PRIMARY KEY, shop_area TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestStatementLabel(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"SELECT id FROM booking WHERE id = ?", "SELECT booking"},
		{"select COUNT(*) from booking", "SELECT booking"},
		{"INSERT INTO certification (id) VALUES (?)", "INSERT certification"},
		{"INSERT INTO booking(id) SELECT ?", "INSERT booking"},
		{"UPDATE booking SET date = ?", "UPDATE booking"},
		{"DELETE FROM purchase WHERE id = ?", "DELETE purchase"},
		{"PRAGMA foreign_keys=ON", "PRAGMA"},
		{"   ", "empty"},
	}
	for _, tt := range tests {
		if got := statementLabel(tt.query); got != tt.want {
			t.Errorf("statementLabel(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestTimedDB_RecordsEveryCall(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(db, collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO booking (id, shop_area) VALUES (?, ?)", "b1", "Forge"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id FROM booking")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()
	var area string
	if err := tdb.QueryRowContext(ctx, "SELECT shop_area FROM booking WHERE id = ?", "b1").Scan(&area); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if area != "Forge" {
		t.Errorf("area = %q", area)
	}
	tx, err := tdb.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	tx.Rollback()

	if collector.TotalRecorded() != 4 {
		t.Errorf("TotalRecorded = %d, want 4", collector.TotalRecorded())
	}
	snap := collector.Snapshot(time.Time{}, 10)
	found := false
	for _, q := range snap.SlowestQueries {
		if q.Path == "INSERT booking" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected INSERT booking in snapshot, got %+v", snap.SlowestQueries)
	}
}

func TestTimedDB_NilCollector(t *testing.T) {
	db := openTimedTestDB(t)
	tdb := NewTimedDB(db, nil, time.Second)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO booking (id) VALUES (?)", "b1"); err != nil {
		t.Fatalf("ExecContext with nil collector: %v", err)
	}
}

func TestTimedDB_ErrorPassthrough(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(db, collector, 0)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO missing VALUES (?)", 1); err == nil {
		t.Error("expected error from invalid SQL")
	}
	var v string
	if err := tdb.QueryRowContext(ctx, "SELECT id FROM booking WHERE id = ?", "none").Scan(&v); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := tdb.ExecContext(cancelled, "INSERT INTO booking (id) VALUES (?)", "b2"); err == nil {
		t.Error("expected error from cancelled context")
	}
	if collector.TotalRecorded() != 3 {
		t.Errorf("TotalRecorded = %d, want 3 (errors are still timed)", collector.TotalRecorded())
	}
}

func TestTimedDB_RawDB(t *testing.T) {
	db := openTimedTestDB(t)
	if NewTimedDB(db, nil, 0).RawDB() != db {
		t.Error("RawDB() should return the original *sql.DB")
	}
}

func TestTimedDB_ConcurrentMixedOps(t *testing.T) {
	db := openTimedTestDB(t)
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(db, collector, 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO booking (id, shop_area) VALUES (?, ?)", "seed", "Forge")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tdb.ExecContext(ctx, "INSERT OR REPLACE INTO booking (id, shop_area) VALUES (?, ?)", "w", "Woodshop")
				var v string
				tdb.QueryRowContext(ctx, "SELECT shop_area FROM booking WHERE id = ?", "seed").Scan(&v)
			}
		}()
	}
	wg.Wait()

	if collector.TotalRecorded() != 161 {
		t.Errorf("TotalRecorded = %d, want 161", collector.TotalRecorded())
	}
}

func BenchmarkTimedDB_Overhead(b *testing.B) {
	db, _ := sql.Open("sqlite", ":memory:")
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.Exec("CREATE TABLE bench (id INTEGER PRIMARY KEY, val TEXT)")
	db.Exec("INSERT INTO bench VALUES (1, 'x')")
	ctx := context.Background()

	b.Run("RawDB", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			db.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1").Scan(new(string))
		}
	})
	tdb := NewTimedDB(db, perf.NewCollector(perf.DefaultRingSize), 0)
	b.Run("TimedDB", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			tdb.QueryRowContext(ctx, "SELECT val FROM bench WHERE id = 1").Scan(new(string))
		}
	})
}
