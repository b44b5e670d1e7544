package watch

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/shopoverlay/dbopen"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func revDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE rev (n INTEGER NOT NULL)`))
}

func bump(t *testing.T, db *sql.DB, n int) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO rev (n) VALUES (?)`, n); err != nil {
		t.Fatal(err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMaxColumnDetector(t *testing.T) {
	db := revDB(t)
	det := MaxColumnDetector("rev", "n")

	v, err := det(context.Background(), db)
	if err != nil || v != 0 {
		t.Fatalf("empty table: got %d, %v", v, err)
	}
	bump(t, db, 7)
	if v, _ := det(context.Background(), db); v != 7 {
		t.Fatalf("got %d, want 7", v)
	}
}

func TestMaxColumnDetector_QuotesIdentifiers(t *testing.T) {
	db := revDB(t)
	if _, err := MaxColumnDetector(`rev"; DROP TABLE rev; --`, "n")(context.Background(), db); err == nil {
		t.Fatal("expected error for unknown table")
	}
	if _, err := db.Exec(`SELECT 1 FROM rev`); err != nil {
		t.Fatalf("table dropped: %v", err)
	}
}

func TestOnChange_RunsOncePerChange(t *testing.T) {
	db := revDB(t)
	w := New(db, Options{Interval: 10 * time.Millisecond, Detector: MaxColumnDetector("rev", "n"), Logger: quiet})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var runs atomic.Int32
	go w.OnChange(ctx, func() error { runs.Add(1); return nil })

	eventually(t, "first check", func() bool { return w.Stats().Checks > 0 })
	bump(t, db, 1)
	eventually(t, "first run", func() bool { return runs.Load() == 1 })
	bump(t, db, 2)
	eventually(t, "second run", func() bool { return runs.Load() == 2 })

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d without changes, want 2", got)
	}
	if w.Version() != 2 {
		t.Fatalf("version = %d, want 2", w.Version())
	}
}

func TestOnChange_Debounce(t *testing.T) {
	db := revDB(t)
	w := New(db, Options{
		Interval: 10 * time.Millisecond,
		Debounce: 150 * time.Millisecond,
		Detector: MaxColumnDetector("rev", "n"),
		Logger:   quiet,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var runs atomic.Int32
	go w.OnChange(ctx, func() error { runs.Add(1); return nil })

	eventually(t, "first check", func() bool { return w.Stats().Checks > 0 })
	for i := 1; i <= 4; i++ {
		bump(t, db, i)
		time.Sleep(20 * time.Millisecond)
	}
	if got := runs.Load(); got != 0 {
		t.Fatalf("runs = %d inside the debounce window, want 0", got)
	}
	eventually(t, "debounced run", func() bool { return runs.Load() == 1 })
	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want exactly 1", got)
	}
}

func TestOnChange_FailureRetries(t *testing.T) {
	db := revDB(t)
	w := New(db, Options{Interval: 10 * time.Millisecond, Detector: MaxColumnDetector("rev", "n"), Logger: quiet})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	go w.OnChange(ctx, func() error {
		if calls.Add(1) == 1 {
			return errors.New("flush failed")
		}
		return nil
	})

	eventually(t, "first check", func() bool { return w.Stats().Checks > 0 })
	bump(t, db, 1)
	eventually(t, "retry success", func() bool { return w.Version() == 1 })
	if calls.Load() < 2 {
		t.Fatalf("calls = %d, want a failure then a success", calls.Load())
	}
	if w.Stats().Failures == 0 {
		t.Fatal("failure not counted")
	}
}

func TestNew_RequiresDetector(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without detector")
		}
	}()
	New(nil, Options{})
}
