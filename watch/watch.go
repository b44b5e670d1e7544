// Package watch polls a SQLite version token and runs an action when it
// moves. The config store uses it to drop its read cache when another
// process (a second overlayd, a manual import) changes the entries table.
//
//	w := watch.New(db, watch.Options{Interval: time.Second, Detector: configstore.RevisionDetector})
//	go w.OnChange(ctx, func() error { cached.Flush(); return nil })
package watch

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// ChangeDetector reads a version token. Two different values mean
// something changed.
type ChangeDetector func(ctx context.Context, db *sql.DB) (int64, error)

// Options tunes a Watcher.
type Options struct {
	// Interval is the polling period. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action runs;
	// further changes restart it. 0 runs the action on the detecting poll.
	Debounce time.Duration
	// Detector is required.
	Detector ChangeDetector
	Logger   *slog.Logger
}

// Watcher polls one database. Stats and Version are safe to call while
// OnChange runs.
type Watcher struct {
	db   *sql.DB
	opts Options

	version atomic.Int64

	checks   atomic.Int64
	changes  atomic.Int64
	failures atomic.Int64
	runs     atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks   int64 `json:"checks"`
	Changes  int64 `json:"changes"`
	Failures int64 `json:"failures"`
	Runs     int64 `json:"runs"`
}

// New creates a Watcher. It panics without a Detector.
func New(db *sql.DB, opts Options) *Watcher {
	if opts.Detector == nil {
		panic("watch: nil Detector")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger = opts.Logger.With("component", "watch")
	return &Watcher{db: db, opts: opts}
}

// Version is the last token for which the action succeeded (or the seed).
func (w *Watcher) Version() int64 { return w.version.Load() }

func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:   w.checks.Load(),
		Changes:  w.changes.Load(),
		Failures: w.failures.Load(),
		Runs:     w.runs.Load(),
	}
}

// OnChange blocks until ctx ends. A failed action leaves Version
// unchanged, so the next poll detects the same change and retries.
func (w *Watcher) OnChange(ctx context.Context, action func() error) {
	log := w.opts.Logger
	if v, err := w.opts.Detector(ctx, w.db); err != nil {
		log.Warn("watch: initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending int64
		armed   bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx, w.db)
			if err != nil {
				if ctx.Err() == nil {
					w.failures.Add(1)
					log.Warn("watch: version check failed", "error", err)
				}
				continue
			}
			if cur == w.version.Load() || (armed && cur == pending) {
				continue
			}
			w.changes.Add(1)
			pending, armed = cur, true
			if w.opts.Debounce <= 0 {
				w.run(action, pending)
				armed = false
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.opts.Debounce)
			timerC = timer.C

		case <-timerC:
			timer, timerC = nil, nil
			if armed {
				w.run(action, pending)
				armed = false
			}
		}
	}
}

func (w *Watcher) run(action func() error, v int64) {
	if err := action(); err != nil {
		w.failures.Add(1)
		w.opts.Logger.Error("watch: action failed", "error", err, "version", v)
		return
	}
	w.runs.Add(1)
	w.version.Store(v)
	w.opts.Logger.Debug("watch: action done", "version", v)
}

// MaxColumnDetector polls MAX(column) of table; an empty table reads 0.
func MaxColumnDetector(table, column string) ChangeDetector {
	query := "SELECT COALESCE(MAX(" + quoteIdent(column) + "), 0) FROM " + quoteIdent(table)
	return func(ctx context.Context, db *sql.DB) (int64, error) {
		var v int64
		err := db.QueryRowContext(ctx, query).Scan(&v)
		return v, err
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
