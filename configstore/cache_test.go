package configstore

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/shopoverlay/overlay"
	"github.com/hazyhaar/shopoverlay/watch"
)

func TestCached_ReadThroughAndInvalidate(t *testing.T) {
	db := testDB(t)
	store := New(db, WithLogger(quietLogger))
	c := NewCached(store, time.Minute)
	ctx := context.Background()

	if _, ok, _ := c.Read(ctx, "p"); ok {
		t.Fatal("unexpected overlay")
	}
	// A write behind the cache's back is not visible: the absent read is cached.
	store.Write(ctx, "p", sale)
	if _, ok, _ := c.Read(ctx, "p"); ok {
		t.Fatal("absent read was not cached")
	}

	// Writes through the cache invalidate.
	if err := c.Write(ctx, "p", overlay.Descriptor{Kind: overlay.KindBadge, Text: "NEW"}); err != nil {
		t.Fatal(err)
	}
	d, ok, _ := c.Read(ctx, "p")
	if !ok || d.Text != "NEW" {
		t.Fatalf("after write: %+v, %v", d, ok)
	}

	if err := c.Clear(ctx, "p"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Read(ctx, "p"); ok {
		t.Fatal("overlay still cached after Clear")
	}
}

func TestCached_FetchAdapter(t *testing.T) {
	db := testDB(t)
	c := NewCached(New(db, WithLogger(quietLogger)), 0)
	ctx := context.Background()

	c.Write(ctx, "p", sale)
	d, ok := c.Fetch(ctx, "p")
	if !ok || d != sale {
		t.Fatalf("Fetch = %+v, %v", d, ok)
	}

	db.Close()
	if _, ok := c.Fetch(ctx, "other"); ok {
		t.Fatal("Fetch on a closed store should degrade to none")
	}
}

func TestCached_FlushedByWatcher(t *testing.T) {
	db := testDB(t)
	store := New(db, WithLogger(quietLogger))
	c := NewCached(store, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := watch.New(db, watch.Options{Interval: 10 * time.Millisecond, Detector: RevisionDetector, Logger: quietLogger})
	go w.OnChange(ctx, func() error { c.Flush(); return nil })

	if _, ok, _ := c.Read(ctx, "p"); ok {
		t.Fatal("unexpected overlay")
	}
	// Another writer (same database, different Store value) changes the entry.
	New(db, WithLogger(quietLogger)).Write(ctx, "p", sale)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok, _ := c.Read(ctx, "p"); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("cache never flushed after revision change")
}

func TestCached_ReadRacingWriteDoesNotPinOldValue(t *testing.T) {
	db := testDB(t)
	store := New(db, WithLogger(quietLogger))
	c := NewCached(store, time.Minute)
	ctx := context.Background()

	// A read takes its generation and loads the pre-write state...
	gen := c.generation()
	d, ok, err := store.Read(ctx, "p")
	if err != nil || ok {
		t.Fatalf("initial read = %+v, %v, %v", d, ok, err)
	}

	// ...a write lands before that read fills the cache...
	if err := c.Write(ctx, "p", sale); err != nil {
		t.Fatal(err)
	}
	c.fill("p", gen, cachedRead{d: d, ok: ok})

	// ...and the stale absence must not be served.
	got, ok, err := c.Read(ctx, "p")
	if err != nil || !ok || got != sale {
		t.Fatalf("Read after racing write = %+v, %v, %v; want %+v", got, ok, err, sale)
	}
}
