package observability

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/shopoverlay/dbopen"
)

func eventDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func TestEventLogger_LogAndQuery(t *testing.T) {
	db := eventDB(t)
	l := NewEventLogger(db)
	ctx := context.Background()

	l.LogEvent(ctx, BusinessEvent{
		EventType: "overlay_write", ServiceName: "configstore",
		EntityType: "product", EntityID: "red-shoes",
		UserID: "merch", Action: "write", Details: `{"text":"SALE"}`, Success: true,
	})
	l.LogEvent(ctx, BusinessEvent{
		EventType: "overlay_write", ServiceName: "configstore",
		EntityType: "product", EntityID: "other", Action: "write", Success: false,
	})

	events, err := l.Events(ctx, "product", "red-shoes", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if !strings.HasPrefix(e.EventID, "evt_") || e.UserID != "merch" || !e.Success || e.Details != `{"text":"SALE"}` {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestEventLogger_WithIDGenerator(t *testing.T) {
	db := eventDB(t)
	l := NewEventLogger(db, WithEventIDGenerator(func() string { return "fixed" }))
	l.LogEvent(context.Background(), BusinessEvent{EventType: "t", ServiceName: "s", EntityType: "product", EntityID: "p", Action: "a"})

	events, _ := l.Events(context.Background(), "product", "p", 0)
	if len(events) != 1 || events[0].EventID != "fixed" {
		t.Fatalf("events = %+v", events)
	}
}

func TestEventLogger_FailureIsLoggedNotReturned(t *testing.T) {
	db := dbopen.OpenMemory(t) // no schema
	var buf bytes.Buffer
	l := NewEventLogger(db, WithEventLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	l.LogEvent(context.Background(), BusinessEvent{EventType: "overlay_write", ServiceName: "s", Action: "a"})
	if !strings.Contains(buf.String(), "event log failed") {
		t.Fatalf("failure not logged: %q", buf.String())
	}
}

func TestEventLogger_Cleanup(t *testing.T) {
	db := eventDB(t)
	l := NewEventLogger(db)
	ctx := context.Background()

	l.now = func() time.Time { return time.Now().Add(-40 * 24 * time.Hour) }
	l.LogEvent(ctx, BusinessEvent{EventType: "t", ServiceName: "s", EntityType: "product", EntityID: "p", Action: "old"})
	l.now = time.Now
	l.LogEvent(ctx, BusinessEvent{EventType: "t", ServiceName: "s", EntityType: "product", EntityID: "p", Action: "new"})

	if n, err := l.Cleanup(ctx, 0); err != nil || n != 0 {
		t.Fatalf("Cleanup(0) = %d, %v", n, err)
	}
	n, err := l.Cleanup(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
	events, _ := l.Events(ctx, "product", "p", 10)
	if len(events) != 1 || events[0].Action != "new" {
		t.Fatalf("remaining = %+v", events)
	}
}

func TestFilterHandler(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	root := slog.New(NewFilterHandler(base, []string{"watch"}))

	root.With(ComponentKey, "watch").Info("watch: tick")
	root.With(ComponentKey, "watch").Warn("watch: version check failed")
	root.With(ComponentKey, "decorate").Info("decorate: detail pass done")
	root.Info("inline component", ComponentKey, "watch")
	root.Info("no component")

	out := buf.String()
	for _, want := range []string{"version check failed", "detail pass done", "no component"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"watch: tick", "inline component"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("muted record %q leaked:\n%s", unwanted, out)
		}
	}
}
