// Package configstore is the overlay configuration store: five namespaced
// entries per product in SQLite, the read/write contract the storefront
// engine and the administrative tools use, a read-through cache, and the
// HTTP and MCP transports in front of it.
package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/shopoverlay/dbopen"
	"github.com/hazyhaar/shopoverlay/kit"
	"github.com/hazyhaar/shopoverlay/observability"
	"github.com/hazyhaar/shopoverlay/overlay"
)

// Namespace groups the overlay entries.
const Namespace = "overlay_app"

// Entry keys, one per descriptor field.
const (
	KeyType     = "overlay_type"
	KeyText     = "overlay_text"
	KeyPosition = "overlay_position"
	KeyColor    = "overlay_color"
	KeySize     = "overlay_size"
)

var keys = []string{KeyType, KeyText, KeyPosition, KeyColor, KeySize}

// Entry is one stored key/value, owned by a product.
type Entry struct {
	OwnerID   overlay.ProductID `json:"owner_id"`
	Namespace string            `json:"namespace"`
	Key       string            `json:"key"`
	Value     string            `json:"value"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Listing is one product with a present overlay.
type Listing struct {
	ProductID overlay.ProductID  `json:"product_id"`
	Overlay   overlay.Descriptor `json:"overlay"`
}

// Service is the store contract served by Store and Cached.
type Service interface {
	Read(ctx context.Context, id overlay.ProductID) (overlay.Descriptor, bool, error)
	Write(ctx context.Context, id overlay.ProductID, d overlay.Descriptor) error
	Clear(ctx context.Context, id overlay.ProductID) error
	List(ctx context.Context, limit int) ([]Listing, error)
}

// Store reads and writes overlay entries. The database must carry Schema
// and observability.Schema.
type Store struct {
	db     *sql.DB
	events *observability.EventLogger
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithEvents records every write in the business event log.
func WithEvents(l *observability.EventLogger) Option { return func(s *Store) { s.events = l } }

// New creates a Store on db.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "configstore")
	return s
}

// Read returns the normalized descriptor for id. ok is false when the
// stored entries do not form a present descriptor (kind and text).
func (s *Store) Read(ctx context.Context, id overlay.ProductID) (overlay.Descriptor, bool, error) {
	entries, err := s.Entries(ctx, id)
	if err != nil {
		return overlay.Descriptor{}, false, err
	}
	d := fromEntries(entries)
	if !d.Present() {
		return overlay.Descriptor{}, false, nil
	}
	return d.Normalize(), true, nil
}

// Entries returns the raw entries stored for id in the overlay namespace.
func (s *Store) Entries(ctx context.Context, id overlay.ProductID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, namespace, key, value, updated_at
		FROM config_entries
		WHERE owner_id = ? AND namespace = ?
		ORDER BY key`, string(id), Namespace)
	if err != nil {
		return nil, fmt.Errorf("configstore: entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			owner string
			ts    int64
		)
		if err := rows.Scan(&owner, &e.Namespace, &e.Key, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("configstore: scan entry: %w", err)
		}
		e.OwnerID = overlay.ProductID(owner)
		e.UpdatedAt = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Write validates d and stores it in one transaction: non-empty fields are
// upserted, empty fields delete their entry. Validation failures return a
// *ValidationError carrying the field errors.
func (s *Store) Write(ctx context.Context, id overlay.ProductID, d overlay.Descriptor) error {
	cd, err := clean(id, d)
	if err != nil {
		s.record(ctx, id, "write", d, err)
		return err
	}
	values := map[string]string{
		KeyType:     string(cd.Kind),
		KeyText:     cd.Text,
		KeyPosition: string(cd.Position),
		KeyColor:    cd.Color,
		KeySize:     string(cd.Size),
	}
	now := s.now().UnixMilli()

	err = dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, k := range keys {
			v := values[k]
			if v == "" {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM config_entries WHERE owner_id = ? AND namespace = ? AND key = ?`,
					string(id), Namespace, k); err != nil {
					return fmt.Errorf("delete %s: %w", k, err)
				}
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO config_entries (owner_id, namespace, key, value, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (owner_id, namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				string(id), Namespace, k, v, now); err != nil {
				return fmt.Errorf("upsert %s: %w", k, err)
			}
		}
		return bumpRevision(ctx, tx)
	})
	if err != nil {
		err = fmt.Errorf("configstore: write %s: %w", id, err)
	}
	s.record(ctx, id, "write", cd, err)
	return err
}

// Clear deletes every overlay entry of id.
func (s *Store) Clear(ctx context.Context, id overlay.ProductID) error {
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM config_entries WHERE owner_id = ? AND namespace = ?`,
			string(id), Namespace); err != nil {
			return err
		}
		return bumpRevision(ctx, tx)
	})
	if err != nil {
		err = fmt.Errorf("configstore: clear %s: %w", id, err)
	}
	s.record(ctx, id, "clear", overlay.Descriptor{}, err)
	return err
}

// List returns up to limit products with a present overlay, most recently
// changed first. limit <= 0 means 100.
func (s *Store) List(ctx context.Context, limit int) ([]Listing, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id FROM config_entries
		WHERE namespace = ?
		GROUP BY owner_id
		HAVING SUM(key = ?) > 0 AND SUM(key = ?) > 0
		ORDER BY MAX(updated_at) DESC, owner_id
		LIMIT ?`, Namespace, KeyType, KeyText, limit)
	if err != nil {
		return nil, fmt.Errorf("configstore: list: %w", err)
	}
	var ids []overlay.ProductID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("configstore: list: %w", err)
		}
		ids = append(ids, overlay.ProductID(id))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("configstore: list: %w", err)
	}

	out := make([]Listing, 0, len(ids))
	for _, id := range ids {
		d, ok, err := s.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, Listing{ProductID: id, Overlay: d})
		}
	}
	return out, nil
}

func bumpRevision(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `UPDATE config_revision SET rev = rev + 1 WHERE id = 1`)
	return err
}

func fromEntries(entries []Entry) overlay.Descriptor {
	var d overlay.Descriptor
	for _, e := range entries {
		switch e.Key {
		case KeyType:
			d.Kind = overlay.Kind(e.Value)
		case KeyText:
			d.Text = e.Value
		case KeyPosition:
			d.Position = overlay.Anchor(e.Value)
		case KeyColor:
			d.Color = e.Value
		case KeySize:
			d.Size = overlay.Size(e.Value)
		}
	}
	return d
}

func (s *Store) record(ctx context.Context, id overlay.ProductID, action string, d overlay.Descriptor, err error) {
	if err != nil {
		s.logger.WarnContext(ctx, "configstore: "+action+" failed", "product_id", string(id), "error", err)
	} else {
		s.logger.InfoContext(ctx, "configstore: "+action, "product_id", string(id))
	}
	if s.events == nil {
		return
	}
	details := map[string]any{"overlay": d}
	if ue := UserErrors(err); ue != nil {
		details["errors"] = ue
	} else if err != nil {
		details["error"] = err.Error()
	}
	b, _ := json.Marshal(details)
	s.events.LogEvent(ctx, observability.BusinessEvent{
		EventType:   "overlay_" + action,
		ServiceName: "configstore",
		EntityType:  "product",
		EntityID:    string(id),
		UserID:      kit.GetActor(ctx),
		Action:      action,
		Details:     string(b),
		Success:     err == nil,
	})
}
