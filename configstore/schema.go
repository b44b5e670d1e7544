package configstore

import (
	"context"
	"database/sql"

	"github.com/hazyhaar/shopoverlay/watch"
)

// Schema holds the namespaced key/value entries owned by products, plus a
// single-row revision counter bumped by every write so other processes can
// notice changes cheaply.
const Schema = `
CREATE TABLE IF NOT EXISTS config_entries (
    owner_id   TEXT NOT NULL,
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (owner_id, namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_config_entries_ns ON config_entries(namespace, updated_at DESC);

CREATE TABLE IF NOT EXISTS config_revision (
    id  INTEGER PRIMARY KEY CHECK (id = 1),
    rev INTEGER NOT NULL
);
INSERT OR IGNORE INTO config_revision (id, rev) VALUES (1, 0);
`

var revisionDetector = watch.MaxColumnDetector("config_revision", "rev")

// RevisionDetector reads the revision counter, for watch.Options.Detector.
func RevisionDetector(ctx context.Context, db *sql.DB) (int64, error) {
	return revisionDetector(ctx, db)
}
