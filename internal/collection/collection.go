// Package collection is the default import collaborator: a small SQLite
// database holding the imported deck payloads. The sync core only depends on
// the Importer contract, so a host application can substitute its own.
package collection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/elmoadorjr/AnkiPH/internal/common"
	"github.com/elmoadorjr/AnkiPH/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS decks (
    deck_id TEXT PRIMARY KEY,
    version TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    checksum TEXT NOT NULL,
    payload BLOB NOT NULL,
    imported_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS import_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id TEXT NOT NULL,
    version TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    imported_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_import_log_deck ON import_log(deck_id);
`

// DeckRecord is one imported deck as stored in the collection.
type DeckRecord struct {
	DeckID     string
	Version    string
	SizeBytes  int64
	Checksum   string
	ImportedAt time.Time
}

type Collection struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the collection database at path.
// Use ":memory:" in tests.
func Open(path string) (*Collection, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open collection: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot create collection schema: %w", err)
	}

	return &Collection{db: db}, nil
}

func (c *Collection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Import applies a fetched payload: the deck row is upserted and the import
// is appended to the log in one transaction.
func (c *Collection) Import(ctx context.Context, deckID, version string, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload for deck %s", common.ErrProtocol, deckID)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: cannot begin import: %v", common.ErrIO, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	checksum := util.Checksum(payload)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decks (deck_id, version, size_bytes, checksum, payload, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(deck_id) DO UPDATE SET
			version = excluded.version,
			size_bytes = excluded.size_bytes,
			checksum = excluded.checksum,
			payload = excluded.payload,
			imported_at = excluded.imported_at`,
		deckID, version, int64(len(payload)), checksum, payload, now)
	if err != nil {
		return fmt.Errorf("%w: cannot store deck %s: %v", common.ErrIO, deckID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_log (deck_id, version, size_bytes, imported_at)
		VALUES (?, ?, ?, ?)`,
		deckID, version, int64(len(payload)), now)
	if err != nil {
		return fmt.Errorf("%w: cannot log import of deck %s: %v", common.ErrIO, deckID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: cannot commit import of deck %s: %v", common.ErrIO, deckID, err)
	}

	return nil
}

// Deck returns the stored record for one deck id, without the payload.
func (c *Collection) Deck(ctx context.Context, deckID string) (*DeckRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT deck_id, version, size_bytes, checksum, imported_at
		FROM decks WHERE deck_id = ?`, deckID)

	rec := &DeckRecord{}
	err := row.Scan(&rec.DeckID, &rec.Version, &rec.SizeBytes, &rec.Checksum, &rec.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: deck %s is not in the collection", common.ErrNotFound, deckID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read deck %s: %v", common.ErrIO, deckID, err)
	}

	return rec, nil
}

// Count returns the number of imported decks.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: cannot count decks: %v", common.ErrIO, err)
	}

	return n, nil
}
