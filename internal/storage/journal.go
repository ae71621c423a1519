package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"

	_ "github.com/glebarez/go-sqlite"
)

// TradeJournal is the durable audit log of executed trades, kept in SQLite.
// It lives outside the in-memory state store: the strategy loop appends to
// it after recording a trade, so a process restart never loses the ledger
// even when the JSON state file is stale.
type TradeJournal struct {
	db *sql.DB
}

// NewTradeJournal opens (or creates) the journal database with WAL mode
// enabled.
func NewTradeJournal(dbPath string) (*TradeJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Metadata table for small KV items (e.g. starting balance).
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			action TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			volume_usdt REAL NOT NULL,
			confidence REAL NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL,
			order_id TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create trades table: %w", err)
	}

	return &TradeJournal{db: db}, nil
}

// Append stores one trade record.
func (j *TradeJournal) Append(ctx context.Context, rec domain.TradeRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (ts, symbol, action, quantity, price, volume_usdt, confidence, reason, status, order_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixMicro(), rec.Symbol, string(rec.Action), rec.Quantity,
		rec.Price, rec.VolumeUSDT, rec.Confidence, rec.Reason, rec.Status, rec.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// Recent returns the newest limit trades in insertion order (oldest of the
// selected window first). limit <= 0 returns everything.
func (j *TradeJournal) Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	query := `SELECT ts, symbol, action, quantity, price, volume_usdt, confidence, reason, status, order_id
		FROM (
			SELECT * FROM trades ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var tsMicros int64
		var action string
		if err := rows.Scan(&tsMicros, &rec.Symbol, &action, &rec.Quantity, &rec.Price,
			&rec.VolumeUSDT, &rec.Confidence, &rec.Reason, &rec.Status, &rec.OrderID); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		rec.Timestamp = time.UnixMicro(tsMicros)
		rec.Action = domain.Action(action)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// Count returns the total number of journaled trades.
func (j *TradeJournal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trades").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (j *TradeJournal) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table. Missing keys
// return "".
func (j *TradeJournal) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database connection.
func (j *TradeJournal) Close() error {
	return j.db.Close()
}
