// Package store persists scan history in PostgreSQL. History is an
// optional capability: the server runs without it and only the history
// endpoint depends on it.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/zhcheck/zhcheck/internal/engine"
)

// Config contains database configuration
type Config struct {
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// ScanRecord is one persisted scan. The text itself is not stored, only
// its hash, length and outcome.
type ScanRecord struct {
	ID           int64     `db:"id" json:"id"`
	TextHash     string    `db:"text_hash" json:"text_hash"`
	TextRunes    int       `db:"text_runes" json:"text_runes"`
	IssueCount   int       `db:"issue_count" json:"issue_count"`
	Summary      []byte    `db:"summary" json:"-"`
	RulesVersion int64     `db:"rules_version" json:"rules_version"`
	DurationMS   float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SummaryJSON exposes the per-kind counts for API responses.
func (r *ScanRecord) SummaryJSON() json.RawMessage {
	if len(r.Summary) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(r.Summary)
}

const schema = `
CREATE TABLE IF NOT EXISTS scan_history (
	id            BIGSERIAL PRIMARY KEY,
	text_hash     TEXT NOT NULL,
	text_runes    INTEGER NOT NULL,
	issue_count   INTEGER NOT NULL,
	summary       JSONB NOT NULL,
	rules_version BIGINT NOT NULL,
	duration_ms   DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_scan_history_created_at ON scan_history (created_at DESC);`

// HistoryStore handles scan history persistence.
type HistoryStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewHistoryStore connects to PostgreSQL and ensures the schema exists.
func NewHistoryStore(config *Config, logger *zap.Logger) (*HistoryStore, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	s := &HistoryStore{db: db, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create scan_history schema: %w", err)
	}

	logger.Info("History store initialized",
		zap.Int("max_open_conns", config.MaxOpenConns))
	return s, nil
}

// Record persists the outcome of one scan.
func (s *HistoryStore) Record(ctx context.Context, text string, result *engine.Result) error {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	hash := sha256.Sum256([]byte(text))
	query := `
		INSERT INTO scan_history (text_hash, text_runes, issue_count, summary, rules_version, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.db.ExecContext(ctx, query,
		hex.EncodeToString(hash[:]),
		len([]rune(text)),
		len(result.Issues),
		summary,
		result.RulesVersion,
		result.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// Recent returns the newest scan records, capped at limit.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var records []ScanRecord
	query := `
		SELECT id, text_hash, text_runes, issue_count, summary, rules_version, duration_ms, created_at
		FROM scan_history
		ORDER BY created_at DESC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
