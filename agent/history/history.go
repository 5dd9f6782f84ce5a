// Package history keeps an append-only Postgres log of finished assessments.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

var ErrInvalidRecord = errors.New("invalid history record")

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type Record struct {
	bun.BaseModel `bun:"table:assessment_history,alias:h"`

	ID           string    `bun:"id,pk,type:uuid"`
	SessionID    string    `bun:"session_id,notnull"`
	RunID        string    `bun:"run_id,notnull"`
	VisaCategory string    `bun:"visa_category,notnull"`
	OverallScore float64   `bun:"overall_score,notnull"`
	Report       string    `bun:"report,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

type Store struct {
	db *bun.DB
}

// Open connects to Postgres through pgdriver.
func Open(cfg Config) (*Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("database dsn is required")
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(strings.TrimSpace(cfg.DSN))}
	if cfg.Timeout > 0 {
		opts = append(opts, pgdriver.WithTimeout(cfg.Timeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	return New(sqldb), nil
}

func New(sqldb *sql.DB) *Store {
	return &Store{db: bun.NewDB(sqldb, pgdialect.New())}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create history table: %w", err)
	}
	return nil
}

// Append stores rec, filling ID and CreatedAt when they are zero.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.SessionID) == "" || strings.TrimSpace(rec.RunID) == "" {
		return fmt.Errorf("%w: session and run id are required", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.Report) == "" {
		return fmt.Errorf("%w: report is empty", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NewInsert().
		Model(rec).
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// List returns the newest records for a session first.
func (s *Store) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidRecord)
	}
	if limit <= 0 {
		limit = 20
	}

	var records []Record
	err := s.db.NewSelect().
		Model(&records).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}
