package distribution

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Run statuses
const (
	RunSubmitted = "submitted"
	RunFailed    = "failed"
)

// Run is one submission attempt
type Run struct {
	ID             string    `json:"id"`
	ConfigID       string    `json:"config_id,omitempty"`
	Kind           string    `json:"kind"`
	Asset          string    `json:"asset"`
	Amount         string    `json:"amount"`
	RecipientCount int       `json:"recipient_count"`
	TxHash         string    `json:"tx_hash,omitempty"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	Payload        []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunStore persists submission history
type RunStore interface {
	Create(run *Run) error
	GetByID(id string) (*Run, error)
	List(configID string, limit int) ([]Run, error)
	CountByConfig(configID string) (int, error)
}

// RunRepository stores runs in the distribution_runs table
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "distribution_runs").Logger(),
	}
}

// Create inserts a run
func (r *RunRepository) Create(run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO distribution_runs
			(id, config_id, kind, asset, amount, recipient_count, tx_hash, status, error, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ConfigID, run.Kind, run.Asset, run.Amount, run.RecipientCount,
		run.TxHash, run.Status, run.Error, run.Payload, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert distribution run: %w", err)
	}

	r.log.Debug().Str("id", run.ID).Str("status", run.Status).Msg("Distribution run recorded")
	return nil
}

const runColumns = `id, config_id, kind, asset, amount, recipient_count, tx_hash, status, error, payload, created_at`

// GetByID returns a run or nil when it does not exist
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM distribution_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distribution run: %w", err)
	}
	return run, nil
}

// List returns the newest runs first, optionally filtered by config
func (r *RunRepository) List(configID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM distribution_runs`
	args := []interface{}{}
	if configID != "" {
		query += ` WHERE config_id = ?`
		args = append(args, configID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution runs: %w", err)
	}

	return runs, nil
}

// CountByConfig returns the number of successful submissions for a config
func (r *RunRepository) CountByConfig(configID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM distribution_runs WHERE config_id = ? AND status = ?`,
		configID, RunSubmitted,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count distribution runs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var createdAt int64
	if err := s.Scan(
		&run.ID, &run.ConfigID, &run.Kind, &run.Asset, &run.Amount, &run.RecipientCount,
		&run.TxHash, &run.Status, &run.Error, &run.Payload, &createdAt,
	); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return &run, nil
}
