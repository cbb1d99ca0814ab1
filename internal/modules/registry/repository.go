package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/distributor/internal/database"
	"github.com/rs/zerolog"
)

// Repository is the sqlite Store
// Database: distributor.db (configs, config_groups, config_strategies tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new registry repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "registry").Logger(),
	}
}

const configColumns = `id, owner, name, description, asset, asset_decimals, total_amount,
	wallet_group_count, schedule_enabled, interval_minutes, max_executions, executions,
	is_public, created_at, updated_at`

// GetConfig returns the config header, or nil when it does not exist
func (r *Repository) GetConfig(id string) (*Config, error) {
	row := r.db.QueryRow(`SELECT `+configColumns+` FROM configs WHERE id = ?`, id)

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return cfg, nil
}

// GetGroup returns the wallet group at index, or nil when it does not exist
func (r *Repository) GetGroup(id string, index int) (*GroupRecord, error) {
	var g GroupRecord
	var shareBps int64
	err := r.db.QueryRow(`
		SELECT wallet, share_bps, wallet_amount, strategy_count
		FROM config_groups WHERE config_id = ? AND group_index = ?`,
		id, index,
	).Scan(&g.Wallet, &shareBps, &g.WalletAmount, &g.StrategyCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config group: %w", err)
	}
	g.SharePercentBps = uint16(shareBps)
	return &g, nil
}

// GetStrategy returns a group's strategy at index, or nil when it does not exist
func (r *Repository) GetStrategy(id string, group, index int) (*StrategyRecord, error) {
	var strategy, subBps int64
	err := r.db.QueryRow(`
		SELECT strategy, sub_bps FROM config_strategies
		WHERE config_id = ? AND group_index = ? AND strategy_index = ?`,
		id, group, index,
	).Scan(&strategy, &subBps)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config strategy: %w", err)
	}
	return &StrategyRecord{Strategy: uint8(strategy), SubPercentBps: uint16(subBps)}, nil
}

// Save inserts or replaces a config with all of its groups and strategies.
// strategies[i] holds the splits of groups[i].
func (r *Repository) Save(cfg *Config, groups []GroupRecord, strategies [][]StrategyRecord) error {
	if len(strategies) != len(groups) {
		return fmt.Errorf("strategy rows for %d groups, got %d", len(groups), len(strategies))
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO configs (`+configColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				owner = excluded.owner,
				name = excluded.name,
				description = excluded.description,
				asset = excluded.asset,
				asset_decimals = excluded.asset_decimals,
				total_amount = excluded.total_amount,
				wallet_group_count = excluded.wallet_group_count,
				schedule_enabled = excluded.schedule_enabled,
				interval_minutes = excluded.interval_minutes,
				max_executions = excluded.max_executions,
				is_public = excluded.is_public,
				updated_at = excluded.updated_at`,
			cfg.ID, cfg.Owner, cfg.Name, cfg.Description, cfg.Asset, cfg.AssetDecimals, cfg.TotalAmount,
			len(groups), boolToInt(cfg.Schedule.Enabled), cfg.Schedule.IntervalMinutes, cfg.Schedule.MaxExecutions,
			cfg.Executions, boolToInt(cfg.IsPublic), cfg.CreatedAt.Unix(), cfg.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert config: %w", err)
		}

		if err := deleteChildren(tx, cfg.ID); err != nil {
			return err
		}

		for i, g := range groups {
			_, err := tx.Exec(`
				INSERT INTO config_groups (config_id, group_index, wallet, share_bps, wallet_amount, strategy_count)
				VALUES (?, ?, ?, ?, ?, ?)`,
				cfg.ID, i, g.Wallet, g.SharePercentBps, g.WalletAmount, len(strategies[i]),
			)
			if err != nil {
				return fmt.Errorf("failed to insert config group %d: %w", i, err)
			}

			for j, s := range strategies[i] {
				_, err := tx.Exec(`
					INSERT INTO config_strategies (config_id, group_index, strategy_index, strategy, sub_bps)
					VALUES (?, ?, ?, ?, ?)`,
					cfg.ID, i, j, s.Strategy, s.SubPercentBps,
				)
				if err != nil {
					return fmt.Errorf("failed to insert config strategy %d/%d: %w", i, j, err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	cfg.WalletGroupCount = len(groups)
	r.log.Debug().Str("id", cfg.ID).Int("groups", len(groups)).Msg("Config saved")
	return nil
}

// List returns configs ordered by most recently updated. An empty owner lists
// every config.
func (r *Repository) List(owner string) ([]Config, error) {
	query := `SELECT ` + configColumns + ` FROM configs`
	args := []interface{}{}
	if owner != "" {
		query += ` WHERE owner = ? COLLATE NOCASE`
		args = append(args, owner)
	}
	query += ` ORDER BY updated_at DESC, id`

	return r.queryConfigs(query, args...)
}

// ListScheduled returns every config with an enabled schedule
func (r *Repository) ListScheduled() ([]Config, error) {
	return r.queryConfigs(`SELECT ` + configColumns + ` FROM configs WHERE schedule_enabled = 1 ORDER BY id`)
}

// Delete removes a config and its children. Deleting a missing config returns
// ErrConfigNotFound.
func (r *Repository) Delete(id string) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if err := deleteChildren(tx, id); err != nil {
			return err
		}

		result, err := tx.Exec(`DELETE FROM configs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete config: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrConfigNotFound
		}
		return nil
	})
}

// RecordExecution increments the execution counter and returns the new value
func (r *Repository) RecordExecution(id string) (uint64, error) {
	result, err := r.db.Exec(
		`UPDATE configs SET executions = executions + 1, updated_at = ? WHERE id = ?`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record execution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return 0, ErrConfigNotFound
	}

	var executions uint64
	if err := r.db.QueryRow(`SELECT executions FROM configs WHERE id = ?`, id).Scan(&executions); err != nil {
		return 0, fmt.Errorf("failed to read execution count: %w", err)
	}
	return executions, nil
}

func (r *Repository) queryConfigs(query string, args ...interface{}) ([]Config, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}
	defer rows.Close()

	configs := make([]Config, 0)
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		configs = append(configs, *cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configs: %w", err)
	}

	return configs, nil
}

func deleteChildren(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM config_strategies WHERE config_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete config strategies: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM config_groups WHERE config_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete config groups: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(s scanner) (*Config, error) {
	var cfg Config
	var scheduleEnabled, isPublic int
	var createdAt, updatedAt int64

	if err := s.Scan(
		&cfg.ID, &cfg.Owner, &cfg.Name, &cfg.Description, &cfg.Asset, &cfg.AssetDecimals, &cfg.TotalAmount,
		&cfg.WalletGroupCount, &scheduleEnabled, &cfg.Schedule.IntervalMinutes, &cfg.Schedule.MaxExecutions,
		&cfg.Executions, &isPublic, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	cfg.Schedule.Enabled = scheduleEnabled != 0
	cfg.IsPublic = isPublic != 0
	cfg.CreatedAt = time.Unix(createdAt, 0).UTC()
	cfg.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
