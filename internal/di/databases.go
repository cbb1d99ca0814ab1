// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/distributor/internal/config"
	"github.com/aristath/distributor/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens distributor.db and applies the schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "distributor",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize distributor database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate distributor database: %w", err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Database initialized")

	return container, nil
}
