// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/internal/modules/registry"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Run history (distribution_runs)
	container.RunRepo = distribution.NewRunRepository(container.DB.Conn(), log)

	// Saved configs (configs, config_groups, config_strategies)
	container.ConfigRepo = registry.NewRepository(container.DB.Conn(), log)

	log.Debug().Msg("Repositories initialized")

	return nil
}
