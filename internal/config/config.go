// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the database (always absolute)
	LogLevel         string
	Port             int
	DevMode          bool
	DefaultAsset     string // Asset used when a request omits one
	DefaultDecimals  int32
	RemainderPolicy  string // Basis-point drift correction: none, last, largest, proportional
	SchedulerEnabled bool
	AllowedOrigins   []string // CORS origins
	Backup           *BackupConfig
}

// BackupConfig holds the R2 backup target
type BackupConfig struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Schedule        string // cron spec
	RetentionDays   int
}

// Enabled reports whether backups are configured
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DISTRIBUTOR_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DefaultAsset:     getEnv("DEFAULT_ASSET_ADDRESS", ""),
		DefaultDecimals:  int32(getEnvAsInt("DEFAULT_ASSET_DECIMALS", 6)),
		RemainderPolicy:  getEnv("BPS_REMAINDER_POLICY", allocation.RemainderNone),
		SchedulerEnabled: getEnvAsBool("SCHEDULER_ENABLED", true),
		AllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Backup:           loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.DefaultDecimals < 0 || c.DefaultDecimals > distribution.MaxAssetDecimals {
		return fmt.Errorf("invalid asset decimals %d: must be between 0 and %d", c.DefaultDecimals, distribution.MaxAssetDecimals)
	}
	if _, err := allocation.RemainderPolicyByName(c.RemainderPolicy); err != nil {
		return fmt.Errorf("invalid BPS_REMAINDER_POLICY: %w", err)
	}
	if c.DefaultAsset != "" && !allocation.IsValidAddress(c.DefaultAsset) {
		return fmt.Errorf("invalid DEFAULT_ASSET_ADDRESS %q", c.DefaultAsset)
	}
	if c.Backup.Enabled() && c.Backup.Endpoint == "" {
		return fmt.Errorf("R2_ENDPOINT is required when R2_BUCKET is set")
	}
	return nil
}

// DatabasePath returns the path of the distributor database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "distributor.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if values := utils.ParseCSV(os.Getenv(key)); values != nil {
		return values
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Endpoint:        getEnv("R2_ENDPOINT", ""),
		Bucket:          getEnv("R2_BUCKET", ""),
		AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		Region:          getEnv("R2_REGION", "auto"),
		Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
