// Package registry persists named allocations and rebuilds wallet groups from
// the indexed registry record shape.
package registry

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfigNotFound is returned when a config id is unknown
var ErrConfigNotFound = errors.New("config not found")

// Schedule is the recurring execution setting of a config
type Schedule struct {
	Enabled         bool   `json:"enabled"`
	IntervalMinutes uint64 `json:"intervalMinutes"`
	MaxExecutions   uint64 `json:"maxExecutions"`
}

// Config is the registry header record
type Config struct {
	ID               string    `json:"id"`
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Asset            string    `json:"asset,omitempty"`
	AssetDecimals    int32     `json:"assetDecimals"`
	TotalAmount      string    `json:"totalAmount,omitempty"`
	WalletGroupCount int       `json:"walletGroupCount"`
	Schedule         Schedule  `json:"schedule"`
	Executions       uint64    `json:"executions"`
	IsPublic         bool      `json:"isPublic"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Exhausted reports whether a scheduled config has used all its executions
func (c *Config) Exhausted() bool {
	return c.Schedule.MaxExecutions > 0 && c.Executions >= c.Schedule.MaxExecutions
}

// GroupRecord is one wallet group as stored: either a share in basis points or
// an absolute wallet amount
type GroupRecord struct {
	Wallet          string `json:"wallet"`
	SharePercentBps uint16 `json:"sharePercent"`
	WalletAmount    string `json:"walletAmount,omitempty"`
	StrategyCount   int    `json:"strategyCount"`
}

// StrategyRecord is one strategy split as stored
type StrategyRecord struct {
	Strategy      uint8  `json:"strategy"`
	SubPercentBps uint16 `json:"subPercent"`
}

// LoadError reports a failed config load
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load config %s: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
