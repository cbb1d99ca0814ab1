package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/pkg/percent"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is the registry persistence boundary. Reads are indexed the same way
// the on-chain registry exposes them: a header, then one group or strategy at
// a time.
type Store interface {
	GetConfig(id string) (*Config, error)
	GetGroup(id string, index int) (*GroupRecord, error)
	GetStrategy(id string, group, index int) (*StrategyRecord, error)
	Save(cfg *Config, groups []GroupRecord, strategies [][]StrategyRecord) error
	List(owner string) ([]Config, error)
	ListScheduled() ([]Config, error)
	Delete(id string) error
	RecordExecution(id string) (uint64, error)
}

// SaveRequest creates or replaces a named allocation. An empty ID creates a new
// config.
type SaveRequest struct {
	ID            string                   `json:"id,omitempty"`
	Owner         string                   `json:"owner"`
	Name          string                   `json:"name"`
	Description   string                   `json:"description"`
	Asset         string                   `json:"asset,omitempty"`
	AssetDecimals *int32                   `json:"assetDecimals,omitempty"`
	TotalAmount   string                   `json:"totalAmount,omitempty"`
	Groups        []allocation.WalletGroup `json:"groups"`
	Schedule      Schedule                 `json:"schedule"`
	IsPublic      bool                     `json:"isPublic"`
}

// Client reads and writes named allocations through a Store
type Client struct {
	store           Store
	defaultDecimals int32
	newID           func() string
	now             func() time.Time
	log             zerolog.Logger
}

// NewClient creates a registry client. defaultDecimals applies to saves that
// omit assetDecimals.
func NewClient(store Store, defaultDecimals int32, log zerolog.Logger) *Client {
	return &Client{
		store:           store,
		defaultDecimals: defaultDecimals,
		newID:           uuid.NewString,
		now:             time.Now,
		log:             log.With().Str("service", "registry").Logger(),
	}
}

// Load rebuilds the wallet groups of a config with one store read per group
// and one per strategy
func (c *Client) Load(ctx context.Context, id string) ([]allocation.WalletGroup, *Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, &LoadError{ID: id, Err: err}
	}

	cfg, err := c.store.GetConfig(id)
	if err != nil {
		return nil, nil, &LoadError{ID: id, Err: err}
	}
	if cfg == nil {
		return nil, nil, &LoadError{ID: id, Err: ErrConfigNotFound}
	}

	groups := make([]allocation.WalletGroup, 0, cfg.WalletGroupCount)
	for i := 0; i < cfg.WalletGroupCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, &LoadError{ID: id, Err: err}
		}

		record, err := c.store.GetGroup(id, i)
		if err != nil {
			return nil, nil, &LoadError{ID: id, Err: err}
		}
		if record == nil {
			return nil, nil, &LoadError{ID: id, Err: fmt.Errorf("wallet group %d is missing", i)}
		}

		group := allocation.WalletGroup{
			Wallet:     record.Wallet,
			Strategies: make([]allocation.StrategyAllocation, 0, record.StrategyCount),
		}
		if record.WalletAmount != "" {
			group.WalletAmount = record.WalletAmount
		} else {
			group.SharePercent = percent.Format(percent.FromBasisPoints(int64(record.SharePercentBps)))
		}

		for j := 0; j < record.StrategyCount; j++ {
			s, err := c.store.GetStrategy(id, i, j)
			if err != nil {
				return nil, nil, &LoadError{ID: id, Err: err}
			}
			if s == nil {
				return nil, nil, &LoadError{ID: id, Err: fmt.Errorf("strategy %d of wallet group %d is missing", j, i)}
			}
			strategy := allocation.Strategy(s.Strategy)
			if !strategy.Valid() {
				return nil, nil, &LoadError{ID: id, Err: fmt.Errorf("wallet group %d: unknown strategy code %d", i, s.Strategy)}
			}
			group.Strategies = append(group.Strategies, allocation.StrategyAllocation{
				Strategy:   strategy,
				SubPercent: percent.Format(percent.FromBasisPoints(int64(s.SubPercentBps))),
			})
		}

		groups = append(groups, group)
	}

	return groups, cfg, nil
}

// Save validates req and stores it. Violations are reported as a
// *distribution.ValidationError.
func (c *Client) Save(ctx context.Context, req SaveRequest) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decimals := c.defaultDecimals
	if req.AssetDecimals != nil {
		decimals = *req.AssetDecimals
	}

	if violations := c.validate(req, decimals); len(violations) > 0 {
		return nil, &distribution.ValidationError{Violations: violations}
	}

	now := c.now().UTC().Truncate(time.Second)
	cfg := &Config{
		ID:            req.ID,
		Owner:         strings.TrimSpace(req.Owner),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Asset:         strings.TrimSpace(req.Asset),
		AssetDecimals: decimals,
		TotalAmount:   strings.TrimSpace(req.TotalAmount),
		Schedule:      req.Schedule,
		IsPublic:      req.IsPublic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !cfg.Schedule.Enabled {
		cfg.Schedule = Schedule{}
	}

	if cfg.ID == "" {
		cfg.ID = c.newID()
	} else {
		existing, err := c.store.GetConfig(cfg.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfg.ID, err)
		}
		if existing != nil {
			cfg.CreatedAt = existing.CreatedAt
			cfg.Executions = existing.Executions
		}
	}

	groups, strategies := toRecords(req.Groups)
	if err := c.store.Save(cfg, groups, strategies); err != nil {
		return nil, fmt.Errorf("failed to save config %s: %w", cfg.ID, err)
	}

	c.log.Info().
		Str("id", cfg.ID).
		Str("name", cfg.Name).
		Int("groups", cfg.WalletGroupCount).
		Bool("scheduled", cfg.Schedule.Enabled).
		Msg("Config saved")

	return cfg, nil
}

// Get returns the config header
func (c *Client) Get(ctx context.Context, id string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := c.store.GetConfig(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get config %s: %w", id, err)
	}
	if cfg == nil {
		return nil, ErrConfigNotFound
	}
	return cfg, nil
}

// List returns the configs of owner, or every config when owner is empty
func (c *Client) List(ctx context.Context, owner string) ([]Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.List(strings.TrimSpace(owner))
}

// ListScheduled returns every config with an enabled schedule
func (c *Client) ListScheduled(ctx context.Context) ([]Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.ListScheduled()
}

// Delete removes a config
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.store.Delete(id); err != nil {
		return err
	}
	c.log.Info().Str("id", id).Msg("Config deleted")
	return nil
}

// RecordExecution increments the execution counter of a config
func (c *Client) RecordExecution(ctx context.Context, id string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.store.RecordExecution(id)
}

func (c *Client) validate(req SaveRequest, decimals int32) []string {
	var violations []string

	if strings.TrimSpace(req.Name) == "" {
		violations = append(violations, "name is required")
	}
	if owner := strings.TrimSpace(req.Owner); owner != "" && !allocation.IsValidAddress(owner) {
		violations = append(violations, "owner: invalid address")
	}
	if asset := strings.TrimSpace(req.Asset); asset != "" && !allocation.IsValidAddress(asset) {
		violations = append(violations, "asset: invalid address")
	}
	if decimals < 0 || decimals > distribution.MaxAssetDecimals {
		violations = append(violations, fmt.Sprintf("asset decimals must be between 0 and %d", distribution.MaxAssetDecimals))
	}

	groups := req.Groups
	if groups == nil {
		groups = []allocation.WalletGroup{}
	}

	total := allocation.TotalWalletAmount(groups)
	if amount := strings.TrimSpace(req.TotalAmount); amount != "" {
		parsed, err := percent.ParseDecimal(amount)
		if err != nil {
			violations = append(violations, "total amount is not a number")
		} else {
			total = parsed
		}
	}

	flat, err := allocation.Flatten(groups, total)
	if err == nil {
		violations = append(violations, allocation.Validate(groups, flat, total)...)
	}

	if req.Schedule.Enabled && req.Schedule.IntervalMinutes == 0 {
		violations = append(violations, "schedule: interval must be greater than 0")
	}

	return violations
}

// toRecords converts groups into the stored basis-point shape. Amount-mode
// groups keep their wallet amount. Rounding drift is pushed onto the largest
// entry so a complete allocation still sums to exactly 10000 once stored.
func toRecords(groups []allocation.WalletGroup) ([]GroupRecord, [][]StrategyRecord) {
	records := make([]GroupRecord, len(groups))
	strategies := make([][]StrategyRecord, len(groups))

	shares := make([]int64, 0, len(groups))
	for i, g := range groups {
		records[i] = GroupRecord{
			Wallet:        strings.TrimSpace(g.Wallet),
			StrategyCount: len(g.Strategies),
		}
		if g.UsesAmount() {
			records[i].WalletAmount = strings.TrimSpace(g.WalletAmount)
		} else {
			shares = append(shares, percent.ToBasisPoints(percent.ParseDecimalOrZero(g.SharePercent)))
		}

		units := make([]int64, len(g.Strategies))
		for j, s := range g.Strategies {
			units[j] = percent.ToBasisPoints(percent.ParseDecimalOrZero(s.SubPercent))
		}
		allocation.CorrectRounding(units, percent.MaxBasisPoints, allocation.LargestElement{})

		strategies[i] = make([]StrategyRecord, len(g.Strategies))
		for j, s := range g.Strategies {
			strategies[i][j] = StrategyRecord{
				Strategy:      s.Strategy.Code(),
				SubPercentBps: clampBps(units[j]),
			}
		}
	}

	// Mixed share and amount groups resolve against the total, not 10000
	if len(shares) == len(groups) {
		allocation.CorrectRounding(shares, percent.MaxBasisPoints, allocation.LargestElement{})
		for i := range records {
			records[i].SharePercentBps = clampBps(shares[i])
		}
	} else {
		k := 0
		for i, g := range groups {
			if !g.UsesAmount() {
				records[i].SharePercentBps = clampBps(shares[k])
				k++
			}
		}
	}

	return records, strategies
}

func clampBps(bps int64) uint16 {
	switch {
	case bps < 0:
		return 0
	case bps > percent.MaxBasisPoints:
		return percent.MaxBasisPoints
	}
	return uint16(bps)
}

// IsNotFound reports whether err means the config does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound)
}
