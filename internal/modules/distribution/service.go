// Package distribution turns validated allocations into distributor contract
// calls and submits them.
package distribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/distributor/internal/metrics"
	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Schedule turns a submission into a recurring one
type Schedule struct {
	IntervalMinutes uint64 `json:"intervalMinutes"`
	MaxExecutions   uint64 `json:"maxExecutions"`
}

// Request describes one distribution. Groups take precedence over the flat-only
// Recipients variant. Amount is a human decimal in asset units; Asset and
// Decimals fall back to the service defaults.
type Request struct {
	ConfigID   string                       `json:"configId,omitempty"`
	Groups     []allocation.WalletGroup     `json:"groups,omitempty"`
	Recipients []allocation.RecipientWallet `json:"recipients,omitempty"`
	Asset      string                       `json:"asset,omitempty"`
	Amount     string                       `json:"amount"`
	Decimals   *int32                       `json:"decimals,omitempty"`
	Schedule   *Schedule                    `json:"schedule,omitempty"`
}

// Prepared is a validated request ready for submission
type Prepared struct {
	Flat     []allocation.FlatRecipient `json:"flat"`
	Params   DistributeParams           `json:"params"`
	Schedule *ScheduleParams            `json:"schedule,omitempty"`
	DriftBps int64                      `json:"driftBps"`
}

// Defaults supplies the asset used when a request omits one
type Defaults struct {
	Asset    string
	Decimals int32
}

// Service validates allocations, builds contract params and submits them
type Service struct {
	submitter Submitter
	runs      RunStore
	builder   Builder
	defaults  Defaults
	newID     func() string
	log       zerolog.Logger
}

// NewService creates a distribution service. runs may be nil to skip history.
func NewService(submitter Submitter, runs RunStore, builder Builder, defaults Defaults, log zerolog.Logger) *Service {
	return &Service{
		submitter: submitter,
		runs:      runs,
		builder:   builder,
		defaults:  defaults,
		newID:     uuid.NewString,
		log:       log.With().Str("service", "distribution").Logger(),
	}
}

// Prepare validates req and builds the contract arguments. Any problem with
// the request is reported as a *ValidationError listing every violation.
func (s *Service) Prepare(req Request) (*Prepared, error) {
	asset := strings.TrimSpace(req.Asset)
	if asset == "" {
		asset = s.defaults.Asset
	}
	decimals := s.defaults.Decimals
	if req.Decimals != nil {
		decimals = *req.Decimals
	}

	groups := req.Groups
	flatOnly := groups == nil && req.Recipients != nil
	if flatOnly {
		groups = allocation.GroupsFromRecipients(req.Recipients)
	}
	if groups == nil {
		groups = []allocation.WalletGroup{}
	}

	total := s.totalAmount(req.Amount, groups)

	flat, err := allocation.Flatten(groups, total)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten allocation: %w", err)
	}
	metrics.FlattenCalls.Inc()

	var violations []string
	if flatOnly {
		violations = allocation.ValidateRecipients(req.Recipients, total)
	} else {
		violations = allocation.Validate(groups, flat, total)
	}
	if !allocation.IsValidAddress(asset) {
		violations = append(violations, "asset: invalid address")
	}

	var amount *uint256.Int
	if total > 0 {
		amount, err = ParseAmount(amountString(req.Amount, total), decimals)
		if err != nil {
			violations = append(violations, "total amount: "+err.Error())
		}
	}

	if req.Schedule != nil && req.Schedule.IntervalMinutes == 0 {
		violations = append(violations, "schedule: interval must be greater than 0")
	}

	if len(violations) > 0 {
		metrics.ValidationFailures.Inc()
		return nil, &ValidationError{Violations: violations}
	}

	params := s.builder.Build(asset, flat, amount)
	drift := Drift(params.Recipients)
	metrics.BasisPointDrift.Observe(float64(abs(drift)))
	if drift != 0 {
		s.log.Warn().Int64("drift_bps", drift).Msg("Recipient basis points do not sum to 10000")
	}

	prepared := &Prepared{
		Flat:     flat,
		Params:   params,
		DriftBps: drift,
	}
	if req.Schedule != nil {
		sp := BuildScheduleParams(params, req.Schedule.IntervalMinutes*60, req.Schedule.MaxExecutions)
		prepared.Schedule = &sp
	}

	return prepared, nil
}

// Execute prepares and submits req, recording the outcome. A submission error
// is returned together with the failed run.
func (s *Service) Execute(ctx context.Context, req Request) (*Run, error) {
	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}

	prepared, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}

	kind := KindDistribute
	call := prepared.Params
	var receipt *Receipt
	var payload []byte

	if prepared.Schedule != nil {
		kind = KindSchedule
		call = prepared.Schedule.DistributeParams
		payload, err = EncodeCall(kind, call, prepared.Schedule.IntervalSeconds, prepared.Schedule.MaxExecutions)
		if err == nil {
			receipt, err = s.submitter.Schedule(ctx, *prepared.Schedule)
		}
	} else {
		payload, err = EncodeCall(kind, call, 0, 0)
		if err == nil {
			receipt, err = s.submitter.Distribute(ctx, call)
		}
	}

	run := &Run{
		ID:             s.newID(),
		ConfigID:       req.ConfigID,
		Kind:           kind,
		Asset:          call.Asset,
		Amount:         amountDec(call.Amount),
		RecipientCount: len(call.Recipients),
		Status:         RunSubmitted,
		Payload:        payload,
	}
	if receipt != nil {
		run.TxHash = receipt.TxHash
		run.CreatedAt = receipt.SubmittedAt
	}
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		metrics.Submissions.WithLabelValues(kind, metrics.StatusError).Inc()
		s.log.Error().Err(err).Str("kind", kind).Str("config_id", req.ConfigID).Msg("Distribution submission failed")
	} else {
		metrics.Submissions.WithLabelValues(kind, metrics.StatusSuccess).Inc()
		s.log.Info().
			Str("kind", kind).
			Str("config_id", req.ConfigID).
			Str("tx_hash", run.TxHash).
			Int("recipients", run.RecipientCount).
			Msg("Distribution submitted")
	}

	if s.runs != nil {
		if storeErr := s.runs.Create(run); storeErr != nil {
			s.log.Error().Err(storeErr).Str("run_id", run.ID).Msg("Failed to record distribution run")
		}
	}

	if err != nil {
		return run, fmt.Errorf("failed to submit %s: %w", kind, err)
	}
	return run, nil
}

// ListRuns returns the submission history, newest first
func (s *Service) ListRuns(ctx context.Context, configID string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.runs == nil {
		return []Run{}, nil
	}
	return s.runs.List(configID, limit)
}

// totalAmount resolves the grand total used for amount-based groups. An empty
// request amount defaults to the sum of wallet amounts.
func (s *Service) totalAmount(amount string, groups []allocation.WalletGroup) float64 {
	if strings.TrimSpace(amount) == "" {
		return allocation.TotalWalletAmount(groups)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func amountString(amount string, total float64) string {
	if strings.TrimSpace(amount) != "" {
		return amount
	}
	return decimal.NewFromFloat(total).String()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
