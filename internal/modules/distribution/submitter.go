package distribution

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Submission kinds
const (
	KindDistribute = "distribute"
	KindSchedule   = "schedule"
)

// Receipt identifies an accepted submission
type Receipt struct {
	TxHash      string    `json:"txHash"`
	Kind        string    `json:"kind"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Submitter is the boundary to the on-chain distributor contract. Signing, gas
// and retries belong to the implementation.
type Submitter interface {
	Distribute(ctx context.Context, params DistributeParams) (*Receipt, error)
	Schedule(ctx context.Context, params ScheduleParams) (*Receipt, error)
}

// DryRunSubmitter accepts every call without touching a chain. The returned
// hash is keccak256 over the msgpack encoding of the call, so identical calls
// yield identical hashes.
type DryRunSubmitter struct {
	log zerolog.Logger
	now func() time.Time
}

// NewDryRunSubmitter creates a submitter that only logs
func NewDryRunSubmitter(log zerolog.Logger) *DryRunSubmitter {
	return &DryRunSubmitter{
		log: log.With().Str("component", "dry_run_submitter").Logger(),
		now: time.Now,
	}
}

// Distribute records a one-shot distribution
func (s *DryRunSubmitter) Distribute(ctx context.Context, params DistributeParams) (*Receipt, error) {
	return s.submit(ctx, KindDistribute, params, 0, 0)
}

// Schedule records a recurring distribution
func (s *DryRunSubmitter) Schedule(ctx context.Context, params ScheduleParams) (*Receipt, error) {
	return s.submit(ctx, KindSchedule, params.DistributeParams, params.IntervalSeconds, params.MaxExecutions)
}

func (s *DryRunSubmitter) submit(ctx context.Context, kind string, params DistributeParams, interval, maxExecutions uint64) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := EncodeCall(kind, params, interval, maxExecutions)
	if err != nil {
		return nil, err
	}
	txHash := "0x" + hex.EncodeToString(keccak256(payload))

	s.log.Info().
		Str("kind", kind).
		Str("asset", params.Asset).
		Str("amount", amountDec(params.Amount)).
		Int("recipients", len(params.Recipients)).
		Str("tx_hash", txHash).
		Msg("Dry-run submission")

	return &Receipt{
		TxHash:      txHash,
		Kind:        kind,
		SubmittedAt: s.now().UTC(),
	}, nil
}

// call is the msgpack wire form of a submission
type call struct {
	Kind            string      `msgpack:"kind"`
	Asset           string      `msgpack:"asset"`
	Amount          string      `msgpack:"amount"`
	Recipients      []Recipient `msgpack:"recipients"`
	IntervalSeconds uint64      `msgpack:"interval_seconds,omitempty"`
	MaxExecutions   uint64      `msgpack:"max_executions,omitempty"`
}

// EncodeCall serializes a submission with msgpack
func EncodeCall(kind string, params DistributeParams, interval, maxExecutions uint64) ([]byte, error) {
	data, err := msgpack.Marshal(call{
		Kind:            kind,
		Asset:           params.Asset,
		Amount:          amountDec(params.Amount),
		Recipients:      params.Recipients,
		IntervalSeconds: interval,
		MaxExecutions:   maxExecutions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s call: %w", kind, err)
	}
	return data, nil
}

// DecodeCall reverses EncodeCall
func DecodeCall(data []byte) (kind string, params ScheduleParams, err error) {
	var c call
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return "", ScheduleParams{}, fmt.Errorf("failed to decode call: %w", err)
	}

	amount, err := parseDec(c.Amount)
	if err != nil {
		return "", ScheduleParams{}, err
	}

	return c.Kind, ScheduleParams{
		DistributeParams: DistributeParams{
			Asset:      c.Asset,
			Amount:     amount,
			Recipients: c.Recipients,
		},
		IntervalSeconds: c.IntervalSeconds,
		MaxExecutions:   c.MaxExecutions,
	}, nil
}
