package distribution

import (
	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/pkg/percent"
	"github.com/holiman/uint256"
)

// Recipient is one entry of the distributor call's recipients array
type Recipient struct {
	Wallet          string `json:"wallet" msgpack:"wallet"`
	SharePercentBps uint16 `json:"sharePercent" msgpack:"share_bps"`
	Strategy        uint8  `json:"strategy" msgpack:"strategy"`
}

// DistributeParams is the argument tuple of distribute(asset, amount, recipients).
// Amount is in the asset's smallest unit.
type DistributeParams struct {
	Asset      string       `json:"asset"`
	Amount     *uint256.Int `json:"amount"`
	Recipients []Recipient  `json:"recipients"`
}

// ScheduleParams extends DistributeParams for the recurring call. Amount is the
// amount sent per execution.
type ScheduleParams struct {
	DistributeParams
	IntervalSeconds uint64 `json:"intervalSeconds"`
	MaxExecutions   uint64 `json:"maxExecutions"`
}

// BuildParams converts a flat allocation to contract arguments. Each share is
// rounded to basis points independently; unparseable shares contribute 0 and
// results are clamped to the uint16 range the contract accepts.
func BuildParams(asset string, flat []allocation.FlatRecipient, amount *uint256.Int) DistributeParams {
	return Builder{}.Build(asset, flat, amount)
}

// Builder converts flat allocations to contract arguments. A non-nil Policy
// corrects the rounding drift so recipients sum to exactly 10000 basis points.
type Builder struct {
	Policy allocation.RemainderPolicy
}

// Build converts flat to DistributeParams
func (b Builder) Build(asset string, flat []allocation.FlatRecipient, amount *uint256.Int) DistributeParams {
	units := make([]int64, len(flat))
	for i, r := range flat {
		units[i] = clampBps(percent.ToBasisPoints(percent.ParseDecimalOrZero(r.SharePercent)))
	}

	allocation.CorrectRounding(units, percent.MaxBasisPoints, b.Policy)

	recipients := make([]Recipient, len(flat))
	for i, r := range flat {
		recipients[i] = Recipient{
			Wallet:          ChecksumAddress(r.Wallet),
			SharePercentBps: uint16(clampBps(units[i])),
			Strategy:        r.Strategy.Code(),
		}
	}

	if amount == nil {
		amount = new(uint256.Int)
	}

	return DistributeParams{
		Asset:      ChecksumAddress(asset),
		Amount:     new(uint256.Int).Set(amount),
		Recipients: recipients,
	}
}

// BuildScheduleParams derives the recurring call from a one-shot call
func BuildScheduleParams(params DistributeParams, intervalSeconds, maxExecutions uint64) ScheduleParams {
	perRun := params
	perRun.Amount = PerExecution(params.Amount, maxExecutions)
	return ScheduleParams{
		DistributeParams: perRun,
		IntervalSeconds:  intervalSeconds,
		MaxExecutions:    maxExecutions,
	}
}

// TotalBps sums the recipients' basis points
func TotalBps(recipients []Recipient) int64 {
	var total int64
	for _, r := range recipients {
		total += int64(r.SharePercentBps)
	}
	return total
}

// Drift is the signed distance between the recipients' sum and 10000
func Drift(recipients []Recipient) int64 {
	return TotalBps(recipients) - percent.MaxBasisPoints
}

func clampBps(bps int64) int64 {
	if bps < 0 {
		return 0
	}
	if bps > percent.MaxBasisPoints {
		return percent.MaxBasisPoints
	}
	return bps
}
