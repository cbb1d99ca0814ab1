package allocation

import (
	"errors"
	"strings"

	"github.com/aristath/distributor/pkg/percent"
)

// ErrNilGroups is returned when a nil group slice is passed to the engine.
// An empty allocation is a non-nil, zero-length slice.
var ErrNilGroups = errors.New("allocation: nil wallet groups")

// Flatten expands wallet groups into the flat recipient list consumed by the
// distributor contract.
//
// Each group's share is SharePercent when set, otherwise WalletAmount relative
// to totalAmount (0 when totalAmount is not positive, so amount-based groups
// produce no recipients until a total is known). Every strategy with a
// positive sub-percent emits walletShare*sub/100. Emission follows group order
// then strategy code order; zero shares are dropped.
func Flatten(groups []WalletGroup, totalAmount float64) ([]FlatRecipient, error) {
	if groups == nil {
		return nil, ErrNilGroups
	}

	shares := EffectiveShares(groups, totalAmount)
	flat := make([]FlatRecipient, 0, len(groups)*StrategyCount)

	for i, group := range groups {
		walletShare := shares[i]
		if walletShare <= 0 {
			continue
		}

		subs := SubPercents(group.Strategies)
		for _, strategy := range AllStrategies {
			sub := subs[strategy]
			if sub <= 0 {
				continue
			}

			overall := walletShare * sub / percent.Hundred
			if overall <= 0 {
				continue
			}

			flat = append(flat, FlatRecipient{
				Wallet:       group.Wallet,
				SharePercent: percent.Format(overall),
				Strategy:     strategy,
			})
		}
	}

	return flat, nil
}

// FlattenRecipients converts the flat-only variant (one strategy per wallet)
// into flat recipients, dropping zero shares.
func FlattenRecipients(recipients []RecipientWallet) []FlatRecipient {
	flat := make([]FlatRecipient, 0, len(recipients))
	for _, r := range recipients {
		share := percent.ParseDecimalOrZero(r.SharePercent)
		if share <= 0 || !r.Strategy.Valid() {
			continue
		}
		flat = append(flat, FlatRecipient{
			Wallet:       r.Wallet,
			SharePercent: percent.Format(share),
			Strategy:     r.Strategy,
		})
	}
	return flat
}

// GroupFromFlat rebuilds wallet groups from a flat list. Entries are grouped by
// wallet (case-insensitive, first appearance order). A wallet's share is the
// sum of its entries and every strategy slot gets entry/walletShare*100, or 0
// when the wallet share is not positive.
func GroupFromFlat(flat []FlatRecipient) []WalletGroup {
	type bucket struct {
		wallet string
		shares [StrategyCount]float64
	}

	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, entry := range flat {
		key := normalizeAddress(entry.Wallet)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{wallet: entry.Wallet}
			buckets[key] = b
			order = append(order, key)
		}
		if entry.Strategy.Valid() {
			b.shares[entry.Strategy] += percent.ParseDecimalOrZero(entry.SharePercent)
		}
	}

	groups := make([]WalletGroup, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		walletShare := percent.Sum(b.shares[:])

		strategies := make([]StrategyAllocation, StrategyCount)
		for _, strategy := range AllStrategies {
			var sub float64
			if walletShare > 0 {
				sub = b.shares[strategy] / walletShare * percent.Hundred
			}
			strategies[strategy] = StrategyAllocation{
				Strategy:   strategy,
				SubPercent: percent.Format(sub),
			}
		}

		groups = append(groups, WalletGroup{
			Wallet:       b.wallet,
			SharePercent: percent.Format(walletShare),
			Strategies:   strategies,
		})
	}

	return groups
}

// GroupsFromRecipients lifts the flat-only variant into wallet groups with a
// single 100% strategy each.
func GroupsFromRecipients(recipients []RecipientWallet) []WalletGroup {
	groups := make([]WalletGroup, 0, len(recipients))
	for _, r := range recipients {
		strategies := make([]StrategyAllocation, StrategyCount)
		for _, strategy := range AllStrategies {
			sub := "0"
			if strategy == r.Strategy {
				sub = "100"
			}
			strategies[strategy] = StrategyAllocation{Strategy: strategy, SubPercent: sub}
		}
		groups = append(groups, WalletGroup{
			Wallet:       r.Wallet,
			SharePercent: r.SharePercent,
			Strategies:   strategies,
		})
	}
	return groups
}

// EffectiveShares resolves each group's percentage of the total
func EffectiveShares(groups []WalletGroup, totalAmount float64) []float64 {
	shares := make([]float64, len(groups))
	for i, group := range groups {
		if !group.UsesAmount() {
			shares[i] = percent.ParseDecimalOrZero(group.SharePercent)
			continue
		}
		if totalAmount > 0 {
			shares[i] = percent.ParseDecimalOrZero(group.WalletAmount) / totalAmount * percent.Hundred
		}
	}
	return shares
}

// TotalWalletAmount sums WalletAmount over amount-based groups
func TotalWalletAmount(groups []WalletGroup) float64 {
	amounts := make([]string, 0, len(groups))
	for _, group := range groups {
		if group.UsesAmount() {
			amounts = append(amounts, group.WalletAmount)
		}
	}
	return percent.SumStrings(amounts)
}

// ToPercentMode returns a copy of groups where every amount-based group has
// been converted to an explicit SharePercent against totalAmount.
func ToPercentMode(groups []WalletGroup, totalAmount float64) []WalletGroup {
	shares := EffectiveShares(groups, totalAmount)
	out := CloneGroups(groups)
	for i := range out {
		if out[i].UsesAmount() {
			out[i].SharePercent = percent.Format(shares[i])
			out[i].WalletAmount = ""
		}
	}
	return out
}

// SubPercents indexes a wallet's strategy percentages by strategy code.
// Duplicate entries for one strategy are summed; unknown codes are ignored.
func SubPercents(strategies []StrategyAllocation) [StrategyCount]float64 {
	var subs [StrategyCount]float64
	for _, s := range strategies {
		if !s.Strategy.Valid() {
			continue
		}
		subs[s.Strategy] += percent.ParseDecimalOrZero(s.SubPercent)
	}
	return subs
}

// FlatShares returns the parsed SharePercent of every flat recipient
func FlatShares(flat []FlatRecipient) []float64 {
	shares := make([]float64, len(flat))
	for i, r := range flat {
		shares[i] = percent.ParseDecimalOrZero(r.SharePercent)
	}
	return shares
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
