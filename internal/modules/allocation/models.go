// Package allocation implements the two-level fund allocation model: each
// recipient wallet receives a share of the total, and each wallet's share is
// split across a fixed set of execution strategies.
package allocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Strategy is an on-chain execution path. The integer codes are part of the
// distributor contract ABI and must not change.
type Strategy uint8

const (
	DirectTransfer   Strategy = 0
	LendingSupply    Strategy = 1
	VaultDeposit     Strategy = 2
	SwapToOtherAsset Strategy = 3
)

// StrategyCount is the size of the strategy enumeration
const StrategyCount = 4

// AllStrategies lists every strategy in code order
var AllStrategies = [StrategyCount]Strategy{DirectTransfer, LendingSupply, VaultDeposit, SwapToOtherAsset}

var strategyNames = [StrategyCount]string{"DirectTransfer", "LendingSupply", "VaultDeposit", "SwapToOtherAsset"}

const (
	// MaxWalletGroups is the largest number of recipient wallets in one allocation
	MaxWalletGroups = 5
	// MaxRecipients is the contract ceiling on flat recipients per call
	MaxRecipients = 20
)

// Valid reports whether s is a known strategy code
func (s Strategy) Valid() bool {
	return s < StrategyCount
}

// Code returns the on-chain uint8 code
func (s Strategy) Code() uint8 {
	return uint8(s)
}

func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
	return strategyNames[s]
}

// MarshalText encodes the strategy by name
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown strategy code %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts a strategy name (case-insensitive) or its numeric code
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON accepts both the quoted name and the bare numeric code. A JSON
// null leaves the value unchanged.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("failed to decode strategy: %w", err)
		}
		return s.UnmarshalText([]byte(text))
	}
	return s.UnmarshalText(data)
}

// ParseStrategy resolves a strategy from its name or numeric code
func ParseStrategy(value string) (Strategy, error) {
	trimmed := strings.TrimSpace(value)
	for i, name := range strategyNames {
		if strings.EqualFold(trimmed, name) {
			return Strategy(i), nil
		}
	}
	if len(trimmed) == 1 && trimmed[0] >= '0' && trimmed[0] < '0'+StrategyCount {
		return Strategy(trimmed[0] - '0'), nil
	}
	return 0, fmt.Errorf("unknown strategy %q", value)
}

// StrategyAllocation is one strategy's share of its owning wallet (0-100)
type StrategyAllocation struct {
	Strategy   Strategy `json:"strategy"`
	SubPercent string   `json:"subPercent"`
}

// WalletGroup is one recipient and the breakdown of its funds across strategies.
// SharePercent takes precedence; WalletAmount is used when SharePercent is empty
// and is resolved against the allocation total.
type WalletGroup struct {
	Wallet       string               `json:"wallet"`
	SharePercent string               `json:"sharePercent,omitempty"`
	WalletAmount string               `json:"walletAmount,omitempty"`
	Strategies   []StrategyAllocation `json:"strategies"`
}

// UsesAmount reports whether the group is parameterized by an absolute amount
func (g WalletGroup) UsesAmount() bool {
	return strings.TrimSpace(g.SharePercent) == "" && strings.TrimSpace(g.WalletAmount) != ""
}

// Clone returns a deep copy of the group
func (g WalletGroup) Clone() WalletGroup {
	cpy := g
	cpy.Strategies = append([]StrategyAllocation(nil), g.Strategies...)
	return cpy
}

// RecipientWallet is the flat-only variant: one wallet, one strategy
type RecipientWallet struct {
	Wallet       string   `json:"wallet"`
	SharePercent string   `json:"sharePercent"`
	Strategy     Strategy `json:"strategy"`
}

// FlatRecipient is a fully expanded allocation entry. SharePercent is the
// overall percentage of the grand total.
type FlatRecipient struct {
	Wallet       string   `json:"wallet"`
	SharePercent string   `json:"sharePercent"`
	Strategy     Strategy `json:"strategy"`
}

// CloneGroups deep-copies a slice of groups, preserving nil
func CloneGroups(groups []WalletGroup) []WalletGroup {
	if groups == nil {
		return nil
	}
	out := make([]WalletGroup, len(groups))
	for i, g := range groups {
		out[i] = g.Clone()
	}
	return out
}
