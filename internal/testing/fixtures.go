package testing

import (
	"github.com/aristath/distributor/internal/modules/allocation"
)

// Well-known addresses used across tests
const (
	WalletA = "0x1111111111111111111111111111111111111111"
	WalletB = "0x2222222222222222222222222222222222222222"
	WalletC = "0x3333333333333333333333333333333333333333"
	USDC    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// NewShareGroupFixtures returns a valid two-wallet allocation in percent mode:
// WalletA 60% (50 direct / 50 lending), WalletB 40% (100 vault)
func NewShareGroupFixtures() []allocation.WalletGroup {
	return []allocation.WalletGroup{
		{
			Wallet:       WalletA,
			SharePercent: "60",
			Strategies: []allocation.StrategyAllocation{
				{Strategy: allocation.DirectTransfer, SubPercent: "50"},
				{Strategy: allocation.LendingSupply, SubPercent: "50"},
			},
		},
		{
			Wallet:       WalletB,
			SharePercent: "40",
			Strategies: []allocation.StrategyAllocation{
				{Strategy: allocation.VaultDeposit, SubPercent: "100"},
			},
		},
	}
}

// NewAmountGroupFixtures returns a valid allocation in amount mode totalling
// 100 units: WalletA 75, WalletB 25, both paid by direct transfer
func NewAmountGroupFixtures() []allocation.WalletGroup {
	direct := []allocation.StrategyAllocation{
		{Strategy: allocation.DirectTransfer, SubPercent: "100"},
	}
	return []allocation.WalletGroup{
		{Wallet: WalletA, WalletAmount: "75", Strategies: direct},
		{Wallet: WalletB, WalletAmount: "25", Strategies: direct},
	}
}

// NewInvalidGroupFixtures returns an allocation whose shares sum to 90%
func NewInvalidGroupFixtures() []allocation.WalletGroup {
	groups := NewShareGroupFixtures()
	groups[1].SharePercent = "30"
	return groups
}
