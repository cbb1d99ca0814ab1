package allocation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAction is wrapped by every rejected draft action
var ErrInvalidAction = errors.New("invalid draft action")

// ActionType names a user edit on a draft allocation
type ActionType string

const (
	ActionAddWallet          ActionType = "add_wallet"
	ActionRemoveWallet       ActionType = "remove_wallet"
	ActionSetWallet          ActionType = "set_wallet"
	ActionSetShare           ActionType = "set_share"
	ActionSetAmount          ActionType = "set_amount"
	ActionSetStrategyPercent ActionType = "set_strategy_percent"
	ActionApplyPreset        ActionType = "apply_preset"
	ActionEvenSplit          ActionType = "even_split"
	ActionNormalize          ActionType = "normalize"
	ActionEvenSplitWallets   ActionType = "even_split_wallets"
	ActionNormalizeWallets   ActionType = "normalize_wallets"
	ActionLoad               ActionType = "load"
)

// Action is a single edit. Index addresses a wallet group; the other fields are
// read depending on Type.
type Action struct {
	Type        ActionType    `json:"type"`
	Index       int           `json:"index"`
	Wallet      string        `json:"wallet,omitempty"`
	Value       string        `json:"value,omitempty"`
	Strategy    Strategy      `json:"strategy,omitempty"`
	Preset      string        `json:"preset,omitempty"`
	TotalAmount float64       `json:"totalAmount,omitempty"`
	Groups      []WalletGroup `json:"groups,omitempty"`
}

// NewGroup returns a wallet group with the default strategy preset
func NewGroup(wallet, sharePercent string) WalletGroup {
	strategies, _ := ApplyPreset(DefaultPreset)
	return WalletGroup{
		Wallet:       wallet,
		SharePercent: sharePercent,
		Strategies:   strategies,
	}
}

// NewDraft starts an editing session with one group holding 100% of the total
func NewDraft() []WalletGroup {
	return []WalletGroup{NewGroup("", "100")}
}

// Reduce applies action to groups and returns the new state. The input is never
// modified. A rejected action returns the unchanged state and an error wrapping
// ErrInvalidAction.
func Reduce(groups []WalletGroup, action Action) ([]WalletGroup, error) {
	state := CloneGroups(groups)
	if state == nil {
		state = []WalletGroup{}
	}

	reject := func(format string, args ...interface{}) ([]WalletGroup, error) {
		return state, fmt.Errorf("%w: %s", ErrInvalidAction, fmt.Sprintf(format, args...))
	}

	needsIndex := action.Type != ActionAddWallet &&
		action.Type != ActionEvenSplitWallets &&
		action.Type != ActionNormalizeWallets &&
		action.Type != ActionLoad
	if needsIndex && (action.Index < 0 || action.Index >= len(state)) {
		return reject("wallet index %d out of range", action.Index)
	}

	switch action.Type {
	case ActionAddWallet:
		if len(state) >= MaxWalletGroups {
			return reject("at most %d wallets", MaxWalletGroups)
		}
		return append(state, NewGroup(strings.TrimSpace(action.Wallet), "0")), nil

	case ActionRemoveWallet:
		if len(state) <= 1 {
			return reject("at least one wallet is required")
		}
		return append(state[:action.Index], state[action.Index+1:]...), nil

	case ActionSetWallet:
		state[action.Index].Wallet = strings.TrimSpace(action.Wallet)
		return state, nil

	case ActionSetShare:
		state[action.Index].SharePercent = action.Value
		state[action.Index].WalletAmount = ""
		return state, nil

	case ActionSetAmount:
		state[action.Index].WalletAmount = action.Value
		state[action.Index].SharePercent = ""
		return state, nil

	case ActionSetStrategyPercent:
		if !action.Strategy.Valid() {
			return reject("unknown strategy code %d", uint8(action.Strategy))
		}
		state[action.Index].Strategies = setSubPercent(state[action.Index].Strategies, action.Strategy, action.Value)
		return state, nil

	case ActionApplyPreset:
		strategies, err := ApplyPreset(action.Preset)
		if err != nil {
			return reject("%v", err)
		}
		state[action.Index].Strategies = strategies
		return state, nil

	case ActionEvenSplit:
		state[action.Index].Strategies = EvenSplitStrategies()
		return state, nil

	case ActionNormalize:
		state[action.Index].Strategies = Normalize(state[action.Index].Strategies)
		return state, nil

	case ActionEvenSplitWallets:
		return EvenSplitWallets(state), nil

	case ActionNormalizeWallets:
		return NormalizeWallets(state, action.TotalAmount), nil

	case ActionLoad:
		if len(action.Groups) == 0 {
			return reject("nothing to load")
		}
		if len(action.Groups) > MaxWalletGroups {
			return reject("at most %d wallets", MaxWalletGroups)
		}
		return CloneGroups(action.Groups), nil

	default:
		return reject("unknown action %q", action.Type)
	}
}

// setSubPercent updates one strategy's percentage, adding the slot if missing
func setSubPercent(strategies []StrategyAllocation, strategy Strategy, value string) []StrategyAllocation {
	for i := range strategies {
		if strategies[i].Strategy == strategy {
			strategies[i].SubPercent = value
			return strategies
		}
	}
	return append(strategies, StrategyAllocation{Strategy: strategy, SubPercent: value})
}
