package allocation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aristath/distributor/pkg/percent"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Violation messages reported by the validator
const (
	MsgTotalAmount      = "total amount must be greater than 0"
	MsgRecipientsTotal  = "recipients total must be 100%"
	MsgRecipientsExceed = "recipients exceed 20"
	MsgWalletCount      = "wallet groups must be between 1 and 5"
)

// IsValidAddress reports whether addr is 0x followed by 40 hex characters
func IsValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// Validate gates an allocation before submission. It never stops at the first
// problem: every violation is returned so a client can show them all at once.
// An empty result means the allocation may be submitted.
func Validate(groups []WalletGroup, flat []FlatRecipient, totalAmount float64) []string {
	violations := make([]string, 0)

	if !(totalAmount > 0) {
		violations = append(violations, MsgTotalAmount)
	}

	if !percent.IsHundred(percent.Sum(FlatShares(flat))) {
		violations = append(violations, MsgRecipientsTotal)
	}

	for i, group := range groups {
		n := i + 1
		subs := SubPercents(group.Strategies)
		if !percent.IsHundred(percent.Sum(subs[:])) {
			violations = append(violations, fmt.Sprintf("wallet %d: strategies total must be 100%%", n))
		}
		if !IsValidAddress(group.Wallet) {
			violations = append(violations, fmt.Sprintf("wallet %d: invalid address", n))
		}
	}

	if len(flat) > MaxRecipients {
		violations = append(violations, MsgRecipientsExceed)
	}

	return append(violations, groupViolations(groups)...)
}

// groupViolations reports structural problems and fields that were silently
// read as zero because they are not numbers
func groupViolations(groups []WalletGroup) []string {
	var violations []string

	if len(groups) < 1 || len(groups) > MaxWalletGroups {
		violations = append(violations, MsgWalletCount)
	}

	seen := make(map[string]bool, len(groups))
	for i, group := range groups {
		n := i + 1

		key := normalizeAddress(group.Wallet)
		if key != "" && seen[key] {
			violations = append(violations, fmt.Sprintf("wallet %d: duplicate address", n))
		}
		seen[key] = true

		if group.UsesAmount() {
			if percent.IsMalformed(group.WalletAmount) {
				violations = append(violations, fmt.Sprintf("wallet %d: amount is not a number", n))
			}
		} else if percent.IsMalformed(group.SharePercent) {
			violations = append(violations, fmt.Sprintf("wallet %d: share is not a number", n))
		}

		for _, s := range group.Strategies {
			if percent.IsMalformed(s.SubPercent) {
				violations = append(violations, fmt.Sprintf("wallet %d: %s percent is not a number", n, s.Strategy))
			}
		}
	}

	return violations
}

// ValidateRecipients validates the flat-only variant, where each wallet carries
// exactly one strategy
func ValidateRecipients(recipients []RecipientWallet, totalAmount float64) []string {
	violations := make([]string, 0)

	if !(totalAmount > 0) {
		violations = append(violations, MsgTotalAmount)
	}

	flat := FlattenRecipients(recipients)
	if !percent.IsHundred(percent.Sum(FlatShares(flat))) {
		violations = append(violations, MsgRecipientsTotal)
	}

	for i, r := range recipients {
		n := i + 1
		if !IsValidAddress(r.Wallet) {
			violations = append(violations, fmt.Sprintf("wallet %d: invalid address", n))
		}
		if !r.Strategy.Valid() {
			violations = append(violations, fmt.Sprintf("wallet %d: unknown strategy", n))
		}
		if percent.IsMalformed(r.SharePercent) {
			violations = append(violations, fmt.Sprintf("wallet %d: share is not a number", n))
		}
	}

	if len(flat) > MaxRecipients {
		violations = append(violations, MsgRecipientsExceed)
	}

	return violations
}

// Violations joins messages for logging
func Violations(messages []string) string {
	return strings.Join(messages, "; ")
}
