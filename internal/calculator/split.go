package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind selects how a group expense is divided among its participants.
type Kind string

const (
	// Equal divides the total evenly; share values are ignored.
	Equal Kind = "equal"
	// Exact takes each share value as the amount owed.
	Exact Kind = "exact"
	// Percentage takes each share value as a percentage of the total.
	Percentage Kind = "percentage"
	// Shares takes each share value as a weight.
	Shares Kind = "shares"
)

// ParseKind validates a split kind, defaulting to Equal.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return Equal, nil
	case Equal, Exact, Percentage, Shares:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

var (
	ErrUnknownKind          = errors.New("unknown split type")
	ErrNoParticipants       = errors.New("must have at least one participant")
	ErrDuplicateParticipant = errors.New("participant listed more than once")
	ErrInvalidTotal         = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidShare         = errors.New("invalid share value")
	ErrExactMismatch        = errors.New("exact amounts must add up to the total")
	ErrPercentMismatch      = errors.New("percentages must add up to 100")
)

var hundred = decimal.NewFromInt(100)

// Share is a requested portion of an expense before it is resolved.
type Share struct {
	UserID string
	Value  decimal.Decimal
}

// Allocation is the resolved amount one participant owes.
type Allocation struct {
	UserID string
	Amount decimal.Decimal
}

// CalculateSplit resolves shares into allocations that add up to total
// exactly. Amounts are whole cents; cents left over by rounding go one at a
// time to participants in the order they were given.
func CalculateSplit(kind Kind, total decimal.Decimal, shares []Share) ([]Allocation, error) {
	if !total.IsPositive() || !isCents(total) {
		return nil, ErrInvalidTotal
	}
	if len(shares) == 0 {
		return nil, ErrNoParticipants
	}
	seen := make(map[string]bool, len(shares))
	for _, s := range shares {
		if s.UserID == "" {
			return nil, fmt.Errorf("%w: empty participant", ErrInvalidShare)
		}
		if seen[s.UserID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, s.UserID)
		}
		seen[s.UserID] = true
	}

	weights := make([]decimal.Decimal, len(shares))
	switch kind {
	case Equal:
		for i := range shares {
			weights[i] = decimal.NewFromInt(1)
		}

	case Exact:
		sum := decimal.Zero
		allocs := make([]Allocation, len(shares))
		for i, s := range shares {
			if s.Value.IsNegative() || !isCents(s.Value) {
				return nil, fmt.Errorf("%w: %s for %s", ErrInvalidShare, s.Value, s.UserID)
			}
			sum = sum.Add(s.Value)
			allocs[i] = Allocation{UserID: s.UserID, Amount: s.Value}
		}
		if !sum.Equal(total) {
			return nil, fmt.Errorf("%w: got %s, want %s", ErrExactMismatch, sum.StringFixed(2), total.StringFixed(2))
		}
		return allocs, nil

	case Percentage:
		sum := decimal.Zero
		for i, s := range shares {
			if s.Value.IsNegative() {
				return nil, fmt.Errorf("%w: %s%% for %s", ErrInvalidShare, s.Value, s.UserID)
			}
			sum = sum.Add(s.Value)
			weights[i] = s.Value
		}
		if !sum.Equal(hundred) {
			return nil, fmt.Errorf("%w: got %s", ErrPercentMismatch, sum)
		}

	case Shares:
		for i, s := range shares {
			if !s.Value.IsPositive() {
				return nil, fmt.Errorf("%w: weight %s for %s", ErrInvalidShare, s.Value, s.UserID)
			}
			weights[i] = s.Value
		}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	cents := allocateCents(total.Shift(2).IntPart(), weights)
	allocs := make([]Allocation, len(shares))
	for i, s := range shares {
		allocs[i] = Allocation{UserID: s.UserID, Amount: decimal.New(cents[i], -2)}
	}
	return allocs, nil
}

// allocateCents divides totalCents proportionally to weights. Every
// participant gets the floor of their exact portion; the remaining cents go
// to participants with a positive weight, first come first served.
func allocateCents(totalCents int64, weights []decimal.Decimal) []int64 {
	sumWeights := decimal.Zero
	for _, w := range weights {
		sumWeights = sumWeights.Add(w)
	}

	out := make([]int64, len(weights))
	var assigned int64
	for i, w := range weights {
		out[i] = decimal.NewFromInt(totalCents).Mul(w).Div(sumWeights).Floor().IntPart()
		assigned += out[i]
	}

	for remainder := totalCents - assigned; remainder > 0; {
		for i, w := range weights {
			if remainder == 0 {
				break
			}
			if w.IsPositive() {
				out[i]++
				remainder--
			}
		}
	}
	return out
}

// isCents reports whether d has no more than two decimal places.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
