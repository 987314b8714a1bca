package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateSplit(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		total   string
		shares  []Share
		want    map[string]string
		wantErr error
	}{
		{
			name:   "equal split divides evenly",
			kind:   Equal,
			total:  "30.00",
			shares: []Share{{UserID: "alice"}, {UserID: "bob"}, {UserID: "carol"}},
			want:   map[string]string{"alice": "10", "bob": "10", "carol": "10"},
		},
		{
			name:   "equal split hands remainder cents out in order",
			kind:   Equal,
			total:  "10.00",
			shares: []Share{{UserID: "alice"}, {UserID: "bob"}, {UserID: "carol"}},
			want:   map[string]string{"alice": "3.34", "bob": "3.33", "carol": "3.33"},
		},
		{
			name:   "equal split of two cents among three",
			kind:   Equal,
			total:  "0.02",
			shares: []Share{{UserID: "alice"}, {UserID: "bob"}, {UserID: "carol"}},
			want:   map[string]string{"alice": "0.01", "bob": "0.01", "carol": "0"},
		},
		{
			name:  "exact amounts are kept",
			kind:  Exact,
			total: "25.50",
			shares: []Share{
				{UserID: "alice", Value: d("20.50")},
				{UserID: "bob", Value: d("5")},
			},
			want: map[string]string{"alice": "20.5", "bob": "5"},
		},
		{
			name:  "exact amounts must match total",
			kind:  Exact,
			total: "25.50",
			shares: []Share{
				{UserID: "alice", Value: d("20")},
				{UserID: "bob", Value: d("5")},
			},
			wantErr: ErrExactMismatch,
		},
		{
			name:  "percentages",
			kind:  Percentage,
			total: "200",
			shares: []Share{
				{UserID: "alice", Value: d("62.5")},
				{UserID: "bob", Value: d("37.5")},
			},
			want: map[string]string{"alice": "125", "bob": "75"},
		},
		{
			name:  "percentages with zero share get nothing",
			kind:  Percentage,
			total: "0.99",
			shares: []Share{
				{UserID: "alice", Value: d("50")},
				{UserID: "bob", Value: d("0")},
				{UserID: "carol", Value: d("50")},
			},
			want: map[string]string{"alice": "0.5", "bob": "0", "carol": "0.49"},
		},
		{
			name:  "percentages must add to 100",
			kind:  Percentage,
			total: "100",
			shares: []Share{
				{UserID: "alice", Value: d("50")},
				{UserID: "bob", Value: d("40")},
			},
			wantErr: ErrPercentMismatch,
		},
		{
			name:  "weighted shares",
			kind:  Shares,
			total: "90",
			shares: []Share{
				{UserID: "alice", Value: d("2")},
				{UserID: "bob", Value: d("1")},
			},
			want: map[string]string{"alice": "60", "bob": "30"},
		},
		{
			name:  "weights must be positive",
			kind:  Shares,
			total: "90",
			shares: []Share{
				{UserID: "alice", Value: d("2")},
				{UserID: "bob", Value: d("0")},
			},
			wantErr: ErrInvalidShare,
		},
		{
			name:    "no participants",
			kind:    Equal,
			total:   "10",
			wantErr: ErrNoParticipants,
		},
		{
			name:    "duplicate participant",
			kind:    Equal,
			total:   "10",
			shares:  []Share{{UserID: "alice"}, {UserID: "alice"}},
			wantErr: ErrDuplicateParticipant,
		},
		{
			name:    "fractional cents rejected",
			kind:    Equal,
			total:   "10.005",
			shares:  []Share{{UserID: "alice"}},
			wantErr: ErrInvalidTotal,
		},
		{
			name:    "zero total rejected",
			kind:    Equal,
			total:   "0",
			shares:  []Share{{UserID: "alice"}},
			wantErr: ErrInvalidTotal,
		},
		{
			name:    "unknown kind",
			kind:    Kind("random"),
			total:   "10",
			shares:  []Share{{UserID: "alice"}},
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocs, err := CalculateSplit(tt.kind, d(tt.total), tt.shares)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CalculateSplit() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculateSplit() unexpected error: %v", err)
			}

			sum := decimal.Zero
			for _, a := range allocs {
				sum = sum.Add(a.Amount)
				want, ok := tt.want[a.UserID]
				if !ok {
					t.Errorf("unexpected allocation for %s", a.UserID)
					continue
				}
				if !a.Amount.Equal(d(want)) {
					t.Errorf("%s amount = %s, want %s", a.UserID, a.Amount, want)
				}
			}
			if !sum.Equal(d(tt.total)) {
				t.Errorf("allocations sum to %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestCalculateSplitPreservesOrder(t *testing.T) {
	shares := []Share{{UserID: "zed"}, {UserID: "amy"}, {UserID: "kim"}}
	allocs, err := CalculateSplit(Equal, d("1"), shares)
	if err != nil {
		t.Fatalf("CalculateSplit() error: %v", err)
	}
	for i, a := range allocs {
		if a.UserID != shares[i].UserID {
			t.Errorf("allocation %d is for %s, want %s", i, a.UserID, shares[i].UserID)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(""); err != nil || k != Equal {
		t.Errorf("ParseKind(\"\") = %q, %v; want equal", k, err)
	}
	if k, err := ParseKind("shares"); err != nil || k != Shares {
		t.Errorf("ParseKind(shares) = %q, %v", k, err)
	}
	if _, err := ParseKind("thirds"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(thirds) error = %v, want ErrUnknownKind", err)
	}
}
