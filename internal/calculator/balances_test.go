package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateGroupBalances(t *testing.T) {
	members := []string{"alice", "bob", "carol"}
	expenses := []ExpenseForBalance{
		{
			ID:      "dinner",
			PayerID: "alice",
			Amount:  d("90"),
			Splits: []Allocation{
				{UserID: "alice", Amount: d("30")},
				{UserID: "bob", Amount: d("30")},
				{UserID: "carol", Amount: d("30")},
			},
		},
		{
			ID:      "taxi",
			PayerID: "bob",
			Amount:  d("30"),
			Splits: []Allocation{
				{UserID: "bob", Amount: d("15")},
				{UserID: "carol", Amount: d("15")},
			},
		},
	}

	balances, debts, err := CalculateGroupBalances(members, expenses, nil)
	if err != nil {
		t.Fatalf("CalculateGroupBalances() error: %v", err)
	}

	want := map[string]string{"alice": "60", "bob": "-15", "carol": "-45"}
	sum := decimal.Zero
	for i, bal := range balances {
		if bal.UserID != members[i] {
			t.Errorf("balance %d is for %s, want %s", i, bal.UserID, members[i])
		}
		expectAmount(t, bal.UserID+" net", bal.NetBalance, want[bal.UserID])
		sum = sum.Add(bal.NetBalance)
	}
	if !sum.IsZero() {
		t.Errorf("net balances sum to %s, want 0", sum)
	}

	if len(debts) != 2 {
		t.Fatalf("debts = %d, want 2: %+v", len(debts), debts)
	}
	// Largest debtor pays first.
	if debts[0].From != "carol" || debts[0].To != "alice" || !debts[0].Amount.Equal(d("45")) {
		t.Errorf("debts[0] = %+v, want carol->alice 45", debts[0])
	}
	if debts[1].From != "bob" || debts[1].To != "alice" || !debts[1].Amount.Equal(d("15")) {
		t.Errorf("debts[1] = %+v, want bob->alice 15", debts[1])
	}
}

func TestCalculateGroupBalancesWithSettlements(t *testing.T) {
	members := []string{"alice", "bob"}
	expenses := []ExpenseForBalance{{
		ID:      "rent",
		PayerID: "alice",
		Amount:  d("100"),
		Splits: []Allocation{
			{UserID: "alice", Amount: d("50")},
			{UserID: "bob", Amount: d("50")},
		},
	}}

	t.Run("partial settlement", func(t *testing.T) {
		settlements := []SettlementForBalance{{FromUserID: "bob", ToUserID: "alice", Amount: d("20")}}
		balances, debts, err := CalculateGroupBalances(members, expenses, settlements)
		if err != nil {
			t.Fatalf("CalculateGroupBalances() error: %v", err)
		}
		expectAmount(t, "alice net", balances[0].NetBalance, "30")
		expectAmount(t, "bob net", balances[1].NetBalance, "-30")
		expectAmount(t, "bob paid", balances[1].TotalPaid, "20")
		if len(debts) != 1 || !debts[0].Amount.Equal(d("30")) {
			t.Errorf("debts = %+v, want bob->alice 30", debts)
		}
	})

	t.Run("fully settled", func(t *testing.T) {
		settlements := []SettlementForBalance{{FromUserID: "bob", ToUserID: "alice", Amount: d("50")}}
		balances, debts, err := CalculateGroupBalances(members, expenses, settlements)
		if err != nil {
			t.Fatalf("CalculateGroupBalances() error: %v", err)
		}
		for _, bal := range balances {
			if !bal.NetBalance.IsZero() {
				t.Errorf("%s net = %s, want 0", bal.UserID, bal.NetBalance)
			}
		}
		if len(debts) != 0 {
			t.Errorf("debts = %+v, want none", debts)
		}
	})
}

func TestCalculateGroupBalancesIncludesIdleMembersAndFormerMembers(t *testing.T) {
	expenses := []ExpenseForBalance{{
		ID:      "lunch",
		PayerID: "zoe",
		Amount:  d("10"),
		Splits:  []Allocation{{UserID: "alice", Amount: d("10")}},
	}}

	balances, _, err := CalculateGroupBalances([]string{"alice", "bob"}, expenses, nil)
	if err != nil {
		t.Fatalf("CalculateGroupBalances() error: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("balances = %d, want 3", len(balances))
	}
	if balances[1].UserID != "bob" || !balances[1].NetBalance.IsZero() {
		t.Errorf("idle member balance = %+v", balances[1])
	}
	if balances[2].UserID != "zoe" {
		t.Errorf("former member should be listed last, got %s", balances[2].UserID)
	}
}

func TestCalculateGroupBalancesRejectsInconsistentSplits(t *testing.T) {
	expenses := []ExpenseForBalance{{
		ID:      "broken",
		PayerID: "alice",
		Amount:  d("10"),
		Splits:  []Allocation{{UserID: "bob", Amount: d("9.99")}},
	}}
	if _, _, err := CalculateGroupBalances([]string{"alice", "bob"}, expenses, nil); err == nil {
		t.Error("expected error for splits that do not add up")
	}
}

func TestSimplifyDebtsDeterministicTies(t *testing.T) {
	balances := []MemberBalance{
		{UserID: "b", NetBalance: d("-10")},
		{UserID: "a", NetBalance: d("-10")},
		{UserID: "c", NetBalance: d("20")},
	}
	debts := SimplifyDebts(balances)
	if len(debts) != 2 {
		t.Fatalf("debts = %d, want 2", len(debts))
	}
	if debts[0].From != "a" || debts[1].From != "b" {
		t.Errorf("tie order = %s, %s; want a, b", debts[0].From, debts[1].From)
	}
}
