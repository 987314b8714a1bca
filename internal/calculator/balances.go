package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ExpenseForBalance represents a group expense with the minimal information
// needed for balance calculations.
type ExpenseForBalance struct {
	ID      string
	PayerID string
	Amount  decimal.Decimal
	Splits  []Allocation
}

// SettlementForBalance represents a settlement with the minimal information needed for balance calculations.
type SettlementForBalance struct {
	FromUserID string // Who paid (debtor settling up)
	ToUserID   string // Who received (creditor being paid)
	Amount     decimal.Decimal
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	UserID     string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Total paid across expenses and settlements sent
	TotalOwed  decimal.Decimal // Total owed across splits and settlements received
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes balances across a group's expenses and
// settlements, returning one balance per member and a simplified list of
// payments that would settle the group.
//
// Algorithm:
//   - For each expense: payer contributed +amount, each split owes its amount
//   - For each settlement: sender counts as having paid, receiver as owing
//   - net_balance = total_paid - total_owed
//   - Debts: greedy matching of largest debtor with largest creditor
//
// Every user in members appears in the result, in that order, followed by
// any other user referenced by an expense or settlement (sorted by ID).
func CalculateGroupBalances(members []string, expenses []ExpenseForBalance, settlements []SettlementForBalance) ([]MemberBalance, []DebtEdge, error) {
	balances := make(map[string]*MemberBalance)
	order := make([]string, 0, len(members))
	track := func(userID string) *MemberBalance {
		bal, ok := balances[userID]
		if !ok {
			bal = &MemberBalance{UserID: userID}
			balances[userID] = bal
			order = append(order, userID)
		}
		return bal
	}
	for _, m := range members {
		track(m)
	}
	known := len(order)

	for _, exp := range expenses {
		if exp.PayerID == "" {
			return nil, nil, fmt.Errorf("expense %s has no payer", exp.ID)
		}
		owed := decimal.Zero
		for _, s := range exp.Splits {
			owed = owed.Add(s.Amount)
		}
		if !owed.Equal(exp.Amount) {
			return nil, nil, fmt.Errorf("expense %s splits add up to %s, want %s", exp.ID, owed, exp.Amount)
		}

		payer := track(exp.PayerID)
		payer.TotalPaid = payer.TotalPaid.Add(exp.Amount)
		for _, s := range exp.Splits {
			bal := track(s.UserID)
			bal.TotalOwed = bal.TotalOwed.Add(s.Amount)
		}
	}

	for _, s := range settlements {
		from := track(s.FromUserID)
		from.TotalPaid = from.TotalPaid.Add(s.Amount)
		to := track(s.ToUserID)
		to.TotalOwed = to.TotalOwed.Add(s.Amount)
	}

	sort.Strings(order[known:])

	memberBalances := make([]MemberBalance, 0, len(order))
	for _, id := range order {
		bal := balances[id]
		bal.NetBalance = bal.TotalPaid.Sub(bal.TotalOwed)
		memberBalances = append(memberBalances, *bal)
	}

	return memberBalances, SimplifyDebts(memberBalances), nil
}

// SimplifyDebts turns net balances into payments from debtors to creditors.
// Largest debts are matched with largest credits; ties break on user ID so
// the result is deterministic.
func SimplifyDebts(balances []MemberBalance) []DebtEdge {
	type party struct {
		id     string
		amount decimal.Decimal
	}
	var debtors, creditors []party
	for _, bal := range balances {
		switch {
		case bal.NetBalance.IsPositive():
			creditors = append(creditors, party{bal.UserID, bal.NetBalance})
		case bal.NetBalance.IsNegative():
			debtors = append(debtors, party{bal.UserID, bal.NetBalance.Neg()})
		}
	}
	byAmount := func(ps []party) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.Slice(debtors, byAmount(debtors))
	sort.Slice(creditors, byAmount(creditors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			edges = append(edges, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		if !debtors[i].amount.IsPositive() {
			i++
		}
		if !creditors[j].amount.IsPositive() {
			j++
		}
	}
	return edges
}
