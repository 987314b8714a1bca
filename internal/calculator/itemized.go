package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativeShare is returned when rounding would leave someone owing a
// negative amount.
var ErrNegativeShare = errors.New("itemized split produced a negative share")

var cent = decimal.New(1, -2)

// Item represents a single line item on a bill.
type Item struct {
	Description string
	Amount      decimal.Decimal
	AssignedTo  []string
}

// PersonItem represents an item's share for one person.
type PersonItem struct {
	Description string
	Amount      decimal.Decimal
}

// PersonSplit represents the calculated split for one person.
type PersonSplit struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Items    []PersonItem
}

// CalculateItemizedSplit computes how much each person owes for a bill with
// line items, including a proportional share of tax and fees:
//
//	person_total = person_subtotal × (1 + (total_tax / bill_subtotal))
//
// With no items the bill is split equally. Totals are rounded to cents and
// any rounding difference is spread one cent at a time, in participant order,
// over the participants with a non-zero subtotal so the totals add up to
// billTotal.
func CalculateItemizedSplit(items []Item, billTotal, billSubtotal decimal.Decimal, participants []string) (map[string]*PersonSplit, error) {
	if billSubtotal.IsZero() {
		return nil, errors.New("subtotal cannot be zero")
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	tax := billTotal.Sub(billSubtotal)
	splits := make(map[string]*PersonSplit, len(participants))
	for _, p := range participants {
		splits[p] = &PersonSplit{}
	}

	if len(items) == 0 {
		n := decimal.NewFromInt(int64(len(participants)))
		for _, split := range splits {
			split.Subtotal = billSubtotal.Div(n)
			split.Tax = tax.Div(n)
		}
	} else {
		for _, item := range items {
			if len(item.AssignedTo) == 0 {
				continue
			}
			perPerson := item.Amount.Div(decimal.NewFromInt(int64(len(item.AssignedTo))))
			for _, person := range item.AssignedTo {
				if split, ok := splits[person]; ok {
					split.Subtotal = split.Subtotal.Add(perPerson)
					split.Items = append(split.Items, PersonItem{
						Description: item.Description,
						Amount:      perPerson.Round(2),
					})
				}
			}
		}
		ratio := tax.Div(billSubtotal)
		for _, split := range splits {
			split.Tax = split.Subtotal.Mul(ratio)
		}
	}

	assigned := decimal.Zero
	for _, p := range participants {
		split := splits[p]
		split.Subtotal = split.Subtotal.Round(2)
		split.Tax = split.Tax.Round(2)
		split.Total = split.Subtotal.Add(split.Tax)
		assigned = assigned.Add(split.Total)
	}

	// Only fix up the rounding when every item was assigned; otherwise the
	// gap is real money nobody claimed.
	if diff := billTotal.Round(2).Sub(assigned); !diff.IsZero() && diff.Abs().LessThan(decimal.New(int64(len(participants)), -2)) {
		spreadRounding(splits, participants, diff, !tax.IsZero())
	}

	for _, p := range participants {
		split := splits[p]
		if split.Total.IsNegative() || split.Subtotal.IsNegative() || split.Tax.IsNegative() {
			return nil, ErrNegativeShare
		}
	}

	return splits, nil
}

// spreadRounding hands out diff in cents to the participants with a positive
// subtotal, cycling in participant order. Cents land on the tax when the bill
// has tax, otherwise on the subtotal.
func spreadRounding(splits map[string]*PersonSplit, participants []string, diff decimal.Decimal, onTax bool) {
	var eligible []*PersonSplit
	for _, p := range participants {
		if splits[p].Subtotal.IsPositive() {
			eligible = append(eligible, splits[p])
		}
	}
	if len(eligible) == 0 {
		return
	}

	step := cent
	if diff.IsNegative() {
		step = cent.Neg()
	}
	cents := int(diff.Abs().Div(cent).IntPart())
	for i := 0; i < cents; i++ {
		split := eligible[i%len(eligible)]
		if onTax {
			split.Tax = split.Tax.Add(step)
		} else {
			split.Subtotal = split.Subtotal.Add(step)
		}
		split.Total = split.Total.Add(step)
	}
}
