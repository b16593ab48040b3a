package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/sg_finance_bot/internal/model"
)

var (
	hundred   = decimal.NewFromInt(100)
	shareStep = decimal.New(1, -1)
)

// CategoryTotal is the spend of one category and its share of the total in percent.
type CategoryTotal struct {
	Category model.Category
	Amount   decimal.Decimal
	Share    decimal.Decimal
}

// Summary is the aggregated view of a ledger.
type Summary struct {
	// Categories holds only non-zero categories, in the fixed category order.
	Categories []CategoryTotal
	Total      decimal.Decimal
	Count      int
	// TopCategory is empty for an empty ledger.
	TopCategory model.Category
}

func (s Summary) Empty() bool {
	return s.Count == 0
}

// Summarize computes per-category totals, the grand total, percentage shares
// rounded to one decimal so that they add up to exactly 100, and the top
// category. The top category is the one
// with the strictly largest sum; ties go to the earlier category in the
// fixed order.
func Summarize(expenses []model.Expense) Summary {
	totals := categoryTotals(expenses)

	summary := Summary{Total: decimal.Zero, Count: len(expenses)}
	for _, c := range model.Categories() {
		summary.Total = summary.Total.Add(totals[c])
	}

	topAmount := decimal.Zero
	for _, c := range model.Categories() {
		amount := totals[c]
		if !amount.IsPositive() {
			continue
		}
		summary.Categories = append(summary.Categories, CategoryTotal{
			Category: c,
			Amount:   amount,
		})
		if amount.GreaterThan(topAmount) {
			topAmount = amount
			summary.TopCategory = c
		}
	}
	assignShares(summary.Categories, summary.Total)
	return summary
}

// assignShares uses the largest remainder method: every share is floored to
// one decimal and the missing tenths go to the largest remainders, earlier
// categories first on ties.
func assignShares(categories []CategoryTotal, total decimal.Decimal) {
	if len(categories) == 0 || !total.IsPositive() {
		return
	}

	remainders := make([]decimal.Decimal, len(categories))
	assigned := decimal.Zero
	for i := range categories {
		exact := categories[i].Amount.Mul(hundred).Div(total)
		categories[i].Share = exact.RoundFloor(1)
		remainders[i] = exact.Sub(categories[i].Share)
		assigned = assigned.Add(categories[i].Share)
	}

	order := make([]int, len(categories))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	steps := int(hundred.Sub(assigned).Div(shareStep).IntPart())
	for i := 0; i < steps && i < len(order); i++ {
		idx := order[i]
		categories[idx].Share = categories[idx].Share.Add(shareStep)
	}
}

// TopCategory returns the top spending category of a ledger.
func TopCategory(expenses []model.Expense) (model.Category, bool) {
	s := Summarize(expenses)
	return s.TopCategory, s.TopCategory != ""
}

func categoryTotals(expenses []model.Expense) map[model.Category]decimal.Decimal {
	totals := make(map[model.Category]decimal.Decimal)
	for _, c := range model.Categories() {
		totals[c] = decimal.Zero
	}
	for _, e := range expenses {
		if _, ok := totals[e.Category]; !ok {
			continue
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}
