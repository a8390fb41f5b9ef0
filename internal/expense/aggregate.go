package expense

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Group is one bucket of a group-by-sum.
type Group[K comparable] struct {
	Key   K
	Total decimal.Decimal
}

// GroupSum buckets items by key and sums amount within each bucket. Keys
// with no items never appear. less orders the result.
func GroupSum[T any, K comparable](items []T, key func(T) K, amount func(T) decimal.Decimal, less func(a, b Group[K]) bool) []Group[K] {
	index := make(map[K]int)
	groups := make([]Group[K], 0)
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K]{Key: k, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(amount(item))
	}
	sort.SliceStable(groups, func(i, j int) bool { return less(groups[i], groups[j]) })
	return groups
}

func Sum(expenses []*Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

func expenseAmount(e *Expense) decimal.Decimal { return e.Amount }

// SummarizeByCategory orders by total descending, ties broken by name.
func SummarizeByCategory(expenses []*Expense) []CategoryTotal {
	groups := GroupSum(expenses,
		func(e *Expense) string { return e.Category },
		expenseAmount,
		func(a, b Group[string]) bool {
			if c := a.Total.Cmp(b.Total); c != 0 {
				return c > 0
			}
			return a.Key < b.Key
		})

	out := make([]CategoryTotal, len(groups))
	for i, g := range groups {
		out[i] = CategoryTotal{Category: g.Key, Total: g.Total}
	}
	return out
}

// SummarizeByMonth keeps only expenses dated within year and orders by month.
func SummarizeByMonth(expenses []*Expense, year int) []MonthTotal {
	start, end := YearRange(year)
	inYear := make([]*Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.Date.Before(start) && e.Date.Before(end) {
			inYear = append(inYear, e)
		}
	}

	groups := GroupSum(inYear,
		func(e *Expense) int { return int(e.Date.UTC().Month()) },
		expenseAmount,
		func(a, b Group[int]) bool { return a.Key < b.Key })

	out := make([]MonthTotal, len(groups))
	for i, g := range groups {
		out[i] = MonthTotal{Month: g.Key, Total: g.Total}
	}
	return out
}

// SummarizeByYearMonth buckets by "YYYY-MM" in chronological order.
func SummarizeByYearMonth(expenses []*Expense) []Group[string] {
	return GroupSum(expenses,
		func(e *Expense) string { return e.Date.UTC().Format("2006-01") },
		expenseAmount,
		func(a, b Group[string]) bool { return a.Key < b.Key })
}
