package session

import (
	"sort"
	"strings"

	"chitieu/internal/core"
)

// Derived views are pure functions of the raw state. Nothing here is
// cached or stored: every call recomputes from the live list.

// Filter returns the expenses matching both predicates: a trimmed
// case-insensitive substring search over item, category and purpose, and
// an exact category match. An empty query or empty category matches all.
func Filter(list []core.Expense, query, category string) []core.Expense {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]core.Expense, 0, len(list))
	for _, e := range list {
		if q != "" {
			if !strings.Contains(strings.ToLower(e.Item), q) &&
				!strings.Contains(strings.ToLower(e.Category), q) &&
				!strings.Contains(strings.ToLower(e.Purpose), q) {
				continue
			}
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	return out
}

// CategoryTotals sums amounts grouped by category, folding the empty
// category into the uncategorized bucket, sorted by sum descending. Ties
// keep first-encountered order.
func CategoryTotals(list []core.Expense) []core.CategoryAmount {
	sums := make(map[string]float64)
	var order []string
	for _, e := range list {
		cat := core.BucketCategory(e.Category)
		if _, seen := sums[cat]; !seen {
			order = append(order, cat)
		}
		sums[cat] += e.Amount
	}

	totals := make([]core.CategoryAmount, 0, len(order))
	for _, cat := range order {
		totals = append(totals, core.CategoryAmount{Name: cat, Amount: sums[cat]})
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount > totals[j].Amount
	})
	return totals
}

// DistinctCategories returns the non-empty categories present in list,
// sorted ascending. It deliberately takes the unfiltered list so filter
// options never shrink as a side effect of filtering.
func DistinctCategories(list []core.Expense) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, e := range list {
		if e.Category == "" {
			continue
		}
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		cats = append(cats, e.Category)
	}
	sort.Strings(cats)
	return cats
}

// SumAmounts totals the amounts of the given expenses.
func SumAmounts(list []core.Expense) float64 {
	var sum float64
	for _, e := range list {
		sum += e.Amount
	}
	return sum
}
