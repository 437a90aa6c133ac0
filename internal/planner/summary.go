package planner

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// NoPlanSummary is rendered when a conversation has no plan.
	NoPlanSummary = "No event plan captured yet."

	summaryItemLimit = 8
)

// RenderSummary projects a plan and its items into the text stored as the
// conversation summary. Output depends only on the arguments.
func RenderSummary(plan *EventPlan, items []BudgetItem) string {
	if plan == nil {
		return NoPlanSummary
	}

	lines := []string{"Name: " + plan.Name}
	if plan.Description != "" {
		lines = append(lines, "Description: "+plan.Description)
	}
	if plan.Location != "" {
		lines = append(lines, "Location: "+plan.Location)
	}
	if isSet(plan.TotalBudget) {
		lines = append(lines, "Budget: "+currencyOrDefault(plan.Currency)+" "+plan.TotalBudget.StringFixed(2))
	}

	if len(items) > 0 {
		var b strings.Builder
		b.WriteString("Budget Items:")
		for _, item := range newestFirst(items, summaryItemLimit) {
			b.WriteString("\n• ")
			b.WriteString(item.Title)
			if isSet(item.EstimatedCost) {
				b.WriteString(" - " + currencyOrDefault(item.Currency) + " " + item.EstimatedCost.StringFixed(2))
			}
			if item.Confirmed {
				b.WriteString(" (confirmed)")
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// PromptSummary is RenderSummary for plans that carry details. A nil plan or
// an untouched draft (default name, no description, location, budget or
// items) yields "".
func PromptSummary(plan *EventPlan, items []BudgetItem) string {
	if plan == nil || !hasDetails(plan, items) {
		return ""
	}
	return RenderSummary(plan, items)
}

func hasDetails(plan *EventPlan, items []BudgetItem) bool {
	return len(items) > 0 ||
		(plan.Name != "" && plan.Name != DefaultPlanName) ||
		plan.Description != "" ||
		plan.Location != "" ||
		isSet(plan.TotalBudget)
}

// newestFirst returns up to limit items ordered by creation time, newest
// first, without touching the caller's slice.
func newestFirst(items []BudgetItem, limit int) []BudgetItem {
	sorted := make([]BudgetItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// isSet treats zero amounts like missing ones.
func isSet(v *decimal.Decimal) bool {
	return v != nil && !v.IsZero()
}

func currencyOrDefault(c string) string {
	if c == "" {
		return DefaultCurrency
	}
	return c
}
