package budget

import (
	"strings"

	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/pricing"
)

// pricingKeywords trigger a live pricing lookup when any appears in a message.
var pricingKeywords = []string{"price", "budget", "cost", "estimate", "quotes"}

// ShouldFetchPricing reports whether message asks about money. Matching is
// case-insensitive and substring based.
func ShouldFetchPricing(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range pricingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PricingQuery joins the plan name, plan location and message, skipping blanks.
func PricingQuery(plan planner.EventPlan, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{plan.Name, plan.Location, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// PricingParams builds the lookup request for a plan, or ok=false when the
// message does not ask for pricing or there is nothing to search for.
func PricingParams(plan *planner.EventPlan, message string, limit int) (pricing.Params, bool) {
	if plan == nil || !ShouldFetchPricing(message) {
		return pricing.Params{}, false
	}
	query := PricingQuery(*plan, message)
	if query == "" {
		return pricing.Params{}, false
	}
	return pricing.Params{
		Query:    query,
		Location: plan.Location,
		Currency: plan.Currency,
		Limit:    limit,
	}, true
}

// StageItems converts pricing results into unconfirmed budget items for plan.
// Results without a title are skipped.
func StageItems(plan planner.EventPlan, results []pricing.Result) []planner.BudgetItem {
	items := make([]planner.BudgetItem, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		item := planner.BudgetItem{
			EventPlanID: plan.ID,
			Title:       title,
			Currency:    firstNonEmpty(currencyCode(r.Currency), plan.Currency, planner.DefaultCurrency),
			Quantity:    1,
			SourceURL:   r.SourceURL,
			SourceName:  r.Source,
			Notes:       r.PriceText,
		}
		if r.Price != nil && planner.AmountInRange(*r.Price) {
			v := r.Price.Round(2)
			item.EstimatedCost = &v
		}
		items = append(items, item)
	}
	return items
}

// FormatPricingLines renders one "title – price (url)" line per result.
func FormatPricingLines(results []pricing.Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		line := r.Title
		if r.PriceText != "" {
			line += " – " + r.PriceText
		}
		if r.SourceURL != "" {
			line += " (" + r.SourceURL + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// currencyCode returns c when it is a three letter code, else "".
func currencyCode(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if len(c) != 3 {
		return ""
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
