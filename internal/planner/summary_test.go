package planner

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRenderSummaryNilPlan(t *testing.T) {
	if got := RenderSummary(nil, nil); got != NoPlanSummary {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestRenderSummaryFull(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	plan := &EventPlan{
		Name:        "Team Offsite",
		Description: "Two day retreat",
		Location:    "Austin",
		TotalBudget: decPtr("5000"),
		Currency:    "USD",
	}
	items := []BudgetItem{
		{Title: "Venue", EstimatedCost: decPtr("1200.5"), Currency: "USD", Confirmed: true, CreatedAt: base},
		{Title: "Catering", EstimatedCost: decPtr("300"), Currency: "EUR", CreatedAt: base.Add(time.Hour)},
		{Title: "Photographer", CreatedAt: base.Add(2 * time.Hour)},
	}

	want := strings.Join([]string{
		"Name: Team Offsite",
		"Description: Two day retreat",
		"Location: Austin",
		"Budget: USD 5000.00",
		"Budget Items:",
		"• Photographer",
		"• Catering - EUR 300.00",
		"• Venue - USD 1200.50 (confirmed)",
	}, "\n")
	if got := RenderSummary(plan, items); got != want {
		t.Fatalf("unexpected summary:\n%s\nwant:\n%s", got, want)
	}
	if items[0].Title != "Venue" {
		t.Fatalf("input items must not be reordered")
	}
}

func TestRenderSummaryIsDeterministic(t *testing.T) {
	plan := &EventPlan{Name: "Gala", TotalBudget: decPtr("100"), Currency: "GBP"}
	items := []BudgetItem{{Title: "Band", EstimatedCost: decPtr("40")}}
	if RenderSummary(plan, items) != RenderSummary(plan, items) {
		t.Fatalf("summary must be deterministic")
	}
}

func TestRenderSummaryWithoutItems(t *testing.T) {
	got := RenderSummary(&EventPlan{Name: "Picnic", Currency: "USD"}, nil)
	if strings.Contains(got, "Budget Items:") {
		t.Fatalf("unexpected items section in %q", got)
	}
	if strings.Contains(got, "Budget:") {
		t.Fatalf("budget line must be omitted when unset: %q", got)
	}
	if got != "Name: Picnic" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestRenderSummaryLimitsItems(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var items []BudgetItem
	for i := 0; i < 12; i++ {
		items = append(items, BudgetItem{Title: fmt.Sprintf("item-%02d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	got := RenderSummary(&EventPlan{Name: "Fair"}, items)
	if n := strings.Count(got, "• "); n != 8 {
		t.Fatalf("expected 8 items, got %d", n)
	}
	if !strings.Contains(got, "item-11") || strings.Contains(got, "item-03") {
		t.Fatalf("expected newest items only: %s", got)
	}
}

func TestPromptSummary(t *testing.T) {
	if got := PromptSummary(nil, nil); got != "" {
		t.Fatalf("expected empty summary for nil plan, got %q", got)
	}
	draft := NewPlan("c1", nil)
	if got := PromptSummary(&draft, nil); got != "" {
		t.Fatalf("expected empty summary for untouched draft, got %q", got)
	}
	if got := PromptSummary(&draft, []BudgetItem{{Title: "Cake"}}); got == "" {
		t.Fatalf("items count as plan details")
	}
	draft.Location = "Lisbon"
	if got := PromptSummary(&draft, nil); got != RenderSummary(&draft, nil) {
		t.Fatalf("expected rendered summary, got %q", got)
	}
}
