package planner

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPlanName is used when a plan is created without a name hint.
	DefaultPlanName = "Untitled Event"
	// DefaultCurrency applies to plans and items that carry no currency.
	DefaultCurrency = "USD"
	// DefaultTitle is the conversation title when neither hint nor message yields one.
	DefaultTitle = "New Event Plan"
	// StatusDraft is the initial plan status.
	StatusDraft = "draft"

	titleRuneLimit = 40
)

// MaxAmount is the first amount that no longer fits a NUMERIC(12,2) column.
var MaxAmount = decimal.New(1, 10)

// AmountInRange reports whether d can be stored as a plan or item amount.
func AmountInRange(d decimal.Decimal) bool {
	return d.Sign() >= 0 && d.LessThan(MaxAmount)
}

// EventPlan is the structured event-planning record attached to a conversation.
type EventPlan struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Location       string           `json:"location,omitempty"`
	TotalBudget    *decimal.Decimal `json:"total_budget,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	PlannedDate    *time.Time       `json:"planned_date,omitempty"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Items          []BudgetItem     `json:"items"`
}

// BudgetItem is one line of a plan's budget. Within a plan, (Title, SourceURL)
// identifies an item for merging.
type BudgetItem struct {
	ID            string           `json:"id"`
	EventPlanID   string           `json:"event_plan_id"`
	Title         string           `json:"title"`
	Category      string           `json:"category,omitempty"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	Quantity      int              `json:"quantity"`
	Unit          string           `json:"unit,omitempty"`
	SourceURL     string           `json:"source_url,omitempty"`
	SourceName    string           `json:"source_name,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Confirmed     bool             `json:"is_confirmed"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Hints carries optional structured event details supplied with a message.
// A nil field means "no new value".
type Hints struct {
	Name        *string
	Description *string
	Location    *string
	TotalBudget *decimal.Decimal
	Currency    *string
	PlannedDate *time.Time
}

// Empty reports whether no hint field is set.
func (h *Hints) Empty() bool {
	return h == nil || (h.Name == nil && h.Description == nil && h.Location == nil &&
		h.TotalBudget == nil && h.Currency == nil && h.PlannedDate == nil)
}

// NewPlan builds the initial plan for a conversation from optional hints.
func NewPlan(conversationID string, hints *Hints) EventPlan {
	plan := EventPlan{
		ConversationID: conversationID,
		Name:           DefaultPlanName,
		Currency:       DefaultCurrency,
		Status:         StatusDraft,
	}
	return ApplyHints(plan, hints)
}

// Clone produces a deep copy of the plan.
func (p EventPlan) Clone() EventPlan {
	clone := p
	if p.TotalBudget != nil {
		v := *p.TotalBudget
		clone.TotalBudget = &v
	}
	if p.PlannedDate != nil {
		v := *p.PlannedDate
		clone.PlannedDate = &v
	}
	if p.Items != nil {
		clone.Items = make([]BudgetItem, len(p.Items))
		copy(clone.Items, p.Items)
	}
	return clone
}

// ApplyHints overlays every non-nil hint onto a copy of plan. Nil hints and
// blank text hints never erase an existing value.
func ApplyHints(base EventPlan, hints *Hints) EventPlan {
	plan := base.Clone()
	if hints == nil {
		return plan
	}
	if text, ok := nonBlank(hints.Name); ok {
		plan.Name = text
	}
	if text, ok := nonBlank(hints.Description); ok {
		plan.Description = text
	}
	if text, ok := nonBlank(hints.Location); ok {
		plan.Location = text
	}
	if hints.TotalBudget != nil {
		v := *hints.TotalBudget
		plan.TotalBudget = &v
	}
	if code, ok := nonBlank(hints.Currency); ok {
		plan.Currency = strings.ToUpper(code)
	}
	if hints.PlannedDate != nil {
		v := *hints.PlannedDate
		plan.PlannedDate = &v
	}
	return plan
}

func nonBlank(s *string) (string, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", false
	}
	return *s, true
}

// DeriveTitle picks a conversation title: the hinted event name, else the
// first 40 characters of the message (with an ellipsis when cut), else
// DefaultTitle.
func DeriveTitle(message string, hints *Hints) string {
	if hints != nil && hints.Name != nil && strings.TrimSpace(*hints.Name) != "" {
		return *hints.Name
	}
	runes := []rune(strings.TrimSpace(message))
	if len(runes) == 0 {
		return DefaultTitle
	}
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit]) + "…"
	}
	return string(runes)
}
