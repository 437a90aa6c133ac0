package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/planwise/planwise/internal/planner"
)

const planColumns = `id, conversation_id, name, description, location, total_budget, currency, planned_date, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (planner.EventPlan, error) {
	var (
		p                               planner.EventPlan
		description, location, currency sql.NullString
		budget                          decimal.NullDecimal
		planned                         sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.ConversationID, &p.Name, &description, &location, &budget, &currency, &planned, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return planner.EventPlan{}, err
	}
	p.Description = description.String
	p.Location = location.String
	p.Currency = strings.TrimSpace(currency.String)
	p.TotalBudget = decimalPtr(budget)
	p.PlannedDate = timePtr(planned)
	return p, nil
}

// GetPlanByConversation returns the plan of a conversation, if one exists.
func (s *Store) GetPlanByConversation(ctx context.Context, conversationID string) (planner.EventPlan, bool, error) {
	p, err := scanPlan(s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM event_plans WHERE conversation_id=$1`, conversationID))
	if errors.Is(err, sql.ErrNoRows) {
		return planner.EventPlan{}, false, nil
	}
	if err != nil {
		return planner.EventPlan{}, false, err
	}
	return p, true, nil
}

func (s *Store) CreatePlan(ctx context.Context, p planner.EventPlan) (planner.EventPlan, error) {
	if p.Status == "" {
		p.Status = planner.StatusDraft
	}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO event_plans (conversation_id, name, description, location, total_budget, currency, planned_date, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, created_at, updated_at`,
		p.ConversationID, p.Name, nullableString(p.Description), nullableString(p.Location),
		nullableDecimal(p.TotalBudget), nullableString(p.Currency), nullableTime(p.PlannedDate), p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// UpdatePlan writes the plan's already merged fields.
func (s *Store) UpdatePlan(ctx context.Context, p planner.EventPlan) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE event_plans
SET name=$2, description=$3, location=$4, total_budget=$5, currency=$6, planned_date=$7, updated_at=NOW()
WHERE id=$1`,
		p.ID, p.Name, nullableString(p.Description), nullableString(p.Location),
		nullableDecimal(p.TotalBudget), nullableString(p.Currency), nullableTime(p.PlannedDate),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event plan %s not found", p.ID)
	}
	return nil
}

// GetPlanWithItems loads a plan and its items, newest items first.
func (s *Store) GetPlanWithItems(ctx context.Context, planID string) (planner.EventPlan, error) {
	p, err := scanPlan(s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM event_plans WHERE id=$1`, planID))
	if err != nil {
		return planner.EventPlan{}, err
	}
	items, err := s.ListBudgetItems(ctx, planID)
	if err != nil {
		return planner.EventPlan{}, err
	}
	p.Items = items
	return p, nil
}

func (s *Store) ListBudgetItems(ctx context.Context, planID string) ([]planner.BudgetItem, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, event_plan_id, title, category, estimated_cost, currency, quantity, unit, source_url, source_name, notes, is_confirmed, created_at
FROM budget_items WHERE event_plan_id=$1
ORDER BY created_at DESC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []planner.BudgetItem{}
	for rows.Next() {
		var (
			it                                                     planner.BudgetItem
			category, currency, unit, sourceURL, sourceName, notes sql.NullString
			cost                                                   decimal.NullDecimal
		)
		if err := rows.Scan(&it.ID, &it.EventPlanID, &it.Title, &category, &cost, &currency, &it.Quantity,
			&unit, &sourceURL, &sourceName, &notes, &it.Confirmed, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.Category = category.String
		it.EstimatedCost = decimalPtr(cost)
		it.Currency = strings.TrimSpace(currency.String)
		it.Unit = unit.String
		it.SourceURL = sourceURL.String
		it.SourceName = sourceName.String
		it.Notes = notes.String
		items = append(items, it)
	}
	return items, rows.Err()
}

const upsertBudgetItemSQL = `
INSERT INTO budget_items (event_plan_id, title, category, estimated_cost, currency, quantity, unit, source_url, source_name, notes, is_confirmed)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (event_plan_id, title, (COALESCE(source_url, ''))) DO UPDATE SET
  estimated_cost = COALESCE(EXCLUDED.estimated_cost, budget_items.estimated_cost),
  currency = EXCLUDED.currency,
  notes = COALESCE(EXCLUDED.notes, budget_items.notes),
  source_name = COALESCE(EXCLUDED.source_name, budget_items.source_name),
  updated_at = NOW()`

// UpsertBudgetItems merges items into a plan keyed by (title, source url) in a
// single transaction. An existing row keeps its cost, notes and source name
// when the incoming item has none.
func (s *Store) UpsertBudgetItems(ctx context.Context, planID string, items []planner.BudgetItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertBudgetItemSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		if _, err := stmt.ExecContext(ctx,
			planID, it.Title, nullableString(it.Category), nullableDecimal(it.EstimatedCost),
			nullableString(it.Currency), qty, nullableString(it.Unit), nullableString(it.SourceURL),
			nullableString(it.SourceName), nullableString(it.Notes), it.Confirmed,
		); err != nil {
			return 0, fmt.Errorf("upsert budget item %q: %w", it.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(items), nil
}
