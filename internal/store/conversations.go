package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Message roles as stored.
const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
	RoleSystem    = "SYSTEM"
	RoleTool      = "TOOL"
)

type Conversation struct {
	ID        string
	UserID    string
	Title     string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// PlanSnapshot is the slice of a plan shown in conversation listings.
type PlanSnapshot struct {
	ID          string
	Name        string
	TotalBudget *decimal.Decimal
	Currency    string
	Status      string
}

// ConversationListing is a conversation with its plan snapshot, if any.
type ConversationListing struct {
	Conversation
	EventPlan *PlanSnapshot
}

func (s *Store) CreateConversation(ctx context.Context, userID, title string) (Conversation, error) {
	c := Conversation{UserID: userID, Title: title}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO conversations (user_id, title) VALUES ($1,$2)
RETURNING id, summary, created_at, updated_at`, userID, title).Scan(&c.ID, &c.Summary, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// GetConversation loads a conversation owned by userID. Unknown ids and ids
// owned by someone else both return ok=false.
func (s *Store) GetConversation(ctx context.Context, id, userID string) (Conversation, bool, error) {
	var c Conversation
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, title, summary, created_at, updated_at
FROM conversations WHERE id=$1 AND user_id=$2`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, err
	}
	return c, true, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]ConversationListing, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.user_id, c.title, c.summary, c.created_at, c.updated_at,
       p.id, p.name, p.total_budget, p.currency, p.status
FROM conversations c
LEFT JOIN event_plans p ON p.conversation_id = c.id
WHERE c.user_id=$1
ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationListing
	for rows.Next() {
		var (
			l                              ConversationListing
			planID, name, currency, status sql.NullString
			budget                         decimal.NullDecimal
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title, &l.Summary, &l.CreatedAt, &l.UpdatedAt,
			&planID, &name, &budget, &currency, &status); err != nil {
			return nil, err
		}
		if planID.Valid {
			l.EventPlan = &PlanSnapshot{
				ID:          planID.String,
				Name:        name.String,
				TotalBudget: decimalPtr(budget),
				Currency:    currency.String,
				Status:      status.String,
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AppendMessage adds a message to the end of a conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) (Message, error) {
	m := Message{ConversationID: conversationID, Role: role, Content: content}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO messages (conversation_id, role, content) VALUES ($1,$2,$3)
RETURNING id, created_at`, conversationID, role, content).Scan(&m.ID, &m.CreatedAt)
	return m, err
}

// ListMessages returns the whole conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	return s.queryMessages(ctx, `
SELECT id, conversation_id, role, content, created_at
FROM messages WHERE conversation_id=$1
ORDER BY seq ASC`, conversationID)
}

// RecentMessages returns the latest limit messages in chronological order.
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return s.queryMessages(ctx, `
SELECT id, conversation_id, role, content, created_at FROM (
  SELECT id, conversation_id, role, content, created_at, seq
  FROM messages WHERE conversation_id=$1
  ORDER BY seq DESC
  LIMIT $2
) recent
ORDER BY seq ASC`, conversationID, limit)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...interface{}) ([]Message, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateConversationSummary stores the summary and fills the title only when
// it is still empty.
func (s *Store) UpdateConversationSummary(ctx context.Context, id, summary, title string) error {
	_, err := s.DB.ExecContext(ctx, `
UPDATE conversations
SET summary=$2,
    title=CASE WHEN title = '' THEN $3 ELSE title END,
    updated_at=NOW()
WHERE id=$1`, id, summary, title)
	return err
}
