package server

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwise/planwise/internal/chat"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/pricing"
	"github.com/planwise/planwise/internal/store"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// MeResponse returns the current authenticated user.
type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// PlanSnapshotResponse is the plan excerpt shown next to a conversation.
type PlanSnapshotResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	TotalBudget *decimal.Decimal `json:"total_budget"`
	Currency    string           `json:"currency"`
	Status      string           `json:"status"`
}

// ConversationResponse is one row of the conversation list.
type ConversationResponse struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Summary   string                `json:"summary"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	EventPlan *PlanSnapshotResponse `json:"event_plan"`
}

// MessageResponse is a stored chat message.
type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationBody is a conversation with its messages in order.
type ConversationBody struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []MessageResponse `json:"messages"`
}

// ConversationDetailResponse is returned by GET /api/conversations/:id.
type ConversationDetailResponse struct {
	Conversation ConversationBody   `json:"conversation"`
	EventPlan    *planner.EventPlan `json:"event_plan"`
}

// ChatMessageResponse is returned after a turn.
type ChatMessageResponse struct {
	Reply          string            `json:"reply"`
	At             time.Time         `json:"at"`
	ConversationID string            `json:"conversation_id"`
	EventPlan      planner.EventPlan `json:"event_plan"`
	Summary        string            `json:"summary"`
	Pricing        []pricing.Result  `json:"pricing"`
	Warnings       []string          `json:"warnings,omitempty"`
}

func toConversationResponse(l store.ConversationListing) ConversationResponse {
	out := ConversationResponse{
		ID:        l.ID,
		Title:     l.Title,
		Summary:   l.Summary,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if p := l.EventPlan; p != nil {
		out.EventPlan = &PlanSnapshotResponse{ID: p.ID, Name: p.Name, TotalBudget: p.TotalBudget, Currency: p.Currency, Status: p.Status}
	}
	return out
}

func toDetailResponse(d chat.ConversationDetail) ConversationDetailResponse {
	msgs := make([]MessageResponse, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, MessageResponse{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return ConversationDetailResponse{
		Conversation: ConversationBody{
			ID:        d.Conversation.ID,
			Title:     d.Conversation.Title,
			Summary:   d.Conversation.Summary,
			CreatedAt: d.Conversation.CreatedAt,
			UpdatedAt: d.Conversation.UpdatedAt,
			Messages:  msgs,
		},
		EventPlan: d.Plan,
	}
}

func toChatResponse(r chat.TurnResult) ChatMessageResponse {
	results := r.Pricing
	if results == nil {
		results = []pricing.Result{}
	}
	return ChatMessageResponse{
		Reply:          r.Reply,
		At:             r.At,
		ConversationID: r.ConversationID,
		EventPlan:      r.Plan,
		Summary:        r.Summary,
		Pricing:        results,
		Warnings:       r.Warnings,
	}
}
