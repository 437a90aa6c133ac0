package chat

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/planwise/planwise/internal/budget"
	"github.com/planwise/planwise/internal/completion"
	"github.com/planwise/planwise/internal/logger"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/pricing"
	"github.com/planwise/planwise/internal/runtime"
	"github.com/planwise/planwise/internal/store"
)

var chatTracer = otel.Tracer("planwise/internal/chat")

// Store is the persistence the chat service needs.
type Store interface {
	CreateConversation(ctx context.Context, userID, title string) (store.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (store.Conversation, bool, error)
	ListConversations(ctx context.Context, userID string) ([]store.ConversationListing, error)
	AppendMessage(ctx context.Context, conversationID, role, content string) (store.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]store.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]store.Message, error)
	UpdateConversationSummary(ctx context.Context, id, summary, title string) error

	GetPlanByConversation(ctx context.Context, conversationID string) (planner.EventPlan, bool, error)
	CreatePlan(ctx context.Context, p planner.EventPlan) (planner.EventPlan, error)
	UpdatePlan(ctx context.Context, p planner.EventPlan) error
	GetPlanWithItems(ctx context.Context, planID string) (planner.EventPlan, error)
	UpsertBudgetItems(ctx context.Context, planID string, items []planner.BudgetItem) (int, error)
}

// Options tunes turn handling.
type Options struct {
	HistoryLimit int
	PricingLimit int
	LockTTL      time.Duration
	Model        string
}

// Deps are the collaborators of a Service. Store, Pricing and Completion are
// required.
type Deps struct {
	Store      Store
	Pricing    pricing.Lookup
	Completion completion.Provider
	Locker     Locker
	Metrics    *runtime.Metrics
	Logger     *logger.Logger
}

// Service runs chat turns and serves conversation reads.
type Service struct {
	store    Store
	pricing  pricing.Lookup
	llm      completion.Provider
	locker   Locker
	metrics  *runtime.Metrics
	log      *logger.Logger
	opts     Options
	validate *validator.Validate
}

func NewService(deps Deps, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.PricingLimit <= 0 {
		opts.PricingLimit = pricing.DefaultLimit
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	s := &Service{
		store:    deps.Store,
		pricing:  deps.Pricing,
		llm:      deps.Completion,
		locker:   deps.Locker,
		metrics:  deps.Metrics,
		log:      deps.Logger,
		opts:     opts,
		validate: newValidator(),
	}
	if s.locker == nil {
		s.locker = NoopLocker{}
	}
	if s.metrics == nil {
		s.metrics = runtime.NewMetrics(nil)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// TurnResult is what a caller needs to reconcile its view after a turn.
type TurnResult struct {
	Reply          string
	At             time.Time
	ConversationID string
	Plan           planner.EventPlan
	Summary        string
	Pricing        []pricing.Result
	Warnings       []string
}

// HandleTurn records a user message, refreshes pricing when asked, obtains an
// assistant reply and updates the conversation summary.
func (s *Service) HandleTurn(ctx context.Context, userID string, in TurnInput) (res TurnResult, err error) {
	start := time.Now()
	ctx, span := chatTracer.Start(ctx, "chat.HandleTurn")
	defer func() {
		s.observe(start, err)
		endSpan(span, err)
	}()

	if err := s.validateTurn(in); err != nil {
		return TurnResult{}, err
	}
	hints := in.Event.Hints()
	log := s.log.With("user_id", userID)

	conv, err := s.conversation(ctx, userID, in, hints)
	if err != nil {
		return TurnResult{}, err
	}
	if in.ConversationID != "" {
		release := s.lock(ctx, conv.ID, log)
		defer release()
	}
	plan, err := s.plan(ctx, conv.ID, hints)
	if err != nil {
		return TurnResult{}, err
	}
	log = log.With("conversation_id", conv.ID)
	span.SetAttributes(attribute.String("conversation_id", conv.ID), attribute.String("plan_id", plan.ID))

	if _, err := s.store.AppendMessage(ctx, conv.ID, store.RoleUser, in.Message); err != nil {
		return TurnResult{}, persistence("append user message", err)
	}

	current, err := s.store.GetPlanWithItems(ctx, plan.ID)
	if err != nil {
		return TurnResult{}, persistence("load plan", err)
	}
	promptSummary := planner.PromptSummary(&current, current.Items)

	results, warnings, err := s.refreshPricing(ctx, current, in.Message, log)
	if err != nil {
		return TurnResult{}, err
	}

	history, err := s.store.RecentMessages(ctx, conv.ID, s.opts.HistoryLimit)
	if err != nil {
		return TurnResult{}, persistence("load history", err)
	}

	llmCtx, llmSpan := chatTracer.Start(completion.WithReferer(ctx, in.Referer), "completion.Complete")
	reply := s.llm.Complete(llmCtx, completion.Request{
		Model:    s.opts.Model,
		Messages: BuildMessages(SystemPrompt(promptSummary, results), history),
	})
	llmSpan.SetAttributes(attribute.String("status", string(reply.Status)), attribute.Int("history", len(history)))
	llmSpan.End()
	if reply.Status != completion.StatusOK {
		s.metrics.Degraded.WithLabelValues("completion").Inc()
		log.Warn("completion degraded, using fallback reply", "reason", reply.Reason)
	}

	assistant, err := s.store.AppendMessage(ctx, conv.ID, store.RoleAssistant, reply.TextOrFallback())
	if err != nil {
		return TurnResult{}, persistence("append assistant message", err)
	}

	refreshed, err := s.store.GetPlanWithItems(ctx, plan.ID)
	if err != nil {
		return TurnResult{}, persistence("reload plan", err)
	}
	summary := planner.RenderSummary(&refreshed, refreshed.Items)
	if err := s.store.UpdateConversationSummary(ctx, conv.ID, summary, planner.DeriveTitle(in.Message, hints)); err != nil {
		return TurnResult{}, persistence("update summary", err)
	}

	log.Info("turn handled", "pricing_results", len(results), "completion", string(reply.Status))
	return TurnResult{
		Reply:          assistant.Content,
		At:             assistant.CreatedAt,
		ConversationID: conv.ID,
		Plan:           refreshed,
		Summary:        summary,
		Pricing:        results,
		Warnings:       warnings,
	}, nil
}

// conversation loads the caller's conversation or starts a new one. A
// conversation owned by someone else is reported as ErrNotFound.
func (s *Service) conversation(ctx context.Context, userID string, in TurnInput, hints *planner.Hints) (store.Conversation, error) {
	if in.ConversationID == "" {
		created, err := s.store.CreateConversation(ctx, userID, planner.DeriveTitle(in.Message, hints))
		if err != nil {
			return store.Conversation{}, persistence("create conversation", err)
		}
		return created, nil
	}
	found, ok, err := s.store.GetConversation(ctx, in.ConversationID, userID)
	if err != nil {
		return store.Conversation{}, persistence("load conversation", err)
	}
	if !ok {
		return store.Conversation{}, ErrNotFound
	}
	return found, nil
}

// plan finds or creates the conversation's plan, merging hints.
func (s *Service) plan(ctx context.Context, conversationID string, hints *planner.Hints) (planner.EventPlan, error) {
	plan, ok, err := s.store.GetPlanByConversation(ctx, conversationID)
	if err != nil {
		return planner.EventPlan{}, persistence("load plan", err)
	}
	if !ok {
		plan, err = s.store.CreatePlan(ctx, planner.NewPlan(conversationID, hints))
		if err != nil {
			return planner.EventPlan{}, persistence("create plan", err)
		}
		return plan, nil
	}
	if !hints.Empty() {
		plan = planner.ApplyHints(plan, hints)
		if err := s.store.UpdatePlan(ctx, plan); err != nil {
			return planner.EventPlan{}, persistence("update plan", err)
		}
	}
	return plan, nil
}

// refreshPricing runs the lookup when the message asks for it and merges the
// results into the plan. Provider trouble only produces warnings.
func (s *Service) refreshPricing(ctx context.Context, plan planner.EventPlan, message string, log *logger.Logger) ([]pricing.Result, []string, error) {
	params, ok := budget.PricingParams(&plan, message, s.opts.PricingLimit)
	if !ok {
		return []pricing.Result{}, nil, nil
	}
	ctx, span := chatTracer.Start(ctx, "pricing.Search")
	resp := s.pricing.Search(ctx, params)
	span.SetAttributes(
		attribute.String("provider", resp.Provider),
		attribute.String("status", string(resp.Status)),
		attribute.Int("results", len(resp.Results)),
	)
	span.End()
	if resp.Degraded() {
		s.metrics.Degraded.WithLabelValues("pricing").Inc()
		log.Warn("pricing degraded", "provider", resp.Provider, "warnings", resp.Warnings)
	}
	results := resp.Results
	if results == nil {
		results = []pricing.Result{}
	}
	staged := budget.StageItems(plan, results)
	n, err := s.store.UpsertBudgetItems(ctx, plan.ID, staged)
	if err != nil {
		return nil, nil, persistence("upsert budget items", err)
	}
	s.metrics.ItemsUpserted.Add(float64(n))
	return results, resp.Warnings, nil
}

func (s *Service) lock(ctx context.Context, conversationID string, log *logger.Logger) func() {
	release, err := s.locker.Acquire(ctx, conversationID, s.opts.LockTTL)
	if err != nil {
		log.Warn("conversation lock not acquired, continuing", "error", err)
		return func() {}
	}
	return release
}

func (s *Service) observe(start time.Time, err error) {
	s.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	s.metrics.Turns.WithLabelValues(outcome(err)).Inc()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
	}
	span.End()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// ConversationDetail is a conversation with its full history and plan.
type ConversationDetail struct {
	Conversation store.Conversation
	Messages     []store.Message
	Plan         *planner.EventPlan
}

func (s *Service) ListConversations(ctx context.Context, userID string) ([]store.ConversationListing, error) {
	out, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, persistence("list conversations", err)
	}
	return out, nil
}

// GetConversation returns a conversation owned by userID with messages in
// chronological order and plan items newest first.
func (s *Service) GetConversation(ctx context.Context, userID, id string) (ConversationDetail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ConversationDetail{}, &ValidationError{Field: "conversation_id", Message: "must be a valid id"}
	}
	conv, ok, err := s.store.GetConversation(ctx, id, userID)
	if err != nil {
		return ConversationDetail{}, persistence("load conversation", err)
	}
	if !ok {
		return ConversationDetail{}, ErrNotFound
	}
	msgs, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return ConversationDetail{}, persistence("list messages", err)
	}
	detail := ConversationDetail{Conversation: conv, Messages: msgs}
	plan, ok, err := s.store.GetPlanByConversation(ctx, conv.ID)
	if err != nil {
		return ConversationDetail{}, persistence("load plan", err)
	}
	if ok {
		full, err := s.store.GetPlanWithItems(ctx, plan.ID)
		if err != nil {
			return ConversationDetail{}, persistence("load plan items", err)
		}
		detail.Plan = &full
	}
	return detail, nil
}
