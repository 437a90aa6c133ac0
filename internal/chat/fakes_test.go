package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/planwise/planwise/internal/completion"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/pricing"
	"github.com/planwise/planwise/internal/store"
)

// memStore is an in-memory Store with the same merge semantics as the
// postgres upsert.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	convs    map[string]store.Conversation
	messages map[string][]store.Message
	plans    map[string]planner.EventPlan // by conversation id
	items    map[string][]planner.BudgetItem

	writes   int
	failNext string
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		convs:    map[string]store.Conversation{},
		messages: map[string][]store.Message{},
		plans:    map[string]planner.EventPlan{},
		items:    map[string][]planner.BudgetItem{},
	}
}

var errInjected = errors.New("injected failure")

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) fail(op string) error {
	if m.failNext == op {
		m.failNext = ""
		return errInjected
	}
	return nil
}

func (m *memStore) CreateConversation(_ context.Context, userID, title string) (store.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateConversation"); err != nil {
		return store.Conversation{}, err
	}
	m.writes++
	now := m.tick()
	c := store.Conversation{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	m.convs[c.ID] = c
	return c, nil
}

func (m *memStore) GetConversation(_ context.Context, id, userID string) (store.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[id]
	if !ok || c.UserID != userID {
		return store.Conversation{}, false, nil
	}
	return c, true, nil
}

func (m *memStore) ListConversations(_ context.Context, userID string) ([]store.ConversationListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ConversationListing
	for _, c := range m.convs {
		if c.UserID != userID {
			continue
		}
		l := store.ConversationListing{Conversation: c}
		if p, ok := m.plans[c.ID]; ok {
			l.EventPlan = &store.PlanSnapshot{ID: p.ID, Name: p.Name, TotalBudget: p.TotalBudget, Currency: p.Currency, Status: p.Status}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) AppendMessage(_ context.Context, conversationID, role, content string) (store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendMessage:" + role); err != nil {
		return store.Message{}, err
	}
	m.writes++
	msg := store.Message{ID: uuid.NewString(), ConversationID: conversationID, Role: role, Content: content, CreatedAt: m.tick()}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	return msg, nil
}

func (m *memStore) ListMessages(_ context.Context, conversationID string) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Message(nil), m.messages[conversationID]...), nil
}

func (m *memStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[conversationID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]store.Message(nil), all...), nil
}

func (m *memStore) UpdateConversationSummary(_ context.Context, id, summary, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateConversationSummary"); err != nil {
		return err
	}
	m.writes++
	c := m.convs[id]
	c.Summary = summary
	if c.Title == "" {
		c.Title = title
	}
	c.UpdatedAt = m.tick()
	m.convs[id] = c
	return nil
}

func (m *memStore) GetPlanByConversation(_ context.Context, conversationID string) (planner.EventPlan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[conversationID]
	return p.Clone(), ok, nil
}

func (m *memStore) CreatePlan(_ context.Context, p planner.EventPlan) (planner.EventPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	p.ID = uuid.NewString()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	m.plans[p.ConversationID] = p.Clone()
	return p, nil
}

func (m *memStore) UpdatePlan(_ context.Context, p planner.EventPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	p.UpdatedAt = m.tick()
	m.plans[p.ConversationID] = p.Clone()
	return nil
}

func (m *memStore) GetPlanWithItems(_ context.Context, planID string) (planner.EventPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.ID == planID {
			out := p.Clone()
			items := append([]planner.BudgetItem(nil), m.items[planID]...)
			sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
			out.Items = items
			return out, nil
		}
	}
	return planner.EventPlan{}, errors.New("plan not found")
}

func (m *memStore) UpsertBudgetItems(_ context.Context, planID string, items []planner.BudgetItem) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertBudgetItems"); err != nil {
		return 0, err
	}
	for _, it := range items {
		m.writes++
		existing := m.items[planID]
		merged := false
		for i := range existing {
			if existing[i].Title == it.Title && existing[i].SourceURL == it.SourceURL {
				if it.EstimatedCost != nil {
					existing[i].EstimatedCost = it.EstimatedCost
				}
				existing[i].Currency = it.Currency
				if it.Notes != "" {
					existing[i].Notes = it.Notes
				}
				if it.SourceName != "" {
					existing[i].SourceName = it.SourceName
				}
				merged = true
				break
			}
		}
		if !merged {
			it.ID = uuid.NewString()
			it.EventPlanID = planID
			it.CreatedAt = m.tick()
			m.items[planID] = append(existing, it)
		}
	}
	return len(items), nil
}

type fakePricing struct {
	resp  pricing.Response
	calls []pricing.Params
}

func (f *fakePricing) Search(_ context.Context, p pricing.Params) pricing.Response {
	f.calls = append(f.calls, p)
	return f.resp
}

type fakeCompletion struct {
	reply    completion.Reply
	requests []completion.Request
	referers []string
}

func (f *fakeCompletion) Complete(ctx context.Context, req completion.Request) completion.Reply {
	f.requests = append(f.requests, req)
	ref, _ := completion.RefererFrom(ctx)
	f.referers = append(f.referers, ref)
	return f.reply
}

func (f *fakeCompletion) last() completion.Request {
	return f.requests[len(f.requests)-1]
}
