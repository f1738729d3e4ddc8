package synthesis

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/daybrief/daybrief/ai/llm"
	"github.com/daybrief/daybrief/internal/profile"
	"github.com/daybrief/daybrief/store"
)

// stubGateway replays scripted replies in order. A reply with a non-nil err
// simulates a provider failure. When the script runs out the last reply
// repeats.
type stubGateway struct {
	mu      sync.Mutex
	replies []stubReply
	calls   int
}

type stubReply struct {
	content string
	err     error
}

func newStubGateway(replies ...stubReply) *stubGateway {
	return &stubGateway{replies: replies}
}

func (s *stubGateway) Chat(_ context.Context, _ []llm.Message) (string, *llm.CallStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	s.calls++
	if idx < 0 {
		return "", nil, &llm.MalformedResponse{Reason: "stub has no replies"}
	}
	reply := s.replies[idx]
	return reply.content, &llm.CallStats{TotalTokens: 1}, reply.err
}

func (s *stubGateway) ChatWithTools(ctx context.Context, messages []llm.Message, _ []llm.ToolDescriptor) (*llm.ChatResponse, *llm.CallStats, error) {
	content, stats, err := s.Chat(ctx, messages)
	if err != nil {
		return nil, stats, err
	}
	return &llm.ChatResponse{Content: content}, stats, nil
}

func (s *stubGateway) Warmup(context.Context) {}

func (s *stubGateway) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// memDriver is an in-memory store.Driver for pipeline tests.
type memDriver struct {
	mu       sync.Mutex
	contacts map[string]*store.Contact // userID/email
	goals    map[string]*store.Goal
	insights []*store.Insight
	feedback []*store.InsightFeedback

	failCreateInsight error
}

func newMemDriver() *memDriver {
	return &memDriver{
		contacts: make(map[string]*store.Contact),
		goals:    make(map[string]*store.Goal),
	}
}

func newTestStore(driver store.Driver) *store.Store {
	return store.New(driver, &profile.Profile{})
}

func (d *memDriver) GetDB() *sql.DB                { return nil }
func (d *memDriver) Close() error                  { return nil }
func (d *memDriver) Migrate(context.Context) error { return nil }

func (d *memDriver) UpsertContact(_ context.Context, contact *store.Contact) (*store.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *contact
	d.contacts[contact.UserID+"/"+contact.Email] = &copied
	return contact, nil
}

func (d *memDriver) GetContact(_ context.Context, userID, email string) (*store.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.contacts[userID+"/"+email]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (d *memDriver) ListContacts(_ context.Context, find *store.FindContact) ([]*store.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Contact
	for _, c := range d.contacts {
		if c.UserID != find.UserID {
			continue
		}
		if find.Email != nil && c.Email != *find.Email {
			continue
		}
		if find.StaleBefore != nil && !c.LastInteractionAt.Before(*find.StaleBefore) {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastInteractionAt.After(out[j].LastInteractionAt)
	})
	if find.Limit > 0 && len(out) > find.Limit {
		out = out[:find.Limit]
	}
	return out, nil
}

func (d *memDriver) CreateGoal(_ context.Context, create *store.Goal) (*store.Goal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *create
	d.goals[create.ID] = &copied
	return create, nil
}

func (d *memDriver) ListGoals(_ context.Context, find *store.FindGoal) ([]*store.Goal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Goal
	for _, g := range d.goals {
		if g.UserID != find.UserID {
			continue
		}
		if find.Status != nil && g.Status != *find.Status {
			continue
		}
		copied := *g
		out = append(out, &copied)
	}
	return out, nil
}

func (d *memDriver) UpdateGoal(_ context.Context, update *store.UpdateGoal) (*store.Goal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := d.goals[update.ID]
	if g == nil {
		return nil, sql.ErrNoRows
	}
	if update.Content != nil {
		g.Content = *update.Content
	}
	if update.Horizon != nil {
		g.Horizon = *update.Horizon
	}
	if update.Status != nil {
		g.Status = *update.Status
	}
	copied := *g
	return &copied, nil
}

func (d *memDriver) CreateInsight(_ context.Context, create *store.Insight) (*store.Insight, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreateInsight != nil {
		return nil, d.failCreateInsight
	}
	copied := *create
	d.insights = append(d.insights, &copied)
	return create, nil
}

func (d *memDriver) ListInsights(_ context.Context, find *store.FindInsight) ([]*store.Insight, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Insight
	for _, in := range d.insights {
		if in.UserID != find.UserID {
			continue
		}
		if find.ID != nil && in.ID != *find.ID {
			continue
		}
		if find.ExcludeViewed && in.Viewed {
			continue
		}
		copied := *in
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	if find.Limit > 0 && len(out) > find.Limit {
		out = out[:find.Limit]
	}
	return out, nil
}

func (d *memDriver) GetLatestInsight(ctx context.Context, userID string) (*store.Insight, error) {
	insights, err := d.ListInsights(ctx, &store.FindInsight{UserID: userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(insights) == 0 {
		return nil, nil
	}
	return insights[0], nil
}

func (d *memDriver) MarkInsightViewed(_ context.Context, userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now().Unix()
	for _, in := range d.insights {
		if in.UserID == userID && in.ID == id {
			in.Viewed = true
			in.ViewedTs = &now
		}
	}
	return nil
}

func (d *memDriver) UpsertInsightFeedback(_ context.Context, upsert *store.InsightFeedback) (*store.InsightFeedback, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.feedback {
		if f.UserID == upsert.UserID && f.InsightID == upsert.InsightID {
			f.Verdict = upsert.Verdict
			return upsert, nil
		}
	}
	copied := *upsert
	d.feedback = append(d.feedback, &copied)
	return upsert, nil
}

func (d *memDriver) ListInsightFeedback(_ context.Context, find *store.FindInsightFeedback) ([]*store.InsightFeedback, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.InsightFeedback
	for _, f := range d.feedback {
		if f.UserID != find.UserID {
			continue
		}
		if find.InsightID != nil && f.InsightID != *find.InsightID {
			continue
		}
		copied := *f
		out = append(out, &copied)
	}
	return out, nil
}

// record builders shared by the stage tests.

func testRecord(id string, ts time.Time, mutate func(*StructuredRecord)) *StructuredRecord {
	r := &StructuredRecord{
		ID:           id,
		SourceType:   "email",
		Timestamp:    ts,
		Summary:      "summary of " + id,
		Intent:       IntentInformational,
		Sentiment:    "neutral",
		UrgencyScore: 2,
	}
	if mutate != nil {
		mutate(r)
	}
	return r
}

func testMemory(userID string, records ...*StructuredRecord) *WorkingMemory {
	return &WorkingMemory{UserID: userID, Records: records}
}
