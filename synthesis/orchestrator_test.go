package synthesis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/daybrief/daybrief/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestOrchestrator(registry *Registry, gateway *stubGateway, driver *memDriver) *Orchestrator {
	st := newTestStore(driver)
	return NewOrchestrator(OrchestratorConfig{
		Registry:  registry,
		Assembler: NewAssembler(registry, time.Second, nil),
		Pipeline:  NewPipeline(PipelineConfig{Gateway: gateway, Store: st}),
		Store:     st,
	})
}

// happyReplies scripts the gateway for one full successful cycle:
// clustering, assessment enrichment, briefing.
func happyReplies(recordID string) []stubReply {
	return []stubReply{
		{content: `{"themes":[{"label":"T","record_ids":["` + recordID + `"]}]}`},
		{content: `{"urgent":[],"important":[],"social_notes":[]}`},
		{content: `{"top_priorities":[{"title":"T","why":"w","first_step":"s"}],"on_your_radar":[],"connections":[]}`},
	}
}

func TestTriggerFullCycle(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{
		sourceType: "email",
		records: []*StructuredRecord{
			testRecord("r1", base, func(r *StructuredRecord) { r.UrgencyScore = 5 }),
		},
	}))
	driver := newMemDriver()
	o := newTestOrchestrator(registry, newStubGateway(happyReplies("r1")...), driver)

	result, err := o.Trigger(context.Background(), "u1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, StatePersisted, result.State)
	require.NotEmpty(t, result.InsightID)

	stored, err := driver.GetLatestInsight(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, store.InsightStatusOK, stored.Status)
}

// Concurrent trigger injection: at most one cycle per user may run at once;
// the rest are skipped, never queued.
func TestTriggerMutualExclusionPerUser(t *testing.T) {
	release := make(chan struct{})
	var inFlight, maxInFlight int32

	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{sourceType: "email"}))

	blockingAgent := &funcAgent{typ: "blocking", fn: func(ctx context.Context, _ time.Time) ([]*StructuredRecord, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if cur <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, cur) {
				break
			}
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		atomic.AddInt32(&inFlight, -1)
		return []*StructuredRecord{testRecord("r1", time.Now(), nil)}, nil
	}}
	require.NoError(t, registry.Register(blockingAgent))

	driver := newMemDriver()
	o := newTestOrchestrator(registry, newStubGateway(happyReplies("r1")...), driver)

	const triggers = 8
	var wg sync.WaitGroup
	var skipped int32
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Trigger(context.Background(), "u1", time.Hour)
			if errors.Is(err, ErrCycleInFlight) {
				atomic.AddInt32(&skipped, 1)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight), "only one cycle may assemble at a time")
	require.EqualValues(t, triggers-1, atomic.LoadInt32(&skipped))
	require.Len(t, driver.insights, 1)
}

func TestTriggerDifferentUsersDoNotContend(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{
		sourceType: "email",
		records:    []*StructuredRecord{testRecord("r1", time.Now().Add(-time.Minute), nil)},
	}))
	driver := newMemDriver()
	o := newTestOrchestrator(registry, newStubGateway(happyReplies("r1")...), driver)

	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2", "u3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.Trigger(context.Background(), user, time.Hour)
			require.NoError(t, err)
			require.Equal(t, StatePersisted, result.State)
		}()
	}
	wg.Wait()
	require.Len(t, driver.insights, 3)
}

func TestTriggerEmptyInboxProducesQuietInsight(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{sourceType: "email"})) // zero records, no error
	driver := newMemDriver()
	o := newTestOrchestrator(registry, newStubGateway(), driver)

	result, err := o.Trigger(context.Background(), "u1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, StatePersisted, result.State)

	stored, err := driver.GetLatestInsight(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, store.InsightStatusOK, stored.Status)
	require.Equal(t, "No new activity", stored.OnYourRadar[0].Title)
}

func TestTriggerAllSourcesFailedNoPriorInsight(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{
		sourceType: "email",
		err:        errors.New("mailbox unreachable"),
	}))
	driver := newMemDriver()
	o := newTestOrchestrator(registry, newStubGateway(), driver)

	result, err := o.Trigger(context.Background(), "u1", time.Hour)
	require.ErrorIs(t, err, ErrNoData)
	require.Equal(t, StateFailed, result.State)
	require.Empty(t, driver.insights)
}

func TestTriggerAllSourcesFailedWithPriorInsight(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{
		sourceType: "email",
		err:        errors.New("mailbox unreachable"),
	}))
	driver := newMemDriver()
	_, err := driver.CreateInsight(context.Background(), &store.Insight{
		ID: "prior", UserID: "u1", GeneratedAt: time.Now().Add(-time.Hour),
		Status: store.InsightStatusOK,
	})
	require.NoError(t, err)

	o := newTestOrchestrator(registry, newStubGateway(), driver)

	result, err := o.Trigger(context.Background(), "u1", time.Hour)
	require.NoError(t, err)
	require.Equal(t, StatePersisted, result.State)

	stored, err := driver.GetLatestInsight(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, store.InsightStatusDegraded, stored.Status)
}

func TestTriggerPersistFailureMarksCycleFailed(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeAgent{
		sourceType: "email",
		records:    []*StructuredRecord{testRecord("r1", time.Now().Add(-time.Minute), nil)},
	}))
	driver := newMemDriver()
	driver.failCreateInsight = errors.New("disk full")
	o := newTestOrchestrator(registry, newStubGateway(happyReplies("r1")...), driver)

	result, err := o.Trigger(context.Background(), "u1", time.Hour)
	require.Error(t, err)
	require.Equal(t, StateFailed, result.State)
}

func TestShutdownDrainsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	registry := NewRegistry()
	require.NoError(t, registry.Register(&funcAgent{typ: "email", fn: func(ctx context.Context, _ time.Time) ([]*StructuredRecord, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return []*StructuredRecord{testRecord("r1", time.Now(), nil)}, nil
	}}))
	driver := newMemDriver()
	o := newTestOrchestrator(registry, newStubGateway(happyReplies("r1")...), driver)

	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err := o.Trigger(context.Background(), "u1", time.Hour)
		require.NoError(t, err)
		require.Equal(t, StatePersisted, result.State)
	}()

	<-started
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(shutdownCtx))
	<-done

	_, err := o.Trigger(context.Background(), "u1", time.Hour)
	require.ErrorIs(t, err, ErrShuttingDown)
}

// funcAgent adapts a function to the SourceAgent interface.
type funcAgent struct {
	typ string
	fn  func(ctx context.Context, since time.Time) ([]*StructuredRecord, error)
}

func (f *funcAgent) Type() string { return f.typ }

func (f *funcAgent) Extract(ctx context.Context, since time.Time) ([]*StructuredRecord, error) {
	return f.fn(ctx, since)
}
