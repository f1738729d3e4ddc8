package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/daybrief/daybrief/ai/metrics"
	"github.com/daybrief/daybrief/store"
)

// CycleState is the position of one synthesis cycle in its state machine.
type CycleState string

const (
	StateScheduled  CycleState = "scheduled"
	StateAssembling CycleState = "assembling"
	StateClustering CycleState = "clustering"
	StateAssessing  CycleState = "assessing"
	StateAligning   CycleState = "aligning"
	StateGenerating CycleState = "generating"
	StatePersisted  CycleState = "persisted"
	StateFailed     CycleState = "failed"
)

// ErrCycleInFlight means a trigger arrived while the user's previous cycle
// was still running. The trigger is skipped, never queued.
var ErrCycleInFlight = errors.New("synthesis: cycle already in flight for user")

// ErrShuttingDown means the orchestrator no longer accepts triggers.
var ErrShuttingDown = errors.New("synthesis: orchestrator shutting down")

// ErrNoData means assembly produced nothing, every source failed, and the
// user has no prior insight to fall back on.
var ErrNoData = errors.New("synthesis: no source data and no prior insight")

// CycleResult summarizes one finished cycle.
type CycleResult struct {
	TraceID         string
	UserID          string
	State           CycleState
	InsightID       string
	DegradedSources []string
	Records         int
}

// Orchestrator schedules synthesis cycles per user, enforcing at most one
// concurrent cycle per user, sequencing the stages, and persisting results.
type Orchestrator struct {
	registry  *Registry
	assembler *Assembler
	pipeline  *Pipeline
	store     *store.Store
	exporter  *metrics.PrometheusExporter

	defaultLookback time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	closed   bool
	wg       sync.WaitGroup
}

// OrchestratorConfig wires an orchestrator. Exporter may be nil.
// DefaultLookback bounds the first cycle for a user with no prior insight.
type OrchestratorConfig struct {
	Registry        *Registry
	Assembler       *Assembler
	Pipeline        *Pipeline
	Store           *store.Store
	Exporter        *metrics.PrometheusExporter
	DefaultLookback time.Duration
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	lookback := cfg.DefaultLookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Orchestrator{
		registry:        cfg.Registry,
		assembler:       cfg.Assembler,
		pipeline:        cfg.Pipeline,
		store:           cfg.Store,
		exporter:        cfg.Exporter,
		defaultLookback: lookback,
		inFlight:        make(map[string]bool),
	}
}

// Trigger runs one synthesis cycle for the user, synchronously. A trigger for
// a user with an in-flight cycle returns ErrCycleInFlight without queuing.
// lookback overrides the since-window when positive; zero means "since the
// last successful insight".
func (o *Orchestrator) Trigger(ctx context.Context, userID string, lookback time.Duration) (*CycleResult, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if o.inFlight[userID] {
		o.mu.Unlock()
		slog.Info("synthesis: trigger skipped, cycle in flight", "user_id", userID)
		return nil, ErrCycleInFlight
	}
	o.inFlight[userID] = true
	o.wg.Add(1)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, userID)
		o.mu.Unlock()
		o.wg.Done()
	}()

	if o.exporter != nil {
		o.exporter.CycleStarted()
		defer o.exporter.CycleFinished()
	}

	start := time.Now()
	result, err := o.runCycle(ctx, userID, lookback)
	if o.exporter != nil {
		o.exporter.RecordCycle(string(result.State), time.Since(start))
	}
	return result, err
}

// Shutdown stops accepting triggers and waits for in-flight cycles to drain,
// bounded by ctx. In-flight cycles observe cancellation at stage boundaries.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("synthesis: shutdown wait: %w", ctx.Err())
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, userID string, lookback time.Duration) (*CycleResult, error) {
	result := &CycleResult{
		TraceID: shortuuid.New(),
		UserID:  userID,
		State:   StateScheduled,
	}

	slog.Info("synthesis: cycle started", "user_id", userID, "trace_id", result.TraceID)

	since, err := o.sinceWindow(ctx, userID, lookback)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	result.State = StateAssembling
	memory := o.assembler.Assemble(ctx, userID, since)
	result.DegradedSources = memory.Degraded
	result.Records = len(memory.Records)

	if memory.Empty() {
		return o.finishEmptyCycle(ctx, result, memory)
	}

	if ctx.Err() != nil {
		// Nothing assessed yet, so there is nothing safe to persist.
		result.State = StateFailed
		return result, fmt.Errorf("synthesis: cycle aborted during assembly: %w", ctx.Err())
	}

	result.State = StateClustering
	themes := o.pipeline.Cluster(ctx, memory)

	result.State = StateAssessing
	assessment := o.pipeline.Assess(ctx, themes, memory)

	if ctx.Err() != nil {
		// Assessment exists, so shut down with a degraded briefing instead
		// of discarding the cycle.
		return o.persistInterrupted(result, assessment)
	}

	result.State = StateAligning
	goals := o.activeGoals(ctx, userID)
	notes := o.pipeline.Align(ctx, assessment, goals)

	if ctx.Err() != nil {
		return o.persistInterrupted(result, assessment)
	}

	result.State = StateGenerating
	contacts := o.contactSnapshot(ctx, userID)
	insight := o.pipeline.Generate(ctx, userID, assessment, notes, contacts)
	if len(memory.Degraded) > 0 {
		insight.Status = store.InsightStatusDegraded
	}

	return o.persist(ctx, result, insight)
}

// sinceWindow computes the cycle's lookback boundary: an explicit override,
// else the last insight's generation time, else the default window.
func (o *Orchestrator) sinceWindow(ctx context.Context, userID string, lookback time.Duration) (time.Time, error) {
	if lookback > 0 {
		return time.Now().Add(-lookback), nil
	}
	latest, err := o.store.GetLatestInsight(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("synthesis: lookback query: %w", err)
	}
	if latest != nil {
		return latest.GeneratedAt, nil
	}
	return time.Now().Add(-o.defaultLookback), nil
}

// finishEmptyCycle handles a snapshot with zero records. When every source
// failed and the user has no prior insight the cycle fails; otherwise a
// quiet "no new activity" insight is persisted.
func (o *Orchestrator) finishEmptyCycle(ctx context.Context, result *CycleResult, memory *WorkingMemory) (*CycleResult, error) {
	allFailed := o.registry.Len() > 0 && len(memory.Degraded) == o.registry.Len()
	if allFailed {
		prior, err := o.store.GetLatestInsight(ctx, result.UserID)
		if err != nil {
			result.State = StateFailed
			return result, fmt.Errorf("synthesis: prior insight query: %w", err)
		}
		if prior == nil {
			result.State = StateFailed
			return result, ErrNoData
		}
	}
	return o.persist(ctx, result, quietInsight(result.UserID, memory.Degraded))
}

// persistInterrupted writes a degraded briefing assembled deterministically
// from the completed assessment when shutdown interrupts the pipeline.
func (o *Orchestrator) persistInterrupted(result *CycleResult, assessment *PriorityAssessment) (*CycleResult, error) {
	slog.Warn("synthesis: cycle interrupted, persisting degraded briefing",
		"user_id", result.UserID,
		"trace_id", result.TraceID,
		"state", result.State,
	)
	insight := &store.Insight{
		ID:           uuid.NewString(),
		UserID:       result.UserID,
		GeneratedAt:  time.Now().UTC(),
		Status:       store.InsightStatusDegraded,
		FallbackBody: fallbackBriefingBody(assessment, nil),
	}
	// Persist under a fresh context; the cycle context is already cancelled.
	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return o.persist(persistCtx, result, insight)
}

func (o *Orchestrator) persist(ctx context.Context, result *CycleResult, insight *store.Insight) (*CycleResult, error) {
	if _, err := o.store.CreateInsight(ctx, insight); err != nil {
		result.State = StateFailed
		slog.Error("synthesis: persist failed, cycle will retry on next trigger",
			"user_id", result.UserID,
			"trace_id", result.TraceID,
			"error", err,
		)
		return result, fmt.Errorf("synthesis: persist insight: %w", err)
	}
	result.State = StatePersisted
	result.InsightID = insight.ID
	slog.Info("synthesis: cycle persisted",
		"user_id", result.UserID,
		"trace_id", result.TraceID,
		"insight_id", insight.ID,
		"status", insight.Status,
		"records", result.Records,
		"degraded_sources", len(result.DegradedSources),
	)
	return result, nil
}

func (o *Orchestrator) activeGoals(ctx context.Context, userID string) []*store.Goal {
	active := store.GoalStatusActive
	goals, err := o.store.ListGoals(ctx, &store.FindGoal{UserID: userID, Status: &active})
	if err != nil {
		slog.Error("synthesis: goal lookup failed", "user_id", userID, "error", err)
		return nil
	}
	return goals
}

// contactSnapshot gives the briefing prompt a bounded view of the freshest
// relationships.
func (o *Orchestrator) contactSnapshot(ctx context.Context, userID string) []*store.Contact {
	contacts, err := o.store.ListContacts(ctx, &store.FindContact{UserID: userID, Limit: 10})
	if err != nil {
		slog.Error("synthesis: contact snapshot failed", "user_id", userID, "error", err)
		return nil
	}
	return contacts
}
