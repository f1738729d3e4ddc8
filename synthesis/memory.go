package synthesis

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daybrief/daybrief/ai/metrics"
)

// WorkingMemory is the immutable per-cycle snapshot of structured records.
// Records are ordered by timestamp ascending; order matters for clustering
// tie-breaks. Degraded lists the source types that timed out or failed.
type WorkingMemory struct {
	UserID   string
	Since    time.Time
	Records  []*StructuredRecord
	Degraded []string
}

// Empty reports whether the snapshot holds no records at all.
func (m *WorkingMemory) Empty() bool {
	return len(m.Records) == 0
}

// Record returns the record with the given key, or nil.
func (m *WorkingMemory) Record(key string) *StructuredRecord {
	for _, r := range m.Records {
		if r.Key() == key {
			return r
		}
	}
	return nil
}

// ByID returns the record with the given bare id, or nil. Clustering
// responses reference records by id only.
func (m *WorkingMemory) ByID(id string) *StructuredRecord {
	for _, r := range m.Records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Assembler collects records from all registered source agents for one cycle.
type Assembler struct {
	registry     *Registry
	agentTimeout time.Duration
	exporter     *metrics.PrometheusExporter
}

// NewAssembler builds an assembler. agentTimeout bounds each agent's Extract
// independently; exporter may be nil.
func NewAssembler(registry *Registry, agentTimeout time.Duration, exporter *metrics.PrometheusExporter) *Assembler {
	if agentTimeout <= 0 {
		agentTimeout = 60 * time.Second
	}
	return &Assembler{registry: registry, agentTimeout: agentTimeout, exporter: exporter}
}

// Assemble runs every agent concurrently, each under its own timeout, and
// merges the results into a snapshot. A failed or timed-out agent contributes
// zero records and lands in Degraded; it never aborts the cycle.
func (a *Assembler) Assemble(ctx context.Context, userID string, since time.Time) *WorkingMemory {
	agents := a.registry.Agents()

	var mu sync.Mutex
	collected := make([]*StructuredRecord, 0)
	degraded := make([]string, 0)

	g, gctx := errgroup.WithContext(ctx)
	for _, agent := range agents {
		g.Go(func() error {
			agentCtx, cancel := context.WithTimeout(gctx, a.agentTimeout)
			defer cancel()

			records, err := agent.Extract(agentCtx, since)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("assembler: source degraded",
					"source_type", agent.Type(),
					"user_id", userID,
					"records_kept", len(records),
					"error", err,
				)
				degraded = append(degraded, agent.Type())
				if a.exporter != nil {
					a.exporter.RecordSourceDegraded(agent.Type())
				}
			}
			collected = append(collected, records...)
			if a.exporter != nil {
				a.exporter.RecordSourceRecords(agent.Type(), len(records))
			}
			// Degradation is recorded, never propagated.
			return nil
		})
	}
	_ = g.Wait()

	records := dedupeRecords(collected)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	sort.Strings(degraded)

	slog.Info("assembler: snapshot ready",
		"user_id", userID,
		"records", len(records),
		"sources", len(agents),
		"degraded_sources", len(degraded),
	)

	return &WorkingMemory{
		UserID:   userID,
		Since:    since,
		Records:  records,
		Degraded: degraded,
	}
}

// dedupeRecords drops later duplicates of the same (source_type, id) key.
func dedupeRecords(records []*StructuredRecord) []*StructuredRecord {
	seen := make(map[string]bool, len(records))
	out := make([]*StructuredRecord, 0, len(records))
	for _, r := range records {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}
