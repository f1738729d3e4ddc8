package synthesis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// SourceAgent turns raw events from one external data source into structured
// records. Extract may return records alongside a non-nil error when part of
// the source's data could not be processed; the assembler keeps the records
// and marks the source degraded.
type SourceAgent interface {
	Type() string
	Extract(ctx context.Context, since time.Time) ([]*StructuredRecord, error)
}

// Registry holds the source agents participating in synthesis, keyed by
// source type.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]SourceAgent
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]SourceAgent)}
}

// Register adds an agent. Registering two agents with the same type is a
// wiring bug and returns an error.
func (r *Registry) Register(agent SourceAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.agents[agent.Type()]; dup {
		return fmt.Errorf("source agent %q already registered", agent.Type())
	}
	r.agents[agent.Type()] = agent
	return nil
}

// Agents returns the registered agents in stable (type-sorted) order.
func (r *Registry) Agents() []SourceAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Strings(types)
	out := make([]SourceAgent, 0, len(types))
	for _, t := range types {
		out = append(out, r.agents[t])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
