package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordCycle(t *testing.T) {
	e := NewPrometheusExporter(DefaultConfig())

	e.CycleStarted()
	e.RecordStage("clustering", 120*time.Millisecond)
	e.RecordStageFallback("clustering")
	e.RecordSourceRecords("email", 4)
	e.RecordLLMTokens("gpt-4o", "prompt", 350)
	e.RecordCycle("ok", 2*time.Second)
	e.CycleFinished()

	families, err := e.GetRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		"daybrief_synthesis_cycles_total",
		"daybrief_synthesis_cycle_latency_seconds",
		"daybrief_synthesis_stage_fallbacks_total",
		"daybrief_source_records_total",
		"daybrief_llm_tokens_total",
	} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestNewPrometheusExporterReusesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	e := NewPrometheusExporter(Config{Registry: registry})

	if e.GetRegistry() != registry {
		t.Error("exporter should reuse the provided registry")
	}
}
