package synthesis

import (
	"time"

	"github.com/daybrief/daybrief/ai/llm"
	"github.com/daybrief/daybrief/ai/metrics"
	"github.com/daybrief/daybrief/store"
)

// Pipeline holds the shared collaborators of the analysis stages. Each stage
// is a method taking typed input from the prior stage; prompt construction is
// internal to the stage.
type Pipeline struct {
	gateway  llm.Service
	store    *store.Store
	exporter *metrics.PrometheusExporter

	staleContactAfter time.Duration
}

// PipelineConfig wires a pipeline. Exporter may be nil. StaleContactDays
// controls the "no contact in N days" social flag.
type PipelineConfig struct {
	Gateway          llm.Service
	Store            *store.Store
	Exporter         *metrics.PrometheusExporter
	StaleContactDays int
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	days := cfg.StaleContactDays
	if days <= 0 {
		days = 21
	}
	return &Pipeline{
		gateway:           cfg.Gateway,
		store:             cfg.Store,
		exporter:          cfg.Exporter,
		staleContactAfter: time.Duration(days) * 24 * time.Hour,
	}
}

func (p *Pipeline) recordStage(stage string, start time.Time) {
	if p.exporter != nil {
		p.exporter.RecordStage(stage, time.Since(start))
	}
}

func (p *Pipeline) recordFallback(stage string) {
	if p.exporter != nil {
		p.exporter.RecordStageFallback(stage)
	}
}

func (p *Pipeline) recordTokens(stats *llm.CallStats) {
	if p.exporter == nil || stats == nil {
		return
	}
	p.exporter.RecordLLMTokens("gateway", "prompt", stats.PromptTokens)
	p.exporter.RecordLLMTokens("gateway", "completion", stats.CompletionTokens)
}
