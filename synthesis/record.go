// Package synthesis implements the per-user briefing pipeline: source agents
// emit structured records, an assembler snapshots them into working memory,
// and a staged pipeline (clustering, assessment, alignment, generation)
// turns the snapshot into a persisted insight.
package synthesis

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Intent classifies what a record asks of the user.
type Intent string

const (
	IntentQuestion      Intent = "Question"
	IntentActionRequest Intent = "ActionRequest"
	IntentInformational Intent = "Informational"
	IntentSocial        Intent = "Social"
	IntentOther         Intent = "Other"
)

// Entities names the people, organizations, and projects a record mentions.
// Source agents put interaction email addresses among People so the social
// stage can key contact updates.
type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Projects      []string `json:"projects"`
}

// Commitments captures explicit obligations found in a record.
type Commitments struct {
	TasksForMe     []string `json:"tasks_for_me"`
	TasksForOthers []string `json:"tasks_for_others"`
	Deadlines      []string `json:"deadlines"`
}

// StructuredRecord is one extracted activity item. Immutable once emitted by
// a source agent; it lives only for the duration of one synthesis cycle.
type StructuredRecord struct {
	ID           string      `json:"id"`
	SourceType   string      `json:"source_type"`
	Timestamp    time.Time   `json:"timestamp"`
	Summary      string      `json:"summary"`
	Intent       Intent      `json:"intent"`
	Entities     Entities    `json:"entities"`
	Commitments  Commitments `json:"commitments"`
	Sentiment    string      `json:"sentiment"`
	ReplyNeeded  bool        `json:"reply_needed"`
	UrgencyScore int         `json:"urgency_score"`

	// Degraded marks a fallback record emitted when extraction failed
	// terminally for the underlying raw event.
	Degraded bool `json:"-"`
}

// Key identifies a record for deduplication.
func (r *StructuredRecord) Key() string {
	return r.SourceType + "/" + r.ID
}

// TopEntity returns the record's most specific entity for fallback grouping:
// first project, else first organization, else first person.
func (r *StructuredRecord) TopEntity() string {
	if len(r.Entities.Projects) > 0 {
		return r.Entities.Projects[0]
	}
	if len(r.Entities.Organizations) > 0 {
		return r.Entities.Organizations[0]
	}
	if len(r.Entities.People) > 0 {
		return r.Entities.People[0]
	}
	return ""
}

// extractionItemSchema validates one element of a source agent's extraction
// response. Keys are strict; extra keys are ignored by the decoder, missing
// required keys fail validation and drop the item.
const extractionItemSchema = `{
	"type": "object",
	"required": ["summary", "intent", "sentiment", "reply_needed", "urgency_score"],
	"properties": {
		"summary": {"type": "string", "minLength": 1},
		"intent": {"type": "string", "enum": ["Question", "ActionRequest", "Informational", "Social", "Other"]},
		"entities": {
			"type": "object",
			"properties": {
				"people": {"type": "array", "items": {"type": "string"}},
				"organizations": {"type": "array", "items": {"type": "string"}},
				"projects": {"type": "array", "items": {"type": "string"}}
			}
		},
		"commitments": {
			"type": "object",
			"properties": {
				"tasks_for_me": {"type": "array", "items": {"type": "string"}},
				"tasks_for_others": {"type": "array", "items": {"type": "string"}},
				"deadlines": {"type": "array", "items": {"type": "string"}}
			}
		},
		"sentiment": {"type": "string", "enum": ["positive", "negative", "neutral"]},
		"reply_needed": {"type": "boolean"},
		"urgency_score": {"type": "integer", "minimum": 1, "maximum": 5}
	}
}`

var (
	extractionSchemaOnce sync.Once
	extractionSchema     *gojsonschema.Schema
	extractionSchemaErr  error
)

func compiledExtractionSchema() (*gojsonschema.Schema, error) {
	extractionSchemaOnce.Do(func() {
		extractionSchema, extractionSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(extractionItemSchema))
	})
	return extractionSchema, extractionSchemaErr
}

// ValidateExtractionItem checks one raw extraction element against the
// structured record shape. A non-nil error means the item must be dropped.
func ValidateExtractionItem(raw json.RawMessage) error {
	schema, err := compiledExtractionSchema()
	if err != nil {
		return fmt.Errorf("compile extraction schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate extraction item: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("extraction item rejected: %s", result.Errors()[0].String())
	}
	return nil
}

// DecodeExtractionItem validates and decodes one extraction element into the
// model-authored fields of a record. Identity fields (id, source type,
// timestamp) come from the raw event, not the model, and are left zero.
func DecodeExtractionItem(raw json.RawMessage) (*StructuredRecord, error) {
	if err := ValidateExtractionItem(raw); err != nil {
		return nil, err
	}
	var record StructuredRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode extraction item: %w", err)
	}
	return &record, nil
}
