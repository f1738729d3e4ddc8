// Package email implements the email source agent: it pulls raw messages
// from a Feed and turns each batch into structured records with one gateway
// extraction call.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daybrief/daybrief/ai/llm"
	"github.com/daybrief/daybrief/synthesis"
)

// SourceType identifies records emitted by this agent.
const SourceType = "email"

// batchSize is how many raw emails share one extraction call.
const batchSize = 5

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// RawEmail is one message as delivered by the feed. Body may be truncated by
// the provider; the agent never needs the full thread.
type RawEmail struct {
	ID         string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Feed supplies raw emails newer than a boundary. Implementations wrap the
// actual mail provider; the agent only sees their output.
type Feed interface {
	Fetch(ctx context.Context, since time.Time) ([]*RawEmail, error)
}

// Agent extracts structured records from email.
type Agent struct {
	feed    Feed
	gateway llm.Service
}

func NewAgent(feed Feed, gateway llm.Service) *Agent {
	return &Agent{feed: feed, gateway: gateway}
}

func (a *Agent) Type() string { return SourceType }

const extractionSystemPrompt = `You extract structured facts from emails.
For EACH email below, in order, produce one JSON object:
{"summary": "...", "intent": "Question|ActionRequest|Informational|Social|Other",
 "entities": {"people": [...], "organizations": [...], "projects": [...]},
 "commitments": {"tasks_for_me": [...], "tasks_for_others": [...], "deadlines": [...]},
 "sentiment": "positive|negative|neutral", "reply_needed": true|false, "urgency_score": 1-5}
Include the sender's email address in entities.people.
Respond with a single JSON array holding exactly one object per email, same order.`

// Extract fetches new emails and runs batched extraction. It may return
// records alongside an error when some batches failed terminally; the caller
// keeps the records and marks the source degraded.
func (a *Agent) Extract(ctx context.Context, since time.Time) ([]*synthesis.StructuredRecord, error) {
	emails, err := a.feed.Fetch(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("email: fetch: %w", err)
	}
	if len(emails) == 0 {
		return nil, nil
	}

	var records []*synthesis.StructuredRecord
	var failedBatches int
	for start := 0; start < len(emails); start += batchSize {
		end := start + batchSize
		if end > len(emails) {
			end = len(emails)
		}
		batch := emails[start:end]

		extracted, err := a.extractBatch(ctx, batch)
		if err != nil {
			slog.Warn("email: batch extraction failed, emitting fallback records",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			failedBatches++
			records = append(records, fallbackRecords(batch)...)
			continue
		}
		records = append(records, extracted...)
	}

	if failedBatches > 0 {
		return records, fmt.Errorf("email: %d of %d batches failed extraction",
			failedBatches, (len(emails)+batchSize-1)/batchSize)
	}
	return records, nil
}

// extractBatch issues the gateway call for one batch, retrying provider
// failures with exponential backoff, then validates each returned item.
// A single bad item is dropped with a warning, never the batch.
func (a *Agent) extractBatch(ctx context.Context, batch []*RawEmail) ([]*synthesis.StructuredRecord, error) {
	var content string
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		content, _, lastErr = a.gateway.Chat(ctx, []llm.Message{
			llm.SystemPrompt(extractionSystemPrompt),
			llm.UserMessage(renderBatch(batch)),
		})
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(llm.ExtractJSON(content)), &items); err != nil {
		return nil, fmt.Errorf("email: extraction response is not a JSON array: %w", err)
	}

	records := make([]*synthesis.StructuredRecord, 0, len(batch))
	for i, raw := range batch {
		if i >= len(items) {
			slog.Warn("email: extraction response shorter than batch", "email_id", raw.ID)
			continue
		}
		record, err := synthesis.DecodeExtractionItem(items[i])
		if err != nil {
			slog.Warn("email: dropping invalid extraction item", "email_id", raw.ID, "error", err)
			continue
		}
		fillIdentity(record, raw)
		records = append(records, record)
	}
	return records, nil
}

// fillIdentity stamps the fields the model never authors: id, source type,
// timestamp, and the sender address among people.
func fillIdentity(record *synthesis.StructuredRecord, raw *RawEmail) {
	record.ID = raw.ID
	record.SourceType = SourceType
	record.Timestamp = raw.ReceivedAt
	sender := strings.ToLower(strings.TrimSpace(raw.From))
	if sender != "" && !containsFold(record.Entities.People, sender) {
		record.Entities.People = append(record.Entities.People, sender)
	}
}

// fallbackRecords emits one minimal record per email of a terminally failed
// batch so the cycle still sees the activity.
func fallbackRecords(batch []*RawEmail) []*synthesis.StructuredRecord {
	records := make([]*synthesis.StructuredRecord, 0, len(batch))
	for _, raw := range batch {
		summary := raw.Subject
		if summary == "" {
			summary = snippet(raw.Body, 80)
		}
		records = append(records, &synthesis.StructuredRecord{
			ID:           raw.ID,
			SourceType:   SourceType,
			Timestamp:    raw.ReceivedAt,
			Summary:      summary,
			Intent:       synthesis.IntentOther,
			Entities:     synthesis.Entities{People: []string{strings.ToLower(raw.From)}},
			Sentiment:    "neutral",
			UrgencyScore: 1,
			Degraded:     true,
		})
	}
	return records
}

func renderBatch(batch []*RawEmail) string {
	var b strings.Builder
	for i, raw := range batch {
		fmt.Fprintf(&b, "Email %d:\nFrom: %s\nSubject: %s\nReceived: %s\nBody:\n%s\n\n",
			i+1, raw.From, raw.Subject, raw.ReceivedAt.Format(time.RFC3339), snippet(raw.Body, 2000))
	}
	return b.String()
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
