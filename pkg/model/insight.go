package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Validate checks if the sentiment label is valid
func (s SentimentLabel) Validate() error {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return nil
	default:
		return goerr.Wrap(ErrInvalidSchema, "invalid sentiment label", goerr.V("label", s))
	}
}

// Sentiment is the overall tone of a document: a coarse label plus a
// numeric score in [-1, 1].
type Sentiment struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

type ActionItemStatus string

const (
	ActionItemOpen   ActionItemStatus = "open"
	ActionItemClosed ActionItemStatus = "closed"
)

// ActionItem is a task extracted from a document.
type ActionItem struct {
	Task   string           `json:"task"`
	Owner  string           `json:"owner,omitempty"`
	Due    *time.Time       `json:"due,omitempty"`
	Status ActionItemStatus `json:"status"`
}

// Risk is a concern raised in a document and whether it was resolved there.
type Risk struct {
	Text     string `json:"text"`
	Resolved bool   `json:"resolved"`
}

// InsightRecord is the structured extraction result for one document.
// Records are immutable once stored: re-ingesting identical content is a
// no-op, and there is no update path.
type InsightRecord struct {
	ID          DocumentID  `json:"id"`
	Fingerprint Fingerprint `json:"fingerprint"`

	Summary       string       `json:"summary"`
	Topics        []string     `json:"topics"`
	Risks         []Risk       `json:"risks"`
	Opportunities []string     `json:"opportunities"`
	ActionItems   []ActionItem `json:"action_items"`
	Sentiment     Sentiment    `json:"sentiment"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the record. Stores hand out clones so that
// callers never hold references into the store's own data.
func (r *InsightRecord) Clone() *InsightRecord {
	clone := *r
	clone.Topics = append([]string(nil), r.Topics...)
	clone.Risks = append([]Risk(nil), r.Risks...)
	clone.Opportunities = append([]string(nil), r.Opportunities...)
	clone.ActionItems = append([]ActionItem(nil), r.ActionItems...)
	for i, item := range r.ActionItems {
		if item.Due != nil {
			due := *item.Due
			clone.ActionItems[i].Due = &due
		}
	}
	return &clone
}

// Validate checks that the record satisfies the insight schema. The
// extraction service enforces this shape upstream; a violation here means
// the upstream payload was malformed and must be surfaced, not dropped.
func (r *InsightRecord) Validate() error {
	if r.ID == "" {
		return goerr.Wrap(ErrInvalidSchema, "record ID is empty")
	}
	if r.Summary == "" {
		return goerr.Wrap(ErrInvalidSchema, "summary is empty", goerr.V("id", r.ID))
	}
	if err := r.Sentiment.Label.Validate(); err != nil {
		return err
	}
	if r.Sentiment.Score < -1 || r.Sentiment.Score > 1 {
		return goerr.Wrap(ErrInvalidSchema, "sentiment score out of range",
			goerr.V("id", r.ID), goerr.V("score", r.Sentiment.Score))
	}
	for _, risk := range r.Risks {
		if risk.Text == "" {
			return goerr.Wrap(ErrInvalidSchema, "risk text is empty", goerr.V("id", r.ID))
		}
	}
	for _, item := range r.ActionItems {
		if item.Task == "" {
			return goerr.Wrap(ErrInvalidSchema, "action item task is empty", goerr.V("id", r.ID))
		}
		switch item.Status {
		case ActionItemOpen, ActionItemClosed:
		default:
			return goerr.Wrap(ErrInvalidSchema, "invalid action item status",
				goerr.V("id", r.ID), goerr.V("status", item.Status))
		}
	}
	return nil
}
