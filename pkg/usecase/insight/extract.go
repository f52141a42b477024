package insight

import (
	"context"
	_ "embed"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
	"google.golang.org/genai"
)

//go:embed prompt/extract.md
var extractPromptRaw string

// insightPayload is the wire shape enforced on the extraction service.
type insightPayload struct {
	Summary       string              `json:"summary"`
	Topics        []string            `json:"topics"`
	Risks         []riskPayload       `json:"risks"`
	Opportunities []string            `json:"opportunities"`
	ActionItems   []actionItemPayload `json:"action_items"`
	Sentiment     sentimentPayload    `json:"sentiment"`
}

type riskPayload struct {
	Text     string `json:"text"`
	Resolved bool   `json:"resolved"`
}

type actionItemPayload struct {
	Task   string `json:"task"`
	Owner  string `json:"owner,omitempty"`
	Due    string `json:"due,omitempty"`
	Status string `json:"status"`
}

type sentimentPayload struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// payloadSchema validates the decoded service response before it becomes an
// InsightRecord. A violation is a SchemaError, surfaced rather than dropped.
var payloadSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	schema, err := jsonschema.For[insightPayload](nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to derive insight schema")
	}
	return schema.Resolve(nil)
})

// responseSchema constrains the Gemini output to the insight shape.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
		"topics":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"risks": {Type: genai.TypeArray, Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"text":     {Type: genai.TypeString},
				"resolved": {Type: genai.TypeBoolean},
			},
			Required: []string{"text", "resolved"},
		}},
		"opportunities": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"action_items": {Type: genai.TypeArray, Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"task":   {Type: genai.TypeString},
				"owner":  {Type: genai.TypeString},
				"due":    {Type: genai.TypeString},
				"status": {Type: genai.TypeString, Enum: []string{"open", "closed"}},
			},
			Required: []string{"task", "status"},
		}},
		"sentiment": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"label": {Type: genai.TypeString, Enum: []string{"positive", "neutral", "negative"}},
				"score": {Type: genai.TypeNumber},
			},
			Required: []string{"label", "score"},
		},
	},
	Required: []string{"summary", "topics", "risks", "opportunities", "action_items", "sentiment"},
}

// extract calls the insight extraction service and parses its response.
func (u *UseCase) extract(ctx context.Context, text string) (*insightPayload, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(extractPromptRaw+"\n\n"+text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "insight extraction service failed")
	}

	raw := resp.Text()
	if raw == "" {
		return nil, goerr.Wrap(model.ErrInvalidSchema, "extraction response is empty")
	}

	return parsePayload([]byte(raw))
}

// parsePayload decodes and validates a raw extraction response.
func parsePayload(raw []byte) (*insightPayload, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidSchema, "extraction response is not JSON",
			goerr.V("cause", err.Error()))
	}

	schema, err := payloadSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(decoded); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidSchema, "extraction response violates schema",
			goerr.V("cause", err.Error()))
	}

	var payload insightPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidSchema, "failed to decode extraction response",
			goerr.V("cause", err.Error()))
	}
	return &payload, nil
}

// toRecord converts a validated payload into an immutable insight record.
func (p *insightPayload) toRecord(id model.DocumentID, fp model.Fingerprint, now time.Time) (*model.InsightRecord, error) {
	record := &model.InsightRecord{
		ID:            id,
		Fingerprint:   fp,
		Summary:       p.Summary,
		Topics:        p.Topics,
		Opportunities: p.Opportunities,
		Sentiment: model.Sentiment{
			Label: model.SentimentLabel(p.Sentiment.Label),
			Score: p.Sentiment.Score,
		},
		CreatedAt: now,
	}

	for _, risk := range p.Risks {
		record.Risks = append(record.Risks, model.Risk{
			Text:     risk.Text,
			Resolved: risk.Resolved,
		})
	}

	for _, item := range p.ActionItems {
		converted := model.ActionItem{
			Task:   item.Task,
			Owner:  item.Owner,
			Status: model.ActionItemStatus(item.Status),
		}
		if item.Due != "" {
			due, err := parseDue(item.Due)
			if err != nil {
				return nil, goerr.Wrap(model.ErrInvalidSchema, "invalid due date",
					goerr.V("id", id), goerr.V("due", item.Due))
			}
			converted.Due = &due
		}
		record.ActionItems = append(record.ActionItems, converted)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func parseDue(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
