package insight_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/m-mizutani/magpie/pkg/policy"
	"github.com/m-mizutani/magpie/pkg/repository"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/m-mizutani/magpie/pkg/vectorindex"
	"google.golang.org/genai"
)

const extractionResponse = `{
	"summary": "Team reviewed pricing strategy",
	"topics": ["pricing", "competition"],
	"risks": [{"text": "churn risk", "resolved": false}],
	"opportunities": ["enterprise tier"],
	"action_items": [{"task": "draft proposal", "owner": "alice", "due": "2026-03-01", "status": "open"}],
	"sentiment": {"label": "neutral", "score": 0.2}
}`

// mockGemini stubs both external services and counts calls.
type mockGemini struct {
	response    string
	generateErr error
	embedding   []float32
	embedErr    error

	generateCalls int
	embedCalls    int
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.generateCalls++
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: m.response}}}},
		},
	}, nil
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func setup(t *testing.T, gemini *mockGemini, opts ...insight.Option) (*insight.UseCase, *repository.Memory, *vectorindex.Index) {
	repo := repository.NewMemory()
	index, err := vectorindex.New(3)
	gt.NoError(t, err)
	return insight.New(repo, index, gemini, opts...), repo, index
}

func TestIngest(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0, 0}}
	uc, repo, index := setup(t, gemini)
	ctx := context.Background()

	record, created, err := uc.Ingest(ctx, "Quarterly planning notes")
	gt.NoError(t, err)
	gt.Equal(t, created, true)
	gt.Equal(t, record.Summary, "Team reviewed pricing strategy")
	gt.A(t, record.Topics).Length(2)
	gt.Equal(t, record.ActionItems[0].Owner, "alice")
	gt.V(t, record.ActionItems[0].Due).NotNil()

	// Both stores hold the document
	stored, err := repo.GetInsight(ctx, record.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.ID, record.ID)
	gt.Equal(t, index.Has(record.ID), true)
	gt.Equal(t, index.Len(), 1)
}

func TestIngestDedup(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0, 0}}
	uc, _, index := setup(t, gemini)
	ctx := context.Background()

	first, created, err := uc.Ingest(ctx, "Quarterly planning notes")
	gt.NoError(t, err)
	gt.Equal(t, created, true)

	// Whitespace variant of the same content is a no-op success
	second, created, err := uc.Ingest(ctx, "  Quarterly   planning\nnotes ")
	gt.NoError(t, err)
	gt.Equal(t, created, false)
	gt.Equal(t, second.ID, first.ID)

	// No external calls for the duplicate
	gt.Equal(t, gemini.generateCalls, 1)
	gt.Equal(t, gemini.embedCalls, 1)
	gt.Equal(t, index.Len(), 1)
}

func TestIngestEmptyText(t *testing.T) {
	uc, _, _ := setup(t, &mockGemini{})
	_, _, err := uc.Ingest(context.Background(), "   \n\t ")
	gt.Error(t, err)
}

func TestIngestExtractionFailureLeavesStoresEmpty(t *testing.T) {
	gemini := &mockGemini{generateErr: errors.New("service unavailable"), embedding: []float32{1, 0, 0}}
	uc, repo, index := setup(t, gemini)
	ctx := context.Background()

	_, _, err := uc.Ingest(ctx, "some document")
	gt.Error(t, err)

	count, err := repo.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
	gt.Equal(t, index.Len(), 0)
}

func TestIngestEmbeddingFailureLeavesStoresEmpty(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedErr: errors.New("service unavailable")}
	uc, repo, index := setup(t, gemini)
	ctx := context.Background()

	_, _, err := uc.Ingest(ctx, "some document")
	gt.Error(t, err)

	count, err := repo.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
	gt.Equal(t, index.Len(), 0)
}

func TestIngestDimensionMismatchLeavesStoresEmpty(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0}}
	uc, repo, index := setup(t, gemini)
	ctx := context.Background()

	_, _, err := uc.Ingest(ctx, "some document")
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrDimensionMismatch)).Equal(true)

	count, err := repo.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)
	gt.Equal(t, index.Len(), 0)
}

func TestIngestMalformedExtractionResponse(t *testing.T) {
	testCases := []struct {
		name     string
		response string
	}{
		{"not json", "the team had a good meeting"},
		{"missing fields", `{"summary": "only a summary"}`},
		{"wrong types", `{"summary": 42, "topics": [], "risks": [], "opportunities": [], "action_items": [], "sentiment": {"label": "neutral", "score": 0}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gemini := &mockGemini{response: tc.response, embedding: []float32{1, 0, 0}}
			uc, repo, _ := setup(t, gemini)
			ctx := context.Background()

			_, _, err := uc.Ingest(ctx, "some document")
			gt.Error(t, err)
			gt.V(t, errors.Is(err, model.ErrInvalidSchema)).Equal(true)

			count, err := repo.Count(ctx)
			gt.NoError(t, err)
			gt.Equal(t, count, 0)
		})
	}
}

func TestIngestPolicyRejection(t *testing.T) {
	tmpDir := t.TempDir()
	ingestPolicy := `package ingest

skip := true if {
	input.length < 20
}

reason := "too short" if {
	input.length < 20
}
`
	gt.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ingest.rego"), []byte(ingestPolicy), 0644))

	ctx := context.Background()
	gate, err := policy.New(ctx, tmpDir)
	gt.NoError(t, err)

	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0, 0}}
	uc, repo, _ := setup(t, gemini, insight.WithGate(gate))

	_, _, err = uc.Ingest(ctx, "short note")
	gt.Error(t, err)
	gt.V(t, errors.Is(err, insight.ErrPolicyRejected)).Equal(true)
	gt.Equal(t, gemini.generateCalls, 0)

	count, err := repo.Count(ctx)
	gt.NoError(t, err)
	gt.Equal(t, count, 0)

	// Longer documents pass the gate
	_, created, err := uc.Ingest(ctx, "a sufficiently long document for the gate")
	gt.NoError(t, err)
	gt.Equal(t, created, true)
}

func TestSearch(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0, 0}}
	uc, _, _ := setup(t, gemini)
	ctx := context.Background()

	first, _, err := uc.Ingest(ctx, "document about pricing")
	gt.NoError(t, err)

	gemini.embedding = []float32{0, 1, 0}
	_, _, err = uc.Ingest(ctx, "document about hiring")
	gt.NoError(t, err)

	// Query vector closest to the first document
	gemini.embedding = []float32{1, 0.1, 0}
	results, err := uc.Search(ctx, insight.SearchOptions{Query: "pricing", Limit: 1})
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].Record.ID, first.ID)
	gt.V(t, results[0].Score > 0.9).Equal(true)
}

func TestSearchEmptyIndex(t *testing.T) {
	gemini := &mockGemini{embedding: []float32{1, 0, 0}}
	uc, _, _ := setup(t, gemini)

	_, err := uc.Search(context.Background(), insight.SearchOptions{Query: "anything"})
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrEmptyIndex)).Equal(true)
}

func TestSearchEmptyQuery(t *testing.T) {
	uc, _, _ := setup(t, &mockGemini{})
	_, err := uc.Search(context.Background(), insight.SearchOptions{})
	gt.Error(t, err)
}

func TestShowNotFound(t *testing.T) {
	uc, _, _ := setup(t, &mockGemini{})
	_, err := uc.Show(context.Background(), model.DocumentID("missing"))
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrNotFound)).Equal(true)
}

func TestVerifyLockstep(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0, 0}}
	uc, repo, index := setup(t, gemini)
	ctx := context.Background()

	gt.NoError(t, insight.VerifyLockstep(ctx, repo, index))

	record, _, err := uc.Ingest(ctx, "document about pricing")
	gt.NoError(t, err)
	gt.NoError(t, insight.VerifyLockstep(ctx, repo, index))

	// A record without a vector, as left by a torn snapshot pair
	orphan := record.Clone()
	orphan.Fingerprint = model.NewFingerprint("orphan document")
	orphan.ID = orphan.Fingerprint.DocumentID()
	gt.NoError(t, repo.PutInsight(ctx, orphan))

	err = insight.VerifyLockstep(ctx, repo, index)
	gt.Error(t, err)
	gt.V(t, errors.Is(err, insight.ErrStoresOutOfSync)).Equal(true)
}

func TestExists(t *testing.T) {
	gemini := &mockGemini{response: extractionResponse, embedding: []float32{1, 0, 0}}
	uc, _, _ := setup(t, gemini)
	ctx := context.Background()

	ok, err := uc.Exists(ctx, model.NewFingerprint("document about pricing"))
	gt.NoError(t, err)
	gt.Equal(t, ok, false)

	_, _, err = uc.Ingest(ctx, "document about pricing")
	gt.NoError(t, err)

	ok, err = uc.Exists(ctx, model.NewFingerprint("document  about pricing"))
	gt.NoError(t, err)
	gt.Equal(t, ok, true)
}
