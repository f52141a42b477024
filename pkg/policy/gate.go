package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Gate evaluates Rego ingest policies against a document before any
// external call is made. With no policy files the gate accepts everything.
//
// Policy contract (package ingest):
//
//	skip   - boolean, true to reject the document
//	reason - optional string shown to the operator
type Gate struct {
	query *rego.PreparedEvalQuery
}

// Input is the document data handed to the policy.
type Input struct {
	ID          model.DocumentID `json:"id"`
	Fingerprint string           `json:"fingerprint"`
	Text        string           `json:"text"`
	Length      int              `json:"length"`
}

// Decision is the policy outcome for one document.
type Decision struct {
	Skip   bool
	Reason string
}

// New loads all .rego files from policyDir and prepares the ingest query.
// An empty or missing directory yields a gate that accepts everything.
func New(ctx context.Context, policyDir string) (*Gate, error) {
	if policyDir == "" {
		return &Gate{}, nil
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return &Gate{}, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query("data.ingest"))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare ingest query")
	}

	return &Gate{query: &prepared}, nil
}

// Evaluate runs the ingest policy for one document
func (g *Gate) Evaluate(ctx context.Context, input *Input) (*Decision, error) {
	if g.query == nil {
		return &Decision{}, nil
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate ingest policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &Decision{}, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, goerr.New("invalid ingest policy result")
	}

	decision := &Decision{}
	if skip, ok := data["skip"].(bool); ok {
		decision.Skip = skip
	}
	if reason, ok := data["reason"].(string); ok {
		decision.Reason = reason
	}
	return decision, nil
}
