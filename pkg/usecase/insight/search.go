package insight

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
)

// SearchResult pairs a matched record with its similarity score.
type SearchResult struct {
	Record *model.InsightRecord `json:"record"`
	Score  float64              `json:"score"`
}

// SearchOptions contains options for similarity search
type SearchOptions struct {
	Query string // Natural language query
	Limit int    // Maximum number of results
}

// Search finds documents similar to a natural language query:
//  1. Generate an embedding vector for the query text
//  2. Exact k-nearest-neighbor query against the vector index
//  3. Resolve matched IDs to insight records
func (u *UseCase) Search(
	ctx context.Context,
	opts SearchOptions,
) ([]*SearchResult, error) {
	if opts.Query == "" {
		return nil, goerr.New("search query is empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vector, err := u.gemini.Embedding(ctx, model.NormalizeText(opts.Query))
	if err != nil {
		return nil, goerr.Wrap(err, "embedding service failed")
	}

	matches, err := u.index.Query(vector, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(matches))
	for _, match := range matches {
		record, err := u.repo.GetInsight(ctx, match.ID)
		if err != nil {
			// The stores are kept in lockstep; a missing record here is a
			// corrupted deployment, not a user error.
			return nil, goerr.Wrap(err, "indexed document has no insight record",
				goerr.V("id", match.ID))
		}
		results = append(results, &SearchResult{Record: record, Score: match.Score})
	}
	return results, nil
}
