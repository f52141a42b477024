package vectorindex

import (
	"math"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
)

// Index is an append-only flat vector index with exact brute-force cosine
// similarity search. The dimension is fixed at creation and every vector is
// validated against it. Deletion is not supported.
type Index struct {
	mu        sync.RWMutex
	dimension int
	ids       []model.DocumentID
	vectors   [][]float32
	positions map[model.DocumentID]int
}

// Result is one similarity match: cosine similarity in [-1, 1].
type Result struct {
	ID    model.DocumentID `json:"id"`
	Score float64          `json:"score"`
}

// New creates an empty index with the given dimension
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "dimension must be positive",
			goerr.V("dimension", dimension))
	}
	return &Index{
		dimension: dimension,
		positions: make(map[model.DocumentID]int),
	}, nil
}

// Dimension returns the fixed vector dimension of the index
func (x *Index) Dimension() int {
	return x.dimension
}

// Len returns the number of indexed vectors
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// Has reports whether the document ID is already indexed
func (x *Index) Has(id model.DocumentID) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.positions[id]
	return ok
}

// Insert appends a vector for the document ID. A failed insert leaves the
// index unchanged.
func (x *Index) Insert(id model.DocumentID, vector []float32) error {
	if len(vector) != x.dimension {
		return goerr.Wrap(model.ErrDimensionMismatch, "cannot insert vector",
			goerr.V("id", id),
			goerr.V("expected", x.dimension), goerr.V("actual", len(vector)))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.positions[id]; ok {
		return goerr.Wrap(model.ErrDuplicateID, "vector already indexed", goerr.V("id", id))
	}

	x.positions[id] = len(x.ids)
	x.ids = append(x.ids, id)
	x.vectors = append(x.vectors, append([]float32(nil), vector...))
	return nil
}

// Query returns up to k matches ordered by descending cosine similarity.
// Ties are broken by insertion order, so results are deterministic.
func (x *Index) Query(vector []float32, k int) ([]Result, error) {
	if len(vector) != x.dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "cannot query index",
			goerr.V("expected", x.dimension), goerr.V("actual", len(vector)))
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.ids) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyIndex, "cannot query empty index")
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]Result, len(x.ids))
	for i, candidate := range x.vectors {
		results[i] = Result{
			ID:    x.ids[i],
			Score: cosineSimilarity(candidate, vector),
		}
	}

	// Stable sort preserves insertion order among tied scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
