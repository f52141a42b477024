package insight

import (
	"github.com/m-mizutani/magpie/pkg/adapter"
	"github.com/m-mizutani/magpie/pkg/policy"
	"github.com/m-mizutani/magpie/pkg/repository"
	"github.com/m-mizutani/magpie/pkg/vectorindex"
)

// UseCase provides document insight operations: ingestion, lookup,
// similarity search and trend aggregation. It owns the two stores; callers
// go through these operations and never touch the stores directly.
type UseCase struct {
	repo    repository.Repository
	index   *vectorindex.Index
	gemini  adapter.Gemini
	storage adapter.Storage
	gate    *policy.Gate
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithStorage enables raw document archiving
func WithStorage(s adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.storage = s
	}
}

// WithGate sets the Rego ingest gate
func WithGate(g *policy.Gate) Option {
	return func(uc *UseCase) {
		uc.gate = g
	}
}

// New creates a new insight UseCase instance
func New(
	repo repository.Repository,
	index *vectorindex.Index,
	gemini adapter.Gemini,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:   repo,
		index:  index,
		gemini: gemini,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
