package insight

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/repository"
	"github.com/m-mizutani/magpie/pkg/vectorindex"
)

// ErrStoresOutOfSync is returned when the record store and the vector index
// disagree about which documents exist.
var ErrStoresOutOfSync = goerr.New("record store and vector index are out of sync")

// VerifyLockstep checks that every stored record has a vector and vice
// versa. The surrounding application runs it after loading both snapshots,
// so a half-completed joint insert is surfaced at the next start instead of
// corrupting search results.
func VerifyLockstep(ctx context.Context, repo repository.Repository, index *vectorindex.Index) error {
	records, err := repo.ListInsights(ctx)
	if err != nil {
		return err
	}

	if len(records) != index.Len() {
		return goerr.Wrap(ErrStoresOutOfSync, "store sizes differ",
			goerr.V("records", len(records)), goerr.V("vectors", index.Len()))
	}
	for _, record := range records {
		if !index.Has(record.ID) {
			return goerr.Wrap(ErrStoresOutOfSync, "record has no vector",
				goerr.V("id", record.ID))
		}
	}
	return nil
}
