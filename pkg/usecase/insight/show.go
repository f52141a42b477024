package insight

import (
	"context"

	"github.com/m-mizutani/magpie/pkg/model"
)

// Show retrieves a single insight record by document ID
func (u *UseCase) Show(
	ctx context.Context,
	id model.DocumentID,
) (*model.InsightRecord, error) {
	record, err := u.repo.GetInsight(ctx, id)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Exists reports whether a document with this content fingerprint was
// already ingested. It has no side effects.
func (u *UseCase) Exists(ctx context.Context, fp model.Fingerprint) (bool, error) {
	return u.repo.HasInsight(ctx, fp.DocumentID())
}
