package insight

import (
	"context"

	"github.com/m-mizutani/magpie/pkg/trends"
)

// Trends aggregates all stored records into a fresh snapshot. The snapshot
// reflects the store contents at call time; nothing is cached.
func (u *UseCase) Trends(ctx context.Context) (*trends.Snapshot, error) {
	records, err := u.repo.ListInsights(ctx)
	if err != nil {
		return nil, err
	}

	return trends.Aggregate(records), nil
}
