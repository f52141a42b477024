package insight

import (
	"context"
	"sort"

	"github.com/m-mizutani/magpie/pkg/model"
)

// List returns all insight records ordered by creation time
func (u *UseCase) List(ctx context.Context) ([]*model.InsightRecord, error) {
	records, err := u.repo.ListInsights(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}
