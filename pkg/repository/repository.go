package repository

import (
	"context"

	"github.com/m-mizutani/magpie/pkg/model"
)

// Repository defines the interface for insight record persistence.
// Records are immutable: there is no update or delete path, and PutInsight
// fails with model.ErrDuplicateID when the ID is already present.
type Repository interface {
	// PutInsight durably persists a new insight record
	PutInsight(ctx context.Context, record *model.InsightRecord) error

	// GetInsight retrieves an insight record by document ID
	GetInsight(ctx context.Context, id model.DocumentID) (*model.InsightRecord, error)

	// HasInsight reports whether a record exists for the document ID
	HasInsight(ctx context.Context, id model.DocumentID) (bool, error)

	// ListInsights returns a point-in-time snapshot of all records. Each
	// call yields a fresh snapshot; order is stable within one snapshot.
	ListInsights(ctx context.Context) ([]*model.InsightRecord, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)
}
