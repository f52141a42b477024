package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const insightCollection = "insights"

// Firestore implements Repository backed by Cloud Firestore. Immutability
// is enforced with create-only writes.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a new Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) PutInsight(ctx context.Context, record *model.InsightRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	doc := f.client.Collection(insightCollection).Doc(string(record.ID))
	if _, err := doc.Create(ctx, record); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(model.ErrDuplicateID, "insight record already exists",
				goerr.V("id", record.ID))
		}
		return goerr.Wrap(err, "failed to create insight record", goerr.V("id", record.ID))
	}
	return nil
}

func (f *Firestore) GetInsight(ctx context.Context, id model.DocumentID) (*model.InsightRecord, error) {
	snapshot, err := f.client.Collection(insightCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "insight record not found",
				goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get insight record", goerr.V("id", id))
	}

	var record model.InsightRecord
	if err := snapshot.DataTo(&record); err != nil {
		return nil, goerr.Wrap(err, "failed to decode insight record", goerr.V("id", id))
	}
	return &record, nil
}

func (f *Firestore) HasInsight(ctx context.Context, id model.DocumentID) (bool, error) {
	_, err := f.client.Collection(insightCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check insight record", goerr.V("id", id))
	}
	return true, nil
}

func (f *Firestore) ListInsights(ctx context.Context) ([]*model.InsightRecord, error) {
	iter := f.client.Collection(insightCollection).OrderBy("CreatedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []*model.InsightRecord
	for {
		snapshot, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate insight records")
		}

		var record model.InsightRecord
		if err := snapshot.DataTo(&record); err != nil {
			return nil, goerr.Wrap(err, "failed to decode insight record",
				goerr.V("doc", snapshot.Ref.ID))
		}
		records = append(records, &record)
	}
	return records, nil
}

func (f *Firestore) Count(ctx context.Context) (int, error) {
	iter := f.client.Collection(insightCollection).Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to count insight records")
		}
		count++
	}
	return count, nil
}
