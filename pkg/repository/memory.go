package repository

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
)

// Memory implements Repository with an in-process map. It is safe for
// concurrent use: writes are atomic with respect to readers, and a snapshot
// taken by ListInsights is unaffected by later inserts.
type Memory struct {
	mu      sync.RWMutex
	records map[model.DocumentID]*model.InsightRecord
	order   []model.DocumentID
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		records: make(map[model.DocumentID]*model.InsightRecord),
	}
}

func (m *Memory) PutInsight(ctx context.Context, record *model.InsightRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.ID]; ok {
		return goerr.Wrap(model.ErrDuplicateID, "insight record already exists",
			goerr.V("id", record.ID))
	}

	m.records[record.ID] = record.Clone()
	m.order = append(m.order, record.ID)
	return nil
}

func (m *Memory) GetInsight(ctx context.Context, id model.DocumentID) (*model.InsightRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "insight record not found",
			goerr.V("id", id))
	}
	return record.Clone(), nil
}

func (m *Memory) HasInsight(ctx context.Context, id model.DocumentID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[id]
	return ok, nil
}

func (m *Memory) ListInsights(ctx context.Context) ([]*model.InsightRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make([]*model.InsightRecord, 0, len(m.order))
	for _, id := range m.order {
		snapshot = append(snapshot, m.records[id].Clone())
	}
	return snapshot, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records), nil
}

// Save writes all records to w as JSON in insertion order. The surrounding
// application calls this at process stop for the persistence round trip.
func (m *Memory) Save(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*model.InsightRecord, 0, len(m.order))
	for _, id := range m.order {
		records = append(records, m.records[id])
	}

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(records); err != nil {
		return goerr.Wrap(err, "failed to encode insight records")
	}
	return nil
}

// LoadMemory restores a repository previously written by Save.
func LoadMemory(r io.Reader) (*Memory, error) {
	var records []*model.InsightRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, goerr.Wrap(err, "failed to decode insight records")
	}

	m := NewMemory()
	for _, record := range records {
		if record == nil {
			return nil, goerr.Wrap(model.ErrInvalidSchema, "snapshot contains a null record")
		}
		if err := m.PutInsight(context.Background(), record); err != nil {
			return nil, goerr.Wrap(err, "failed to restore insight record",
				goerr.V("id", record.ID))
		}
	}
	return m, nil
}
