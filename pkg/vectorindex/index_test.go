package vectorindex_test

import (
	"bytes"
	"encoding/gob"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/m-mizutani/magpie/pkg/vectorindex"
)

func TestNewRejectsBadDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		_, err := vectorindex.New(dim)
		gt.Error(t, err)
		gt.V(t, errors.Is(err, model.ErrDimensionMismatch)).Equal(true)
	}
}

func TestQueryOrdering(t *testing.T) {
	index, err := vectorindex.New(3)
	gt.NoError(t, err)

	// Vectors at increasing angles from the query direction
	gt.NoError(t, index.Insert("far", []float32{0, 1, 0}))
	gt.NoError(t, index.Insert("near", []float32{1, 0.1, 0}))
	gt.NoError(t, index.Insert("exact", []float32{2, 0, 0}))

	results, err := index.Query([]float32{1, 0, 0}, 10)
	gt.NoError(t, err)
	gt.A(t, results).Length(3)

	gt.Equal(t, results[0].ID, model.DocumentID("exact"))
	gt.Equal(t, results[1].ID, model.DocumentID("near"))
	gt.Equal(t, results[2].ID, model.DocumentID("far"))

	for i := 1; i < len(results); i++ {
		gt.V(t, results[i-1].Score >= results[i].Score).Equal(true)
	}

	// Cosine similarity ignores magnitude
	gt.V(t, results[0].Score > 0.999).Equal(true)
}

func TestQueryTieBreakByInsertionOrder(t *testing.T) {
	index, err := vectorindex.New(2)
	gt.NoError(t, err)

	// Same direction, different magnitudes: identical cosine scores
	gt.NoError(t, index.Insert("first", []float32{1, 1}))
	gt.NoError(t, index.Insert("second", []float32{2, 2}))
	gt.NoError(t, index.Insert("third", []float32{3, 3}))

	results, err := index.Query([]float32{1, 1}, 10)
	gt.NoError(t, err)
	gt.A(t, results).Length(3)
	gt.Equal(t, results[0].ID, model.DocumentID("first"))
	gt.Equal(t, results[1].ID, model.DocumentID("second"))
	gt.Equal(t, results[2].ID, model.DocumentID("third"))
}

func TestQueryTruncatesToK(t *testing.T) {
	index, err := vectorindex.New(2)
	gt.NoError(t, err)

	gt.NoError(t, index.Insert("a", []float32{1, 0}))
	gt.NoError(t, index.Insert("b", []float32{0, 1}))
	gt.NoError(t, index.Insert("c", []float32{1, 1}))

	results, err := index.Query([]float32{1, 0}, 2)
	gt.NoError(t, err)
	gt.A(t, results).Length(2)
	gt.Equal(t, results[0].ID, model.DocumentID("a"))
}

func TestInsertDimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	index, err := vectorindex.New(3)
	gt.NoError(t, err)

	gt.NoError(t, index.Insert("a", []float32{1, 0, 0}))

	err = index.Insert("b", []float32{1, 0})
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrDimensionMismatch)).Equal(true)

	gt.Equal(t, index.Len(), 1)
	gt.Equal(t, index.Has("b"), false)
}

func TestInsertDuplicateID(t *testing.T) {
	index, err := vectorindex.New(2)
	gt.NoError(t, err)

	gt.NoError(t, index.Insert("a", []float32{1, 0}))
	err = index.Insert("a", []float32{0, 1})
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrDuplicateID)).Equal(true)
	gt.Equal(t, index.Len(), 1)
}

func TestQueryEmptyIndex(t *testing.T) {
	index, err := vectorindex.New(2)
	gt.NoError(t, err)

	_, err = index.Query([]float32{1, 0}, 5)
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrEmptyIndex)).Equal(true)
}

func TestQueryDimensionMismatch(t *testing.T) {
	index, err := vectorindex.New(3)
	gt.NoError(t, err)
	gt.NoError(t, index.Insert("a", []float32{1, 0, 0}))

	_, err = index.Query([]float32{1, 0}, 5)
	gt.Error(t, err)
	gt.V(t, errors.Is(err, model.ErrDimensionMismatch)).Equal(true)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	index, err := vectorindex.New(3)
	gt.NoError(t, err)

	gt.NoError(t, index.Insert("a", []float32{1, 0, 0}))
	gt.NoError(t, index.Insert("b", []float32{0, 1, 0}))
	gt.NoError(t, index.Insert("c", []float32{0, 0, 1}))

	buf := &bytes.Buffer{}
	gt.NoError(t, index.Save(buf))

	restored, err := vectorindex.Load(buf)
	gt.NoError(t, err)
	gt.Equal(t, restored.Dimension(), 3)
	gt.Equal(t, restored.Len(), 3)

	// Identical query results after the round trip
	results, err := restored.Query([]float32{0, 1, 0}, 1)
	gt.NoError(t, err)
	gt.A(t, results).Length(1)
	gt.Equal(t, results[0].ID, model.DocumentID("b"))
}

func TestLoadRejectsMalformedInput(t *testing.T) {
	_, err := vectorindex.Load(bytes.NewBufferString("not a gob stream"))
	gt.Error(t, err)
}

func TestLoadRejectsMismatchedSnapshot(t *testing.T) {
	// A structurally valid gob whose ID list outnumbers its vectors
	type snapshot struct {
		Dimension int
		IDs       []model.DocumentID
		Vectors   [][]float32
	}
	buf := &bytes.Buffer{}
	gt.NoError(t, gob.NewEncoder(buf).Encode(&snapshot{
		Dimension: 2,
		IDs:       []model.DocumentID{"a"},
	}))

	_, err := vectorindex.Load(buf)
	gt.Error(t, err)
}
