package vectorindex

import (
	"encoding/gob"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
)

// snapshot is the on-disk representation of an index. The format preserves
// dimension, all vectors, and insertion order exactly.
type snapshot struct {
	Dimension int
	IDs       []model.DocumentID
	Vectors   [][]float32
}

// Save writes the index to w
func (x *Index) Save(w io.Writer) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	snap := snapshot{
		Dimension: x.dimension,
		IDs:       x.ids,
		Vectors:   x.vectors,
	}
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return goerr.Wrap(err, "failed to encode vector index")
	}
	return nil
}

// Load restores an index previously written by Save
func Load(r io.Reader) (*Index, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, goerr.Wrap(err, "failed to decode vector index")
	}

	if len(snap.IDs) != len(snap.Vectors) {
		return nil, goerr.New("corrupt vector index snapshot",
			goerr.V("ids", len(snap.IDs)), goerr.V("vectors", len(snap.Vectors)))
	}

	index, err := New(snap.Dimension)
	if err != nil {
		return nil, err
	}
	for i, id := range snap.IDs {
		if err := index.Insert(id, snap.Vectors[i]); err != nil {
			return nil, goerr.Wrap(err, "failed to restore vector", goerr.V("id", id))
		}
	}
	return index, nil
}
