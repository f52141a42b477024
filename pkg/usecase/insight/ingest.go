package insight

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/m-mizutani/magpie/pkg/policy"
	"github.com/m-mizutani/magpie/pkg/utils/logging"
)

// ErrPolicyRejected is returned when the Rego ingest gate skips a document.
var ErrPolicyRejected = goerr.New("document rejected by ingest policy")

// Ingest runs the full ingestion workflow for one document:
//  1. Normalize text and compute the content fingerprint
//  2. Existence gate: identical content is a no-op success, never an error
//  3. Optional Rego policy gate
//  4. Call the extraction and embedding services
//  5. Joint insert into the record store and vector index; if any external
//     call fails, neither store is written
//
// The returned bool reports whether a new record was created.
func (u *UseCase) Ingest(ctx context.Context, text string) (*model.InsightRecord, bool, error) {
	normalized := model.NormalizeText(text)
	if normalized == "" {
		return nil, false, goerr.New("document text is empty")
	}

	fp := model.NewFingerprint(normalized)
	id := fp.DocumentID()
	logger := logging.From(ctx)

	// Dedup gate: second ingestion of identical content returns the
	// existing record untouched.
	exists, err := u.repo.HasInsight(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if exists {
		logger.Info("document already ingested", "id", id)
		record, err := u.repo.GetInsight(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return record, false, nil
	}

	if u.gate != nil {
		decision, err := u.gate.Evaluate(ctx, &policy.Input{
			ID:          id,
			Fingerprint: string(fp),
			Text:        normalized,
			Length:      len(normalized),
		})
		if err != nil {
			return nil, false, err
		}
		if decision.Skip {
			return nil, false, goerr.Wrap(ErrPolicyRejected, "skipped",
				goerr.V("id", id), goerr.V("reason", decision.Reason))
		}
	}

	// Both external results must be available before either store is
	// written, so a failed call leaves the stores in lockstep.
	payload, err := u.extract(ctx, normalized)
	if err != nil {
		return nil, false, err
	}

	vector, err := u.gemini.Embedding(ctx, normalized)
	if err != nil {
		return nil, false, goerr.Wrap(err, "embedding service failed", goerr.V("id", id))
	}
	if len(vector) != u.index.Dimension() {
		return nil, false, goerr.Wrap(model.ErrDimensionMismatch, "embedding service returned unexpected dimension",
			goerr.V("id", id),
			goerr.V("expected", u.index.Dimension()), goerr.V("actual", len(vector)))
	}

	record, err := payload.toRecord(id, fp, time.Now())
	if err != nil {
		return nil, false, err
	}

	if err := u.repo.PutInsight(ctx, record); err != nil {
		return nil, false, err
	}
	if err := u.index.Insert(id, vector); err != nil {
		// The record is already durable at this point; VerifyLockstep
		// reports the gap at the next engine load.
		return nil, false, goerr.Wrap(err, "failed to index embedding", goerr.V("id", id))
	}

	if u.storage != nil {
		if err := u.archive(ctx, id, normalized); err != nil {
			// Archiving raw text is supplementary; the record and vector
			// are already durable.
			logger.Warn("failed to archive document text", "id", id, "error", err)
		}
	}

	logger.Info("document ingested", "id", id, "topics", len(record.Topics))
	return record, true, nil
}

func (u *UseCase) archive(ctx context.Context, id model.DocumentID, text string) error {
	w, err := u.storage.Put(ctx, "documents/"+string(id)+".txt")
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(text)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write document text")
	}
	return w.Close()
}
