package digest

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/magpie/pkg/adapter"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/m-mizutani/magpie/pkg/repository"
	"github.com/m-mizutani/magpie/pkg/trends"
)

// UseCase assembles strategic reports over a bounded window of recent
// insight records.
type UseCase struct {
	repo   repository.Repository
	gemini adapter.Gemini
}

// New creates a new digest UseCase instance
func New(repo repository.Repository, gemini adapter.Gemini) *UseCase {
	return &UseCase{
		repo:   repo,
		gemini: gemini,
	}
}

// Window bounds the suffix of chronologically recent records considered by
// a report. Count takes the last N records; Since drops records created
// before it. Zero values mean unbounded.
type Window struct {
	Count int
	Since time.Time
}

const maxSummaryCandidates = 5

// BuildReport aggregates the windowed records and assembles the strategic
// report payload. Rendering it into prose is a separate step.
func (u *UseCase) BuildReport(ctx context.Context, window Window) (*model.StrategicReport, error) {
	records, err := u.repo.ListInsights(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	if !window.Since.IsZero() {
		kept := records[:0]
		for _, record := range records {
			if !record.CreatedAt.Before(window.Since) {
				kept = append(kept, record)
			}
		}
		records = kept
	}
	if window.Count > 0 && len(records) > window.Count {
		records = records[len(records)-window.Count:]
	}

	snap := trends.Aggregate(records)

	report := &model.StrategicReport{
		ID:             model.NewReportID(),
		GeneratedAt:    time.Now(),
		WindowSize:     len(records),
		RepeatedRisks:  snap.RepeatedRisks,
		EmergingThemes: snap.EmergingThemes,
		Signals: model.StrategicSignals{
			CompletionRate: snap.ActionItems.CompletionRate,
			TopTopicShare:  topTopicShare(snap.Topics),
			TopicEntropy:   topicEntropy(snap.Topics),
		},
	}

	// Most recent summaries first
	for i := len(records) - 1; i >= 0 && len(report.SummaryCandidates) < maxSummaryCandidates; i-- {
		report.SummaryCandidates = append(report.SummaryCandidates, records[i].Summary)
	}

	return report, nil
}

// topTopicShare is the fraction of all topic mentions held by the single
// most frequent topic.
func topTopicShare(topics []trends.LabelCount) float64 {
	total := 0
	for _, t := range topics {
		total += t.Count
	}
	if total == 0 {
		return 0
	}
	return float64(topics[0].Count) / float64(total)
}

// topicEntropy is the Shannon entropy (bits) of the topic distribution.
func topicEntropy(topics []trends.LabelCount) float64 {
	total := 0
	for _, t := range topics {
		total += t.Count
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, t := range topics {
		p := float64(t.Count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
