package trends

import (
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/magpie/pkg/model"
)

// Policy thresholds carried over from the source behavior. Fixed on
// purpose, not configuration.
const (
	repeatedRiskMinRecords = 2
	emergingThemeMinCount  = 3
)

// LabelCount is one row of a frequency table.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SentimentPoint is one entry of the sentiment timeline.
type SentimentPoint struct {
	Timestamp time.Time            `json:"timestamp"`
	Label     model.SentimentLabel `json:"label"`
	Score     float64              `json:"score"`
}

// ActionItemStats partitions action items by status.
type ActionItemStats struct {
	Open           int     `json:"open"`
	Closed         int     `json:"closed"`
	CompletionRate float64 `json:"completion_rate"`
}

// Snapshot is the full aggregation result over a set of insight records.
// It is derived data: recomputed on demand, never cached.
type Snapshot struct {
	Records int `json:"records"`

	Topics        []LabelCount `json:"topics"`
	Risks         []LabelCount `json:"risks"`
	Opportunities []LabelCount `json:"opportunities"`

	SentimentTimeline []SentimentPoint `json:"sentiment_timeline"`
	ActionItems       ActionItemStats  `json:"action_items"`

	RepeatedRisks  []model.RepeatedRisk  `json:"repeated_risks"`
	EmergingThemes []model.EmergingTheme `json:"emerging_themes"`
}

// normalizeLabel folds a label for counting: whitespace collapsed, lower
// cased. Matching is exact string equality after normalization; there is no
// fuzzy unification of near-duplicate phrasings.
func normalizeLabel(label string) string {
	return strings.ToLower(model.NormalizeText(label))
}

// Aggregate computes a snapshot from the given records. It is a pure
// function: no state is retained between calls, and an empty input yields
// an empty snapshot without error.
func Aggregate(records []*model.InsightRecord) *Snapshot {
	snap := &Snapshot{Records: len(records)}

	// Chronological order so that "latest occurrence" is well defined
	ordered := append([]*model.InsightRecord(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	topicCounts := make(map[string]int)
	riskCounts := make(map[string]int)
	oppCounts := make(map[string]int)

	type riskState struct {
		records  map[model.DocumentID]struct{}
		lastSeen time.Time
		resolved bool
	}
	riskStates := make(map[string]*riskState)

	for _, record := range ordered {
		for _, topic := range record.Topics {
			topicCounts[normalizeLabel(topic)]++
		}
		for _, opp := range record.Opportunities {
			oppCounts[normalizeLabel(opp)]++
		}
		for _, risk := range record.Risks {
			label := normalizeLabel(risk.Text)
			riskCounts[label]++

			state, ok := riskStates[label]
			if !ok {
				state = &riskState{records: make(map[model.DocumentID]struct{})}
				riskStates[label] = state
			}
			state.records[record.ID] = struct{}{}
			// Records are chronologically ordered, so the last write wins
			state.lastSeen = record.CreatedAt
			state.resolved = risk.Resolved
		}

		for _, item := range record.ActionItems {
			switch item.Status {
			case model.ActionItemClosed:
				snap.ActionItems.Closed++
			default:
				snap.ActionItems.Open++
			}
		}

		snap.SentimentTimeline = append(snap.SentimentTimeline, SentimentPoint{
			Timestamp: record.CreatedAt,
			Label:     record.Sentiment.Label,
			Score:     record.Sentiment.Score,
		})
	}

	snap.Topics = freqTable(topicCounts)
	snap.Risks = freqTable(riskCounts)
	snap.Opportunities = freqTable(oppCounts)

	if total := snap.ActionItems.Open + snap.ActionItems.Closed; total > 0 {
		snap.ActionItems.CompletionRate = float64(snap.ActionItems.Closed) / float64(total)
	}

	for label, state := range riskStates {
		if len(state.records) >= repeatedRiskMinRecords && !state.resolved {
			snap.RepeatedRisks = append(snap.RepeatedRisks, model.RepeatedRisk{
				Label:    label,
				Count:    len(state.records),
				LastSeen: state.lastSeen,
			})
		}
	}
	sort.Slice(snap.RepeatedRisks, func(i, j int) bool {
		if snap.RepeatedRisks[i].Count != snap.RepeatedRisks[j].Count {
			return snap.RepeatedRisks[i].Count > snap.RepeatedRisks[j].Count
		}
		return snap.RepeatedRisks[i].Label < snap.RepeatedRisks[j].Label
	})

	for label, count := range topicCounts {
		if count >= emergingThemeMinCount {
			snap.EmergingThemes = append(snap.EmergingThemes, model.EmergingTheme{
				Label: label,
				Count: count,
			})
		}
	}
	sort.Slice(snap.EmergingThemes, func(i, j int) bool {
		if snap.EmergingThemes[i].Count != snap.EmergingThemes[j].Count {
			return snap.EmergingThemes[i].Count > snap.EmergingThemes[j].Count
		}
		return snap.EmergingThemes[i].Label < snap.EmergingThemes[j].Label
	})

	return snap
}

// freqTable converts counts into a table sorted by descending count, ties
// broken alphabetically.
func freqTable(counts map[string]int) []LabelCount {
	table := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		table = append(table, LabelCount{Label: label, Count: count})
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].Count != table[j].Count {
			return table[i].Count > table[j].Count
		}
		return table[i].Label < table[j].Label
	})
	return table
}
