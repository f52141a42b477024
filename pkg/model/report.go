package model

import (
	"time"

	"github.com/google/uuid"
)

type ReportID string

// NewReportID generates a new unique ReportID
func NewReportID() ReportID {
	return ReportID(uuid.New().String())
}

// StrategicSignals are the numeric indicators of a strategic report.
type StrategicSignals struct {
	// CompletionRate is closed / (open + closed) action items, 0 when none.
	CompletionRate float64 `json:"completion_rate"`
	// TopTopicShare is the share of all topic mentions held by the single
	// most frequent topic.
	TopTopicShare float64 `json:"top_topic_share"`
	// TopicEntropy is the Shannon entropy (bits) of the topic distribution.
	// Low entropy means discussion concentrates on few topics.
	TopicEntropy float64 `json:"topic_entropy"`
}

// RepeatedRisk is a risk label raised in two or more distinct documents and
// still unresolved at its latest occurrence.
type RepeatedRisk struct {
	Label    string    `json:"label"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// EmergingTheme is a topic label whose total mention count crossed the
// emergence threshold.
type EmergingTheme struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StrategicReport is the structured payload assembled over a bounded window
// of recent records. Rendering it into prose is left to the LLM collaborator.
type StrategicReport struct {
	ID          ReportID  `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`

	WindowSize        int              `json:"window_size"`
	SummaryCandidates []string         `json:"summary_candidates"`
	RepeatedRisks     []RepeatedRisk   `json:"repeated_risks"`
	EmergingThemes    []EmergingTheme  `json:"emerging_themes"`
	Signals           StrategicSignals `json:"signals"`
}
