// Package domain defines the candidate pipeline data model shared by the
// repository and service layers.
package domain

import "time"

// Candidate is the JSON shape returned to the Gateway / web clients.
// Only the pipeline-related fields are owned by this service; profile fields
// (name, email, skills, location) are written once at intake and managed by
// the candidate CRUD layer.
type Candidate struct {
	ID           string         `json:"id"`
	FullName     string         `json:"fullName"`
	Email        string         `json:"email"`
	Location     string         `json:"location,omitempty"`
	Skills       []string       `json:"skills,omitempty"`
	CurrentStage Stage          `json:"currentStage"`
	StageHistory []HistoryEntry `json:"stageHistory"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// LastHistoryEntry returns the most recent stage change, or nil when the
// candidate has no history yet.
func (c *Candidate) LastHistoryEntry() *HistoryEntry {
	if len(c.StageHistory) == 0 {
		return nil
	}
	return &c.StageHistory[len(c.StageHistory)-1]
}

// HistoryEntry is one immutable audit record in a candidate's stage_history
// jsonb log. Entries are only ever appended, never rewritten.
type HistoryEntry struct {
	ID        string    `json:"id"`
	FromStage Stage     `json:"fromStage,omitempty"`
	ToStage   Stage     `json:"toStage"`
	ChangedBy string    `json:"changedBy,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsFilter restricts the candidate set seen by the aggregation queries.
// Zero-valued fields are ignored; values are passed through to the SQL layer.
type StatsFilter struct {
	AppliedAfter  *time.Time
	AppliedBefore *time.Time
	Location      string
	Skills        []string
}

// PipelineStats is the aggregate view of the active pipeline.
// Rates are percentages; both are 0 when TotalCandidates is 0.
type PipelineStats struct {
	StageDistribution map[Stage]int64 `json:"stageDistribution"`
	TotalCandidates   int64           `json:"totalCandidates"`
	ConversionRate    float64         `json:"conversionRate"`
	HireRate          float64         `json:"hireRate"`
}
