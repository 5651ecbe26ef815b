// Package repository provides PostgreSQL-backed persistence for candidates.
package repository

import (
	"context"
	"errors"

	"hireflow/pipeline-service/internal/domain"
)

// ErrNotFound is returned when a candidate is missing or soft-deleted.
var ErrNotFound = errors.New("candidate not found")

// ErrStaleStage is returned by UpdateStageCAS when the stored current_stage
// no longer matches the expected value, i.e. a concurrent transition won.
var ErrStaleStage = errors.New("candidate stage changed concurrently")

// CandidateRepository defines the durable-store operations the pipeline
// service needs: point lookup, conditional stage update with history append,
// and a filtered stage aggregation.
type CandidateRepository interface {
	// Create inserts a new candidate with its initial history entry.
	Create(ctx context.Context, cand domain.Candidate) (*domain.Candidate, error)

	// GetByID returns an active candidate, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Candidate, error)

	// UpdateStageCAS atomically sets current_stage to entry.ToStage and
	// appends entry to stage_history, guarded by current_stage == expected.
	// Returns ErrStaleStage when the guard fails on a live candidate and
	// ErrNotFound when the candidate is missing or inactive.
	UpdateStageCAS(ctx context.Context, id string, expected domain.Stage, entry domain.HistoryEntry) (*domain.Candidate, error)

	// CountByStage groups active candidates matching filter by stage.
	// Stages with no candidates are absent from the result.
	CountByStage(ctx context.Context, filter domain.StatsFilter) (map[domain.Stage]int64, error)
}
