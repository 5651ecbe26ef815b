// Package testsupport provides an in-memory candidate repository and fixture
// helpers for tests that should not depend on PostgreSQL.
package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"hireflow/pipeline-service/internal/domain"
	"hireflow/pipeline-service/internal/repository"
)

// MemRepo is an in-memory repository.CandidateRepository with the same
// conditional-update semantics as the PostgreSQL implementation: the stage
// guard is checked and applied under one lock, so concurrent CAS updates on
// one candidate have exactly one winner.
type MemRepo struct {
	mu         sync.Mutex
	candidates map[string]*domain.Candidate

	// FailWith, when set, is returned by every method. Lets tests exercise
	// the persistence-failure paths.
	FailWith error
}

// NewMemRepo returns an empty MemRepo.
func NewMemRepo() *MemRepo {
	return &MemRepo{candidates: make(map[string]*domain.Candidate)}
}

var _ repository.CandidateRepository = (*MemRepo)(nil)

func (m *MemRepo) Create(ctx context.Context, cand domain.Candidate) (*domain.Candidate, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	cand.CreatedAt = now
	cand.UpdatedAt = now
	m.candidates[cand.ID] = clone(&cand)
	return clone(&cand), nil
}

func (m *MemRepo) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cand, ok := m.candidates[id]
	if !ok || !cand.IsActive {
		return nil, repository.ErrNotFound
	}
	return clone(cand), nil
}

func (m *MemRepo) UpdateStageCAS(ctx context.Context, id string, expected domain.Stage, entry domain.HistoryEntry) (*domain.Candidate, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cand, ok := m.candidates[id]
	if !ok || !cand.IsActive {
		return nil, repository.ErrNotFound
	}
	if cand.CurrentStage != expected {
		return nil, repository.ErrStaleStage
	}
	cand.CurrentStage = entry.ToStage
	cand.StageHistory = append(cand.StageHistory, entry)
	cand.UpdatedAt = time.Now().UTC()
	return clone(cand), nil
}

func (m *MemRepo) CountByStage(ctx context.Context, filter domain.StatsFilter) (map[domain.Stage]int64, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[domain.Stage]int64)
	for _, cand := range m.candidates {
		if !cand.IsActive || !matches(cand, filter) {
			continue
		}
		counts[cand.CurrentStage]++
	}
	return counts, nil
}

// Deactivate soft-deletes a candidate, mirroring the CRUD layer.
func (m *MemRepo) Deactivate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cand, ok := m.candidates[id]; ok {
		cand.IsActive = false
	}
}

func matches(cand *domain.Candidate, filter domain.StatsFilter) bool {
	if filter.AppliedAfter != nil && cand.CreatedAt.Before(*filter.AppliedAfter) {
		return false
	}
	if filter.AppliedBefore != nil && cand.CreatedAt.After(*filter.AppliedBefore) {
		return false
	}
	if filter.Location != "" && cand.Location != filter.Location {
		return false
	}
	for _, want := range filter.Skills {
		found := false
		for _, have := range cand.Skills {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func clone(c *domain.Candidate) *domain.Candidate {
	out := *c
	out.Skills = append([]string(nil), c.Skills...)
	out.StageHistory = append([]domain.HistoryEntry(nil), c.StageHistory...)
	return &out
}

// ─── Fixture helpers ─────────────────────────────────────────────────────────

// NewCandidate seeds a candidate at the given stage with a contiguous
// history chain from applied, and fails the test on error.
func NewCandidate(t testing.TB, repo *MemRepo, stage domain.Stage) *domain.Candidate {
	t.Helper()

	path := []domain.Stage{
		domain.StageApplied,
		domain.StageScreening,
		domain.StageInterview,
		domain.StageOffer,
		domain.StageHired,
	}

	base := time.Now().UTC().Add(-time.Hour)
	history := []domain.HistoryEntry{{
		ID:        uuid.NewString(),
		ToStage:   domain.StageApplied,
		ChangedBy: "seed",
		Timestamp: base,
	}}

	if stage == domain.StageRejected {
		history = append(history, domain.HistoryEntry{
			ID:        uuid.NewString(),
			FromStage: domain.StageApplied,
			ToStage:   domain.StageRejected,
			ChangedBy: "seed",
			Timestamp: base.Add(time.Minute),
		})
	} else {
		for i := 1; i < len(path) && path[i-1] != stage; i++ {
			history = append(history, domain.HistoryEntry{
				ID:        uuid.NewString(),
				FromStage: path[i-1],
				ToStage:   path[i],
				ChangedBy: "seed",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			})
		}
	}

	cand, err := repo.Create(context.Background(), domain.Candidate{
		ID:           uuid.NewString(),
		FullName:     "Test Candidate",
		Email:        "candidate@example.com",
		CurrentStage: stage,
		StageHistory: history,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("seed candidate: %v", err)
	}
	return cand
}

// NewCandidateWithProfile seeds an applied-stage candidate with the given
// location and skills for aggregation-filter tests.
func NewCandidateWithProfile(t testing.TB, repo *MemRepo, stage domain.Stage, location string, skills []string) *domain.Candidate {
	t.Helper()

	cand, err := repo.Create(context.Background(), domain.Candidate{
		ID:           uuid.NewString(),
		FullName:     "Test Candidate",
		Email:        "candidate@example.com",
		Location:     location,
		Skills:       skills,
		CurrentStage: stage,
		StageHistory: []domain.HistoryEntry{{
			ID:        uuid.NewString(),
			ToStage:   domain.StageApplied,
			ChangedBy: "seed",
			Timestamp: time.Now().UTC().Add(-time.Hour),
		}},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed candidate: %v", err)
	}
	return cand
}
