// Package pipeline contains the pure business logic for the candidate
// pipeline. It is transport-agnostic: used by the HTTP handler and usable by
// any other transport layer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hireflow/pipeline-service/internal/domain"
	"hireflow/pipeline-service/internal/repository"
)

// maxNotesLen bounds the free-text annotation on a history entry. Oversized
// notes are rejected, not truncated: audit text is never silently lost.
const maxNotesLen = 2000

// StageChangedEvent is published after every committed transition.
type StageChangedEvent struct {
	CandidateID string       `json:"candidateId"`
	From        domain.Stage `json:"from"`
	To          domain.Stage `json:"to"`
	Actor       string       `json:"actor,omitempty"`
}

// Notifier publishes stage-change events. Publish failures are logged by the
// service and never fail the transition.
type Notifier interface {
	StageChanged(ctx context.Context, ev StageChangedEvent) error
}

// Service encapsulates the pipeline state machine: validated transitions,
// the append-only history ledger, bulk updates and aggregate statistics.
type Service struct {
	catalog *Catalog
	repo    repository.CandidateRepository
	nf      Notifier
	now     func() time.Time
}

// NewService returns a configured Service. nf may be nil when no event bus
// is wired (tests, offline tooling).
func NewService(catalog *Catalog, repo repository.CandidateRepository, nf Notifier) *Service {
	return &Service{
		catalog: catalog,
		repo:    repo,
		nf:      nf,
		now:     time.Now,
	}
}

// Catalog exposes the injected stage catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// NewCandidate carries the intake fields for CreateCandidate.
type NewCandidate struct {
	FullName string
	Email    string
	Location string
	Skills   []string
}

// CreateCandidate registers a candidate at the applied stage with a synthetic
// first history entry (no fromStage).
func (s *Service) CreateCandidate(ctx context.Context, in NewCandidate, actor string) (*domain.Candidate, error) {
	if in.FullName == "" {
		return nil, &ValidationError{Msg: "fullName is required"}
	}
	if in.Email == "" {
		return nil, &ValidationError{Msg: "email is required"}
	}

	cand := domain.Candidate{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		Location:     in.Location,
		Skills:       in.Skills,
		CurrentStage: domain.StageApplied,
		StageHistory: []domain.HistoryEntry{{
			ID:        uuid.NewString(),
			ToStage:   domain.StageApplied,
			ChangedBy: actor,
			Timestamp: s.now().UTC(),
		}},
		IsActive: true,
	}

	created, err := s.repo.Create(ctx, cand)
	if err != nil {
		return nil, &PersistenceError{Op: "create candidate", Err: err}
	}
	return created, nil
}

// Transition moves a candidate to a new pipeline stage.
//
// The flow is read → validate → single conditional write: the update only
// applies while the stored stage still equals the value read here, so two
// concurrent transitions on one candidate cannot both win. The loser gets a
// StaleTransitionError and must re-read before retrying; the service never
// retries on its own, to avoid masking the caller's stale intent.
func (s *Service) Transition(ctx context.Context, candidateID, toStage, actor, notes string) (*domain.Candidate, error) {
	if err := validateNotes(notes); err != nil {
		return nil, err
	}

	cand, err := s.repo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, mapRepoError(err, candidateID, "")
	}

	current := cand.CurrentStage
	target, err := s.catalog.ParseStage(toStage)
	if err != nil {
		// An unrecognized target can never be a legal move.
		return nil, &InvalidTransitionError{From: current, To: domain.Stage(toStage)}
	}
	if current == target {
		// No-op moves never reach the validator or the store.
		return nil, &InvalidTransitionError{From: current, To: target}
	}
	if !s.catalog.IsValidTransition(current, target) {
		return nil, &InvalidTransitionError{From: current, To: target}
	}

	entry := domain.HistoryEntry{
		ID:        uuid.NewString(),
		FromStage: current,
		ToStage:   target,
		ChangedBy: actor,
		Notes:     notes,
		Timestamp: s.entryTimestamp(cand),
	}

	updated, err := s.repo.UpdateStageCAS(ctx, candidateID, current, entry)
	if err != nil {
		return nil, mapRepoError(err, candidateID, current)
	}

	s.publish(ctx, StageChangedEvent{
		CandidateID: candidateID,
		From:        current,
		To:          target,
		Actor:       actor,
	})
	return updated, nil
}

// GetHistory returns the candidate's stage changes, oldest first.
func (s *Service) GetHistory(ctx context.Context, candidateID string) ([]domain.HistoryEntry, error) {
	cand, err := s.repo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, mapRepoError(err, candidateID, "")
	}
	history := make([]domain.HistoryEntry, len(cand.StageHistory))
	copy(history, cand.StageHistory)
	return history, nil
}

// GetCandidate returns a single active candidate by ID.
func (s *Service) GetCandidate(ctx context.Context, candidateID string) (*domain.Candidate, error) {
	cand, err := s.repo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, mapRepoError(err, candidateID, "")
	}
	return cand, nil
}

// ValidTransitionsFrom returns the stages directly reachable from stage.
// Unknown stage names are a validation error; terminal stages return an
// empty list.
func (s *Service) ValidTransitionsFrom(stage string) ([]domain.Stage, error) {
	st, err := s.catalog.ParseStage(stage)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	return s.catalog.ValidTransitionsFrom(st), nil
}

// entryTimestamp assigns the server-side timestamp for a new history entry,
// clamped forward when the clock reads earlier than the candidate's last
// entry so the per-candidate log stays monotonically non-decreasing.
func (s *Service) entryTimestamp(cand *domain.Candidate) time.Time {
	ts := s.now().UTC()
	if last := cand.LastHistoryEntry(); last != nil && ts.Before(last.Timestamp) {
		return last.Timestamp
	}
	return ts
}

func (s *Service) publish(ctx context.Context, ev StageChangedEvent) {
	if s.nf == nil {
		return
	}
	if err := s.nf.StageChanged(ctx, ev); err != nil {
		slog.Warn("publish stage change failed",
			"candidateId", ev.CandidateID, "from", ev.From, "to", ev.To, "err", err)
	}
}

func validateNotes(notes string) error {
	if len(notes) > maxNotesLen {
		return &ValidationError{
			Msg: fmt.Sprintf("notes exceed %d characters", maxNotesLen),
		}
	}
	return nil
}

// mapRepoError converts repository sentinels into the typed error taxonomy.
func mapRepoError(err error, candidateID string, expected domain.Stage) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &NotFoundError{CandidateID: candidateID}
	case errors.Is(err, repository.ErrStaleStage):
		return &StaleTransitionError{CandidateID: candidateID, Expected: expected}
	default:
		return &PersistenceError{Op: "candidate store", Err: err}
	}
}
