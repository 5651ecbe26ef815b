// Package pipeline implements the candidate pipeline state machine.
//
// Valid stage graph:
//
//	applied ──► screening ──► interview ──► offer ──► hired
//	    │            │             │           │
//	    └────────────┴─────────────┴───────────┴──► rejected
//
// hired and rejected are terminal stages.
package pipeline

import (
	"fmt"

	"hireflow/pipeline-service/internal/domain"
)

// Catalog holds the ordered stage set and the allowed transition graph.
// It is built once at startup and treated as immutable; the service takes it
// by injection so tests never depend on hidden package state.
type Catalog struct {
	stages      []domain.Stage
	transitions map[domain.Stage][]domain.Stage
}

// DefaultCatalog returns the hiring workflow catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		stages: []domain.Stage{
			domain.StageApplied,
			domain.StageScreening,
			domain.StageInterview,
			domain.StageOffer,
			domain.StageHired,
			domain.StageRejected,
		},
		transitions: map[domain.Stage][]domain.Stage{
			domain.StageApplied:   {domain.StageScreening, domain.StageRejected},
			domain.StageScreening: {domain.StageInterview, domain.StageRejected},
			domain.StageInterview: {domain.StageOffer, domain.StageRejected},
			domain.StageOffer:     {domain.StageHired, domain.StageRejected},
			// hired and rejected are terminal — no outgoing transitions
		},
	}
}

// Stages returns every catalog stage in pipeline order.
func (c *Catalog) Stages() []domain.Stage {
	out := make([]domain.Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// ParseStage converts a raw string to a Stage, returning an error for
// unknown values. Matching is case-sensitive: only canonical lowercase
// identifiers are accepted.
func (c *Catalog) ParseStage(s string) (domain.Stage, error) {
	st := domain.Stage(s)
	for _, known := range c.stages {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown pipeline stage %q", s)
}

// IsValidTransition returns true when moving from → to is permitted by the
// state machine. Unknown stages, self-transitions and any move out of a
// terminal stage are all invalid. Pure and side-effect free.
func (c *Catalog) IsValidTransition(from, to domain.Stage) bool {
	allowed, ok := c.transitions[from]
	if !ok {
		return false // terminal or unknown stage — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidTransitionsFrom returns the stages directly reachable from s, in
// catalog order. Terminal and unknown stages yield an empty, non-nil slice
// so callers can range without a nil check.
func (c *Catalog) ValidTransitionsFrom(s domain.Stage) []domain.Stage {
	allowed := c.transitions[s]
	out := make([]domain.Stage, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal returns true when s has no outgoing transitions.
func (c *Catalog) IsTerminal(s domain.Stage) bool {
	_, ok := c.transitions[s]
	return !ok && c.isKnown(s)
}

func (c *Catalog) isKnown(s domain.Stage) bool {
	for _, known := range c.stages {
		if s == known {
			return true
		}
	}
	return false
}
