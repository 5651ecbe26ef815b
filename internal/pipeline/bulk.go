package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"hireflow/pipeline-service/internal/domain"
)

// bulkConcurrency bounds the fan-out of a bulk transition. Requests touch
// disjoint candidates, so they can run concurrently without shared state.
const bulkConcurrency = 8

// BulkRequest is one item of a bulk transition.
type BulkRequest struct {
	CandidateID string `json:"candidateId"`
	ToStage     string `json:"toStage"`
	Notes       string `json:"notes,omitempty"`
}

// BulkFailure records one failed item with enough detail to retry it.
type BulkFailure struct {
	CandidateID string `json:"candidateId"`
	ToStage     string `json:"toStage"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

// BulkResult splits a bulk transition into its successes and failures.
// Both slices preserve the input order of their items.
type BulkResult struct {
	Successful []*domain.Candidate `json:"successful"`
	Failed     []BulkFailure       `json:"failed"`
}

// BulkTransition applies Transition to each request independently: one
// item's failure never aborts or rolls back another's success, and there is
// no cross-candidate transaction.
//
// Cancelling ctx stops new items from starting; transitions already
// committed stay committed (no compensation is attempted) and unattempted
// items are reported as retryable persistence failures carrying the context
// error.
func (s *Service) BulkTransition(ctx context.Context, requests []BulkRequest, actor string) *BulkResult {
	type slot struct {
		cand *domain.Candidate
		fail *BulkFailure
	}
	slots := make([]slot, len(requests))

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				err = &PersistenceError{Op: "bulk transition", Err: err}
				slots[i] = slot{fail: newBulkFailure(req, err)}
				return nil
			}
			cand, err := s.Transition(ctx, req.CandidateID, req.ToStage, actor, req.Notes)
			if err != nil {
				slots[i] = slot{fail: newBulkFailure(req, err)}
				return nil
			}
			slots[i] = slot{cand: cand}
			return nil
		})
	}
	// Workers never return errors; per-item failures land in slots.
	_ = g.Wait()

	result := &BulkResult{
		Successful: make([]*domain.Candidate, 0, len(requests)),
		Failed:     make([]BulkFailure, 0),
	}
	for _, sl := range slots {
		if sl.fail != nil {
			result.Failed = append(result.Failed, *sl.fail)
			continue
		}
		result.Successful = append(result.Successful, sl.cand)
	}
	return result
}

func newBulkFailure(req BulkRequest, err error) *BulkFailure {
	return &BulkFailure{
		CandidateID: req.CandidateID,
		ToStage:     req.ToStage,
		Code:        ErrorCode(err),
		Message:     err.Error(),
	}
}
