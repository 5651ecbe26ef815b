package pipeline

import (
	"context"

	"hireflow/pipeline-service/internal/domain"
)

// StageDistribution counts active candidates per stage. Every catalog stage
// is present as a key, zero-filled, so callers never special-case missing
// stages. The view is read-only and eventually consistent: it reflects what
// was committed at query time and takes no lock against in-flight
// transitions.
func (s *Service) StageDistribution(ctx context.Context, filter domain.StatsFilter) (map[domain.Stage]int64, error) {
	counts, err := s.repo.CountByStage(ctx, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "stage distribution", Err: err}
	}

	dist := make(map[domain.Stage]int64, len(s.catalog.stages))
	for _, stage := range s.catalog.stages {
		dist[stage] = counts[stage]
	}
	return dist, nil
}

// PipelineStats computes the aggregate pipeline view over the filtered
// candidate set. Conversion rate is the percentage of candidates past the
// applied stage; hire rate the percentage at hired. Both are 0 when the set
// is empty.
func (s *Service) PipelineStats(ctx context.Context, filter domain.StatsFilter) (*domain.PipelineStats, error) {
	dist, err := s.StageDistribution(ctx, filter)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range dist {
		total += n
	}

	stats := &domain.PipelineStats{
		StageDistribution: dist,
		TotalCandidates:   total,
	}
	if total > 0 {
		stats.ConversionRate = float64(total-dist[domain.StageApplied]) / float64(total) * 100
		stats.HireRate = float64(dist[domain.StageHired]) / float64(total) * 100
	}
	return stats, nil
}
