package pipeline_test

import (
	"context"
	"testing"
	"time"

	"hireflow/pipeline-service/internal/domain"
	"hireflow/pipeline-service/internal/testsupport"
)

func seedAtStages(t *testing.T, repo *testsupport.MemRepo, counts map[domain.Stage]int) {
	t.Helper()
	for stage, n := range counts {
		for i := 0; i < n; i++ {
			testsupport.NewCandidate(t, repo, stage)
		}
	}
}

func TestPipelineStats_EmptyPipeline(t *testing.T) {
	svc := newService(testsupport.NewMemRepo())

	stats, err := svc.PipelineStats(context.Background(), domain.StatsFilter{})
	if err != nil {
		t.Fatalf("PipelineStats: %v", err)
	}
	if stats.TotalCandidates != 0 {
		t.Errorf("TotalCandidates = %d, want 0", stats.TotalCandidates)
	}
	if stats.ConversionRate != 0 {
		t.Errorf("ConversionRate = %v, want 0 (no division by zero)", stats.ConversionRate)
	}
	if stats.HireRate != 0 {
		t.Errorf("HireRate = %v, want 0 (no division by zero)", stats.HireRate)
	}
}

func TestStageDistribution_EveryStagePresent(t *testing.T) {
	repo := testsupport.NewMemRepo()
	svc := newService(repo)
	testsupport.NewCandidate(t, repo, domain.StageInterview)

	dist, err := svc.StageDistribution(context.Background(), domain.StatsFilter{})
	if err != nil {
		t.Fatalf("StageDistribution: %v", err)
	}
	if len(dist) != len(allStages) {
		t.Fatalf("distribution has %d keys, want %d", len(dist), len(allStages))
	}
	for _, s := range allStages {
		if _, ok := dist[s]; !ok {
			t.Errorf("distribution missing stage %s", s)
		}
	}
	if dist[domain.StageInterview] != 1 {
		t.Errorf("dist[interview] = %d, want 1", dist[domain.StageInterview])
	}
	if dist[domain.StageHired] != 0 {
		t.Errorf("dist[hired] = %d, want 0", dist[domain.StageHired])
	}
}

// 100 candidates: 40 applied, 30 screening, 20 interview, 5 offer, 5 hired
// → conversionRate 60, hireRate 5.
func TestPipelineStats_RateComputation(t *testing.T) {
	repo := testsupport.NewMemRepo()
	svc := newService(repo)
	seedAtStages(t, repo, map[domain.Stage]int{
		domain.StageApplied:   40,
		domain.StageScreening: 30,
		domain.StageInterview: 20,
		domain.StageOffer:     5,
		domain.StageHired:     5,
	})

	stats, err := svc.PipelineStats(context.Background(), domain.StatsFilter{})
	if err != nil {
		t.Fatalf("PipelineStats: %v", err)
	}
	if stats.TotalCandidates != 100 {
		t.Fatalf("TotalCandidates = %d, want 100", stats.TotalCandidates)
	}
	if stats.ConversionRate != 60 {
		t.Errorf("ConversionRate = %v, want 60", stats.ConversionRate)
	}
	if stats.HireRate != 5 {
		t.Errorf("HireRate = %v, want 5", stats.HireRate)
	}
}

func TestPipelineStats_ExcludesInactive(t *testing.T) {
	repo := testsupport.NewMemRepo()
	svc := newService(repo)
	active := testsupport.NewCandidate(t, repo, domain.StageHired)
	ghost := testsupport.NewCandidate(t, repo, domain.StageHired)
	repo.Deactivate(ghost.ID)
	_ = active

	stats, err := svc.PipelineStats(context.Background(), domain.StatsFilter{})
	if err != nil {
		t.Fatalf("PipelineStats: %v", err)
	}
	if stats.TotalCandidates != 1 {
		t.Errorf("TotalCandidates = %d, want 1 (inactive excluded)", stats.TotalCandidates)
	}
	if stats.HireRate != 100 {
		t.Errorf("HireRate = %v, want 100", stats.HireRate)
	}
}

func TestStageDistribution_FilterByLocationAndSkills(t *testing.T) {
	repo := testsupport.NewMemRepo()
	svc := newService(repo)
	testsupport.NewCandidateWithProfile(t, repo, domain.StageApplied, "Berlin", []string{"go", "sql"})
	testsupport.NewCandidateWithProfile(t, repo, domain.StageApplied, "Berlin", []string{"java"})
	testsupport.NewCandidateWithProfile(t, repo, domain.StageApplied, "Lisbon", []string{"go"})

	dist, err := svc.StageDistribution(context.Background(), domain.StatsFilter{
		Location: "Berlin",
		Skills:   []string{"go"},
	})
	if err != nil {
		t.Fatalf("StageDistribution: %v", err)
	}
	if dist[domain.StageApplied] != 1 {
		t.Errorf("dist[applied] = %d, want 1 (Berlin + go only)", dist[domain.StageApplied])
	}
}

func TestStageDistribution_FilterByDateRange(t *testing.T) {
	repo := testsupport.NewMemRepo()
	svc := newService(repo)
	testsupport.NewCandidate(t, repo, domain.StageApplied)

	past := time.Now().UTC().Add(-24 * time.Hour)
	dist, err := svc.StageDistribution(context.Background(), domain.StatsFilter{
		AppliedBefore: &past,
	})
	if err != nil {
		t.Fatalf("StageDistribution: %v", err)
	}
	if dist[domain.StageApplied] != 0 {
		t.Errorf("dist[applied] = %d, want 0 (created after cutoff)", dist[domain.StageApplied])
	}

	dist, err = svc.StageDistribution(context.Background(), domain.StatsFilter{
		AppliedAfter: &past,
	})
	if err != nil {
		t.Fatalf("StageDistribution: %v", err)
	}
	if dist[domain.StageApplied] != 1 {
		t.Errorf("dist[applied] = %d, want 1 (created inside range)", dist[domain.StageApplied])
	}
}
