package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hireflow/pipeline-service/internal/domain"
)

const candidateColumns = `id, full_name, email, location, skills,
	       current_stage, stage_history, is_active, created_at, updated_at`

// candidateRepository implements CandidateRepository on pgxpool.
type candidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository returns a PostgreSQL-backed CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) CandidateRepository {
	return &candidateRepository{pool: pool}
}

func (r *candidateRepository) Create(ctx context.Context, cand domain.Candidate) (*domain.Candidate, error) {
	historyJSON, err := json.Marshal(cand.StageHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal stage history: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO candidates (id, full_name, email, location, skills, current_stage, stage_history)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 RETURNING `+candidateColumns,
		cand.ID, cand.FullName, cand.Email, cand.Location, cand.Skills,
		string(cand.CurrentStage), historyJSON,
	)

	created, err := scanCandidate(row)
	if err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	return created, nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+`
		 FROM candidates
		 WHERE id = $1 AND is_active`,
		id,
	)

	cand, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return cand, nil
}

// UpdateStageCAS performs the single conditional update that closes the
// read-validate-write race: stage set and history append happen in one
// statement guarded by the stage value the caller validated against.
func (r *candidateRepository) UpdateStageCAS(ctx context.Context, id string, expected domain.Stage, entry domain.HistoryEntry) (*domain.Candidate, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal history entry: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE candidates
		 SET current_stage = $1,
		     stage_history = stage_history || $2::jsonb,
		     updated_at    = NOW()
		 WHERE id = $3 AND is_active AND current_stage = $4
		 RETURNING `+candidateColumns,
		string(entry.ToStage),
		fmt.Sprintf("[%s]", entryJSON),
		id, string(expected),
	)

	cand, err := scanCandidate(row)
	if err == nil {
		return cand, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update candidate stage: %w", err)
	}

	// Guard failed: tell a lost race apart from a missing candidate.
	var active bool
	err = r.pool.QueryRow(ctx,
		`SELECT is_active FROM candidates WHERE id = $1`, id,
	).Scan(&active)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("recheck candidate: %w", err)
	case !active:
		return nil, ErrNotFound
	}
	return nil, ErrStaleStage
}

func (r *candidateRepository) CountByStage(ctx context.Context, filter domain.StatsFilter) (map[domain.Stage]int64, error) {
	where, args := buildFilter(filter)

	rows, err := r.pool.Query(ctx,
		`SELECT current_stage, COUNT(*)
		 FROM candidates
		 WHERE `+where+`
		 GROUP BY current_stage`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("count by stage query: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Stage]int64)
	for rows.Next() {
		var (
			stage string
			n     int64
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("count by stage scan: %w", err)
		}
		counts[domain.Stage(stage)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by stage rows: %w", err)
	}
	return counts, nil
}

// buildFilter renders filter into a WHERE clause with positional args.
// Candidates enter the pipeline at applied when created, so the date range
// filters on created_at.
func buildFilter(filter domain.StatsFilter) (string, []any) {
	conds := []string{"is_active"}
	args := make([]any, 0, 4)

	if filter.AppliedAfter != nil {
		args = append(args, *filter.AppliedAfter)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.AppliedBefore != nil {
		args = append(args, *filter.AppliedBefore)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, filter.Location)
		conds = append(conds, fmt.Sprintf("location = $%d", len(args)))
	}
	if len(filter.Skills) > 0 {
		args = append(args, filter.Skills)
		conds = append(conds, fmt.Sprintf("skills @> $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

// scanCandidate reads one candidate row, decoding the jsonb history log.
func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var (
		c           domain.Candidate
		stage       string
		historyJSON []byte
	)
	if err := row.Scan(
		&c.ID, &c.FullName, &c.Email, &c.Location, &c.Skills,
		&stage, &historyJSON, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.CurrentStage = domain.Stage(stage)
	if err := json.Unmarshal(historyJSON, &c.StageHistory); err != nil {
		return nil, fmt.Errorf("decode stage history: %w", err)
	}
	return &c, nil
}
