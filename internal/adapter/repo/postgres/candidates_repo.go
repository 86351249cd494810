package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/hiregrid/matchengine/internal/domain"
)

// CandidateRepo persists and loads candidates from PostgreSQL.
type CandidateRepo struct{ Pool PgxPool }

// NewCandidateRepo constructs a CandidateRepo with the given pool.
func NewCandidateRepo(p PgxPool) *CandidateRepo { return &CandidateRepo{Pool: p} }

const candidateColumns = `id, name, email, resume_text, skills,
	years_experience, years_confidence, years_source,
	embedding, skills_embedding, experience_embedding, projects_embedding,
	resume_parsed, created_at, updated_at`

// Create inserts a new candidate and returns its id.
func (r *CandidateRepo) Create(ctx context.Context, c domain.Candidate) (string, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Create")
	defer span.End()
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO candidates (id, name, email, resume_text, skills,
		years_experience, years_confidence, years_source,
		embedding, skills_embedding, experience_embedding, projects_embedding,
		resume_parsed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := r.Pool.Exec(ctx, q, id, c.Name, c.Email, c.ResumeText, c.Skills,
		c.YearsExperience, c.YearsExperienceConfidence, c.YearsExperienceSource,
		c.Embedding, c.SkillsEmbedding, c.ExperienceEmbedding, c.ProjectsEmbedding,
		c.ResumeParsed, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("op=candidate.create: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=candidate.create: %w", err)
	}
	return id, nil
}

// Get loads a candidate by id.
func (r *CandidateRepo) Get(ctx context.Context, id string) (domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.Get")
	defer span.End()
	q := `SELECT ` + candidateColumns + ` FROM candidates WHERE id=$1`
	c, err := scanCandidate(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", domain.ErrNotFound)
		}
		return domain.Candidate{}, fmt.Errorf("op=candidate.get: %w", err)
	}
	return c, nil
}

// List returns candidates newest first.
func (r *CandidateRepo) List(ctx context.Context, limit, offset int) ([]domain.Candidate, error) {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.List")
	defer span.End()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + candidateColumns + ` FROM candidates ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Candidate, 0, limit)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("op=candidate.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=candidate.list: %w", err)
	}
	return out, nil
}

// UpdateFacets writes only the non-nil embedding fields; nil fields are left
// untouched so concurrent backfills of different facets never clobber each
// other.
func (r *CandidateRepo) UpdateFacets(ctx context.Context, id string, f domain.CandidateFacets) error {
	tracer := otel.Tracer("repo.candidates")
	ctx, span := tracer.Start(ctx, "candidates.UpdateFacets")
	defer span.End()
	set := []string{"updated_at=$2"}
	args := []any{id, time.Now().UTC()}
	add := func(col string, v []float32) {
		if v == nil {
			return
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("embedding", f.Embedding)
	add("skills_embedding", f.SkillsEmbedding)
	add("experience_embedding", f.ExperienceEmbedding)
	add("projects_embedding", f.ProjectsEmbedding)
	if len(set) == 1 {
		return nil
	}
	q := `UPDATE candidates SET ` + strings.Join(set, ", ") + ` WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("op=candidate.update_facets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=candidate.update_facets: %w", domain.ErrNotFound)
	}
	return nil
}

func scanCandidate(row pgx.Row) (domain.Candidate, error) {
	var c domain.Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.ResumeText, &c.Skills,
		&c.YearsExperience, &c.YearsExperienceConfidence, &c.YearsExperienceSource,
		&c.Embedding, &c.SkillsEmbedding, &c.ExperienceEmbedding, &c.ProjectsEmbedding,
		&c.ResumeParsed, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
