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

// JobRepo persists and loads job postings from PostgreSQL.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

// Create inserts a new job posting and returns its id.
func (r *JobRepo) Create(ctx context.Context, j domain.Job) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Create")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO jobs (id, title, description, skills, min_experience,
		embedding, skills_embedding, experience_embedding, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.Pool.Exec(ctx, q, id, j.Title, j.Description, j.Skills, j.MinExperience,
		j.Embedding, j.SkillsEmbedding, j.ExperienceEmbedding, now, now)
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx context.Context, id string) (domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	q := `SELECT id, title, description, skills, min_experience,
		embedding, skills_embedding, experience_embedding, created_at, updated_at
		FROM jobs WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var j domain.Job
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.Skills, &j.MinExperience,
		&j.Embedding, &j.SkillsEmbedding, &j.ExperienceEmbedding, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Job{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.Job{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// UpdateFacets writes only the non-nil embedding fields.
func (r *JobRepo) UpdateFacets(ctx context.Context, id string, f domain.JobFacets) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.UpdateFacets")
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
	if len(set) == 1 {
		return nil
	}
	q := `UPDATE jobs SET ` + strings.Join(set, ", ") + ` WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("op=job.update_facets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=job.update_facets: %w", domain.ErrNotFound)
	}
	return nil
}
