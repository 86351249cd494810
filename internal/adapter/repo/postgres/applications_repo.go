package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"

	"github.com/hiregrid/matchengine/internal/domain"
)

// ApplicationRepo persists applications. Application ids are ULIDs so a
// job's applications sort lexically by creation time.
type ApplicationRepo struct{ Pool PgxPool }

// NewApplicationRepo constructs an ApplicationRepo with the given pool.
func NewApplicationRepo(p PgxPool) *ApplicationRepo { return &ApplicationRepo{Pool: p} }

// Create inserts a new application and returns its id. The unique
// (job_id, candidate_id) index maps repeat applies to domain.ErrConflict.
func (r *ApplicationRepo) Create(ctx context.Context, a domain.Application) (string, error) {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.Create")
	defer span.End()
	id := a.ID
	if id == "" {
		id = ulid.Make().String()
	}
	status := a.Status
	if status == "" {
		status = domain.ApplicationPending
	}
	now := time.Now().UTC()
	q := `INSERT INTO applications (id, job_id, candidate_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.Pool.Exec(ctx, q, id, a.JobID, a.CandidateID, status, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("op=application.create: candidate already applied: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=application.create: %w", err)
	}
	return id, nil
}

// Get loads an application by id.
func (r *ApplicationRepo) Get(ctx context.Context, id string) (domain.Application, error) {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.Get")
	defer span.End()
	q := `SELECT id, job_id, candidate_id, status, result, created_at, updated_at
		FROM applications WHERE id=$1`
	a, err := scanApplication(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Application{}, fmt.Errorf("op=application.get: %w", domain.ErrNotFound)
		}
		return domain.Application{}, fmt.Errorf("op=application.get: %w", err)
	}
	return a, nil
}

// ListByJob returns a job's applications oldest first, so rank order is
// stable across requests when scores tie.
func (r *ApplicationRepo) ListByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.ListByJob")
	defer span.End()
	q := `SELECT id, job_id, candidate_id, status, result, created_at, updated_at
		FROM applications WHERE job_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.Pool.Query(ctx, q, jobID)
	if err != nil {
		return nil, fmt.Errorf("op=application.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("op=application.list: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=application.list: %w", err)
	}
	return out, nil
}

// UpdateResult freezes the latest match result on the application.
func (r *ApplicationRepo) UpdateResult(ctx context.Context, id string, res domain.MatchResult) error {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.UpdateResult")
	defer span.End()
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("op=application.update_result: %w", err)
	}
	q := `UPDATE applications SET result=$2, updated_at=$3 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=application.update_result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=application.update_result: %w", domain.ErrNotFound)
	}
	return nil
}

// UpdateStatus moves the given applications to status. Only pending rows
// change: decisions never revert, so already selected or rejected ids are
// silently skipped.
func (r *ApplicationRepo) UpdateStatus(ctx context.Context, ids []string, status domain.ApplicationStatus) error {
	tracer := otel.Tracer("repo.applications")
	ctx, span := tracer.Start(ctx, "applications.UpdateStatus")
	defer span.End()
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE applications SET status=$2, updated_at=$3 WHERE id = ANY($1) AND status='pending'`
	if _, err := r.Pool.Exec(ctx, q, ids, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=application.update_status: %w", err)
	}
	return nil
}

func scanApplication(row pgx.Row) (domain.Application, error) {
	var a domain.Application
	var raw []byte
	if err := row.Scan(&a.ID, &a.JobID, &a.CandidateID, &a.Status, &raw, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Application{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a.Result); err != nil {
			return domain.Application{}, fmt.Errorf("decode result: %w", err)
		}
	}
	return a, nil
}
