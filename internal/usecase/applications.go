package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/hiregrid/matchengine/internal/domain"
)

// Apply records that a candidate applied to a job. A candidate can hold at
// most one application per job; a repeat apply surfaces
// domain.ErrConflict from the repository.
func (s MatchService) Apply(ctx context.Context, jobID, candidateID string) (domain.Application, error) {
	if _, err := s.Jobs.Get(ctx, jobID); err != nil {
		return domain.Application{}, fmt.Errorf("op=applications.apply: %w", err)
	}
	if _, err := s.Candidates.Get(ctx, candidateID); err != nil {
		return domain.Application{}, fmt.Errorf("op=applications.apply: %w", err)
	}
	app := domain.Application{
		JobID:       jobID,
		CandidateID: candidateID,
		Status:      domain.ApplicationPending,
	}
	id, err := s.Applications.Create(ctx, app)
	if err != nil {
		return domain.Application{}, fmt.Errorf("op=applications.apply: %w", err)
	}
	app.ID = id
	return app, nil
}

// SelectTop marks the top-n pending applicants of a job as selected, ranked
// by their frozen scores (re-ranking first when none exist yet). Already
// decided applications are never touched. Returns how many were selected.
func (s MatchService) SelectTop(ctx context.Context, jobID string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("op=applications.select_top: n must be positive: %w", domain.ErrInvalidArgument)
	}
	apps, err := s.Applications.ListByJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("op=applications.select_top: %w", err)
	}
	pending := make([]domain.Application, 0, len(apps))
	unscored := false
	for _, a := range apps {
		if a.Status == domain.ApplicationPending {
			pending = append(pending, a)
			if a.Result.CandidateID == "" {
				unscored = true
			}
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if unscored {
		if _, err := s.RankApplicants(ctx, jobID); err != nil {
			return 0, err
		}
		if apps, err = s.Applications.ListByJob(ctx, jobID); err != nil {
			return 0, fmt.Errorf("op=applications.select_top: %w", err)
		}
		pending = pending[:0]
		for _, a := range apps {
			if a.Status == domain.ApplicationPending {
				pending = append(pending, a)
			}
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return appScore(pending[i]) > appScore(pending[j])
	})
	if n > len(pending) {
		n = len(pending)
	}
	ids := make([]string, 0, n)
	for _, a := range pending[:n] {
		ids = append(ids, a.ID)
	}
	if err := s.Applications.UpdateStatus(ctx, ids, domain.ApplicationSelected); err != nil {
		return 0, fmt.Errorf("op=applications.select_top: %w", err)
	}
	return n, nil
}

// RejectPending rejects every still-pending application for a job and
// returns how many were rejected. Selected applications keep their status;
// decisions only move one way.
func (s MatchService) RejectPending(ctx context.Context, jobID string) (int, error) {
	apps, err := s.Applications.ListByJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("op=applications.reject_pending: %w", err)
	}
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		if a.Status == domain.ApplicationPending {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.Applications.UpdateStatus(ctx, ids, domain.ApplicationRejected); err != nil {
		return 0, fmt.Errorf("op=applications.reject_pending: %w", err)
	}
	return len(ids), nil
}

func appScore(a domain.Application) float64 {
	return a.Result.Score
}
