package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hiregrid/matchengine/internal/adapter/observability"
	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/match"
)

// MatchService scores candidates against jobs and manages application
// rankings. It guarantees facet embeddings are present before any score is
// produced, so results never silently degrade because a backfill has not run.
type MatchService struct {
	Jobs         domain.JobRepository
	Candidates   domain.CandidateRepository
	Applications domain.ApplicationRepository
	Facets       FacetService
	Scorer       *match.Scorer
	// Concurrency bounds the candidate backfill fan-out during ranking.
	Concurrency int
}

// NewMatchService constructs a MatchService.
func NewMatchService(j domain.JobRepository, c domain.CandidateRepository, a domain.ApplicationRepository, f FacetService, sc *match.Scorer, concurrency int) MatchService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return MatchService{Jobs: j, Candidates: c, Applications: a, Facets: f, Scorer: sc, Concurrency: concurrency}
}

// scorable reports whether a candidate can be meaningfully scored. A
// candidate whose resume was never parsed, or whose whole-document embedding
// could not be computed, yields only zero facets.
func scorable(c domain.Candidate) bool {
	return c.ResumeParsed && len(c.Embedding) > 0
}

// ScoreCandidateForJob backfills missing facets on both sides and returns the
// match result. Candidates that cannot be scored yet surface
// domain.ErrNotScorable so callers can distinguish "come back later" from a
// real failure.
func (s MatchService) ScoreCandidateForJob(ctx context.Context, jobID, candidateID string) (domain.MatchResult, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=matching.get_job: %w", err)
	}
	cand, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("op=matching.get_candidate: %w", err)
	}
	job, err = s.Facets.EnsureJobFacets(ctx, job)
	if err != nil {
		return domain.MatchResult{}, err
	}
	cand, err = s.Facets.EnsureCandidateFacets(ctx, cand)
	if err != nil {
		return domain.MatchResult{}, err
	}
	if !scorable(cand) {
		return domain.MatchResult{}, fmt.Errorf("op=matching.score: candidate %s has no parsed resume embedding: %w", candidateID, domain.ErrNotScorable)
	}
	res := s.Scorer.Score(cand, job)
	observability.ObserveMatchScore(string(s.Scorer.Mode()), res.Score)
	return res, nil
}

// RankApplicants scores every applicant of a job and returns the list sorted
// by descending score. Facet backfills for distinct candidates run
// concurrently, but scoring starts only after every backfill has finished; a
// partially backfilled ranking is never returned. Each application's frozen
// result is persisted so past decisions stay auditable after the scoring
// configuration changes.
func (s MatchService) RankApplicants(ctx context.Context, jobID string) ([]domain.MatchResult, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("op=matching.get_job: %w", err)
	}
	job, err = s.Facets.EnsureJobFacets(ctx, job)
	if err != nil {
		return nil, err
	}
	apps, err := s.Applications.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("op=matching.list_applications: %w", err)
	}
	if len(apps) == 0 {
		return []domain.MatchResult{}, nil
	}

	cands := make([]domain.Candidate, len(apps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i, app := range apps {
		i, app := i, app
		g.Go(func() error {
			c, err := s.Candidates.Get(gctx, app.CandidateID)
			if err != nil {
				return fmt.Errorf("op=matching.get_candidate: %w", err)
			}
			c, err = s.Facets.EnsureCandidateFacets(gctx, c)
			if err != nil {
				return err
			}
			cands[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]domain.MatchResult, len(apps))
	for i, c := range cands {
		results[i] = s.Scorer.Score(c, job)
		observability.ObserveMatchScore(string(s.Scorer.Mode()), results[i].Score)
	}
	for i, app := range apps {
		if err := s.Applications.UpdateResult(ctx, app.ID, results[i]); err != nil {
			// Ranking is still valid; the frozen copy just lags.
			slog.Warn("persist application result failed",
				slog.String("application_id", app.ID), slog.Any("error", err))
		}
	}
	ranked := make([]domain.MatchResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	return ranked, nil
}
