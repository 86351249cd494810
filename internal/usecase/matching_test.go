package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/domain/mocks"
	"github.com/hiregrid/matchengine/internal/match"
	"github.com/hiregrid/matchengine/internal/usecase"
)

func fullyFacetedJob() domain.Job {
	return domain.Job{
		ID:                  "j-1",
		Title:               "Backend Engineer",
		Description:         "Build Go services.",
		Skills:              []string{"go"},
		MinExperience:       3,
		Embedding:           []float32{1, 0},
		SkillsEmbedding:     []float32{0, 1},
		ExperienceEmbedding: []float32{1, 1},
	}
}

func newMatchService(t *testing.T, jobs *mocks.MockJobRepository, cands *mocks.MockCandidateRepository, apps *mocks.MockApplicationRepository, emb *mocks.MockEmbedder) usecase.MatchService {
	t.Helper()
	scorer, err := match.NewScorer(match.ModeSemantic)
	require.NoError(t, err)
	facets := usecase.NewFacetService(cands, jobs, emb)
	return usecase.NewMatchService(jobs, cands, apps, facets, scorer, 2)
}

func TestScoreCandidateForJob_Semantic(t *testing.T) {
	t.Parallel()
	jobs := &mocks.MockJobRepository{}
	cands := &mocks.MockCandidateRepository{}
	apps := &mocks.MockApplicationRepository{}
	emb := &mocks.MockEmbedder{}

	job := fullyFacetedJob()
	cand := fullyFacetedCandidate()
	jobs.On("Get", mock.Anything, "j-1").Return(job, nil)
	cands.On("Get", mock.Anything, "c-1").Return(cand, nil)

	svc := newMatchService(t, jobs, cands, apps, emb)
	res, err := svc.ScoreCandidateForJob(context.Background(), "j-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", res.CandidateID)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, res.Similarity, res.Score)

	// Fully faceted entities mean the provider is never touched.
	emb.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestScoreCandidateForJob_NotScorable(t *testing.T) {
	t.Parallel()
	jobs := &mocks.MockJobRepository{}
	cands := &mocks.MockCandidateRepository{}
	apps := &mocks.MockApplicationRepository{}
	emb := &mocks.MockEmbedder{}

	cand := fullyFacetedCandidate()
	cand.ResumeParsed = false
	jobs.On("Get", mock.Anything, "j-1").Return(fullyFacetedJob(), nil)
	cands.On("Get", mock.Anything, "c-1").Return(cand, nil)

	svc := newMatchService(t, jobs, cands, apps, emb)
	_, err := svc.ScoreCandidateForJob(context.Background(), "j-1", "c-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotScorable)
}

func TestScoreCandidateForJob_JobNotFound(t *testing.T) {
	t.Parallel()
	jobs := &mocks.MockJobRepository{}
	cands := &mocks.MockCandidateRepository{}
	apps := &mocks.MockApplicationRepository{}
	emb := &mocks.MockEmbedder{}

	jobs.On("Get", mock.Anything, "missing").Return(domain.Job{}, domain.ErrNotFound)

	svc := newMatchService(t, jobs, cands, apps, emb)
	_, err := svc.ScoreCandidateForJob(context.Background(), "missing", "c-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRankApplicants_SortsAndPersists(t *testing.T) {
	t.Parallel()
	jobs := &mocks.MockJobRepository{}
	cands := &mocks.MockCandidateRepository{}
	apps := &mocks.MockApplicationRepository{}
	emb := &mocks.MockEmbedder{}

	job := fullyFacetedJob()
	jobs.On("Get", mock.Anything, "j-1").Return(job, nil)

	far := fullyFacetedCandidate()
	far.ID = "c-far"
	far.Embedding = []float32{0, 1} // orthogonal to the job
	near := fullyFacetedCandidate()
	near.ID = "c-near"
	near.Embedding = []float32{1, 0}

	apps.On("ListByJob", mock.Anything, "j-1").Return([]domain.Application{
		{ID: "a-1", JobID: "j-1", CandidateID: "c-far", Status: domain.ApplicationPending},
		{ID: "a-2", JobID: "j-1", CandidateID: "c-near", Status: domain.ApplicationPending},
	}, nil)
	cands.On("Get", mock.Anything, "c-far").Return(far, nil)
	cands.On("Get", mock.Anything, "c-near").Return(near, nil)

	apps.On("UpdateResult", mock.Anything, "a-1", mock.Anything).Return(nil).Once()
	apps.On("UpdateResult", mock.Anything, "a-2", mock.Anything).Return(nil).Once()

	svc := newMatchService(t, jobs, cands, apps, emb)
	ranked, err := svc.RankApplicants(context.Background(), "j-1")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c-near", ranked[0].CandidateID)
	assert.Equal(t, "c-far", ranked[1].CandidateID)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)

	apps.AssertExpectations(t)
}

func TestRankApplicants_BackfillErrorAborts(t *testing.T) {
	t.Parallel()
	jobs := &mocks.MockJobRepository{}
	cands := &mocks.MockCandidateRepository{}
	apps := &mocks.MockApplicationRepository{}
	emb := &mocks.MockEmbedder{}

	job := fullyFacetedJob()
	jobs.On("Get", mock.Anything, "j-1").Return(job, nil)

	needy := fullyFacetedCandidate()
	needy.ID = "c-needy"
	needy.SkillsEmbedding = nil

	apps.On("ListByJob", mock.Anything, "j-1").Return([]domain.Application{
		{ID: "a-1", JobID: "j-1", CandidateID: "c-needy", Status: domain.ApplicationPending},
	}, nil)
	cands.On("Get", mock.Anything, "c-needy").Return(needy, nil)

	provErr := errors.New("embedding provider down")
	emb.On("Embed", mock.Anything, mock.Anything).Return(nil, provErr)

	svc := newMatchService(t, jobs, cands, apps, emb)
	_, err := svc.RankApplicants(context.Background(), "j-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, provErr)

	// No partial ranking is persisted when a backfill fails.
	apps.AssertNotCalled(t, "UpdateResult", mock.Anything, mock.Anything, mock.Anything)
}

func TestRankApplicants_NoApplicants(t *testing.T) {
	t.Parallel()
	jobs := &mocks.MockJobRepository{}
	cands := &mocks.MockCandidateRepository{}
	apps := &mocks.MockApplicationRepository{}
	emb := &mocks.MockEmbedder{}

	jobs.On("Get", mock.Anything, "j-1").Return(fullyFacetedJob(), nil)
	apps.On("ListByJob", mock.Anything, "j-1").Return([]domain.Application{}, nil)

	svc := newMatchService(t, jobs, cands, apps, emb)
	ranked, err := svc.RankApplicants(context.Background(), "j-1")
	require.NoError(t, err)
	assert.Empty(t, ranked)
}
