package httpserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hiregrid/matchengine/internal/adapter/httpserver"
	"github.com/hiregrid/matchengine/internal/config"
	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/domain/mocks"
	"github.com/hiregrid/matchengine/internal/match"
	"github.com/hiregrid/matchengine/internal/usecase"
)

type serverMocks struct {
	cands *mocks.MockCandidateRepository
	jobs  *mocks.MockJobRepository
	apps  *mocks.MockApplicationRepository
	emb   *mocks.MockEmbedder
}

func newTestServer(t *testing.T) (*httpserver.Server, serverMocks) {
	t.Helper()
	m := serverMocks{
		cands: &mocks.MockCandidateRepository{},
		jobs:  &mocks.MockJobRepository{},
		apps:  &mocks.MockApplicationRepository{},
		emb:   &mocks.MockEmbedder{},
	}
	scorer, err := match.NewScorer(match.ModeSemantic)
	require.NoError(t, err)
	facets := usecase.NewFacetService(m.cands, m.jobs, m.emb)
	candSvc := usecase.NewCandidateService(m.cands, m.emb, nil)
	jobSvc := usecase.NewJobService(m.jobs, facets, m.emb)
	matchSvc := usecase.NewMatchService(m.jobs, m.cands, m.apps, facets, scorer, 2)
	srv := httpserver.NewServer(config.Config{}, candSvc, jobSvc, matchSvc, m.cands, m.jobs, nil, nil)
	return srv, m
}

func testRouter(srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/candidates", srv.CreateCandidateHandler())
	r.Get("/v1/candidates/{id}", srv.GetCandidateHandler())
	r.Post("/v1/jobs", srv.CreateJobHandler())
	r.Get("/v1/jobs/{id}", srv.GetJobHandler())
	r.Post("/v1/jobs/{id}/applications", srv.ApplyHandler())
	r.Get("/v1/jobs/{id}/candidates/{candidateID}/score", srv.ScoreHandler())
	r.Get("/v1/jobs/{id}/rank", srv.RankHandler())
	r.Post("/v1/jobs/{id}/select", srv.SelectTopHandler())
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateCandidate_Success(t *testing.T) {
	t.Parallel()
	srv, m := newTestServer(t)

	m.emb.On("Embed", mock.Anything, mock.Anything).Return([][]float32{{0.1, 0.9}}, nil)
	m.cands.On("Create", mock.Anything, mock.Anything).Return("c-1", nil)

	body := `{"name":"Ada","email":"ada@example.com","resume_text":"Engineer with 4 years of experience.","skills":["Go"]}`
	rec := doJSON(t, testRouter(srv), http.MethodPost, "/v1/candidates", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "c-1", got["id"])
	assert.Equal(t, float64(4), got["years_experience"])
	assert.Equal(t, "explicit", got["years_source"])
	assert.Equal(t, true, got["resume_parsed"])
}

func TestCreateCandidate_MissingName(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := doJSON(t, testRouter(srv), http.MethodPost, "/v1/candidates", `{"resume_text":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
}

func TestCreateCandidate_UnknownField(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := doJSON(t, testRouter(srv), http.MethodPost, "/v1/candidates", `{"name":"Ada","nope":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCandidate_NotFound(t *testing.T) {
	t.Parallel()
	srv, m := newTestServer(t)
	m.cands.On("Get", mock.Anything, "missing").Return(domain.Candidate{}, domain.ErrNotFound)

	rec := doJSON(t, testRouter(srv), http.MethodGet, "/v1/candidates/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestCreateJob_Success(t *testing.T) {
	t.Parallel()
	srv, m := newTestServer(t)

	m.jobs.On("Create", mock.Anything, mock.Anything).Return("j-1", nil)
	m.emb.On("Embed", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}, {3}}, nil)
	m.jobs.On("UpdateFacets", mock.Anything, "j-1", mock.Anything).Return(nil)

	body := `{"title":"Backend Engineer","description":"Build Go services.","skills":["Go"],"min_experience":3}`
	rec := doJSON(t, testRouter(srv), http.MethodPost, "/v1/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"j-1"`)
}

func TestApply_Conflict(t *testing.T) {
	t.Parallel()
	srv, m := newTestServer(t)

	m.jobs.On("Get", mock.Anything, "j-1").Return(domain.Job{ID: "j-1"}, nil)
	m.cands.On("Get", mock.Anything, "c-1").Return(domain.Candidate{ID: "c-1"}, nil)
	m.apps.On("Create", mock.Anything, mock.Anything).Return("", domain.ErrConflict)

	rec := doJSON(t, testRouter(srv), http.MethodPost, "/v1/jobs/j-1/applications", `{"candidate_id":"c-1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFLICT")
}

func TestScore_NotScorable(t *testing.T) {
	t.Parallel()
	srv, m := newTestServer(t)

	job := domain.Job{
		ID:                  "j-1",
		Embedding:           []float32{1},
		SkillsEmbedding:     []float32{1},
		ExperienceEmbedding: []float32{1},
	}
	cand := domain.Candidate{
		ID:                  "c-1",
		Skills:              []string{"go"},
		Embedding:           []float32{1},
		SkillsEmbedding:     []float32{1},
		ExperienceEmbedding: []float32{1},
		ProjectsEmbedding:   []float32{1},
		ResumeParsed:        false,
	}
	m.jobs.On("Get", mock.Anything, "j-1").Return(job, nil)
	m.cands.On("Get", mock.Anything, "c-1").Return(cand, nil)

	rec := doJSON(t, testRouter(srv), http.MethodGet, "/v1/jobs/j-1/candidates/c-1/score", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_SCORABLE")
}

func TestRank_ReturnsResults(t *testing.T) {
	t.Parallel()
	srv, m := newTestServer(t)

	job := domain.Job{
		ID:                  "j-1",
		Embedding:           []float32{1, 0},
		SkillsEmbedding:     []float32{1},
		ExperienceEmbedding: []float32{1},
	}
	cand := domain.Candidate{
		ID:                  "c-1",
		ResumeText:          "Go engineer",
		Embedding:           []float32{1, 0},
		SkillsEmbedding:     []float32{1},
		ExperienceEmbedding: []float32{1},
		ProjectsEmbedding:   []float32{1},
		ResumeParsed:        true,
	}
	m.jobs.On("Get", mock.Anything, "j-1").Return(job, nil)
	m.apps.On("ListByJob", mock.Anything, "j-1").Return([]domain.Application{
		{ID: "a-1", JobID: "j-1", CandidateID: "c-1", Status: domain.ApplicationPending},
	}, nil)
	m.cands.On("Get", mock.Anything, "c-1").Return(cand, nil)
	m.apps.On("UpdateResult", mock.Anything, "a-1", mock.Anything).Return(nil)

	rec := doJSON(t, testRouter(srv), http.MethodGet, "/v1/jobs/j-1/rank", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Results []domain.MatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Results, 1)
	assert.Equal(t, "c-1", got.Results[0].CandidateID)
	assert.InDelta(t, 1.0, got.Results[0].Score, 1e-9)
}

func TestSelectTop_BadPayload(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	rec := doJSON(t, testRouter(srv), http.MethodPost, "/v1/jobs/j-1/select", `{"n":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
