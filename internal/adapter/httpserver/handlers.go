package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hiregrid/matchengine/internal/config"
	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/usecase"
)

const maxBodyBytes = 2 << 20 // resumes are text; 2 MiB is generous

// Server aggregates handler dependencies.
type Server struct {
	Cfg           config.Config
	Candidates    usecase.CandidateService
	Jobs          usecase.JobService
	Match         usecase.MatchService
	CandidateRepo domain.CandidateRepository
	JobRepo       domain.JobRepository
	DBCheck       func(ctx context.Context) error
	QdrantCheck   func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, cands usecase.CandidateService, jobs usecase.JobService, match usecase.MatchService, candRepo domain.CandidateRepository, jobRepo domain.JobRepository, dbCheck, qdrantCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:           cfg,
		Candidates:    cands,
		Jobs:          jobs,
		Match:         match,
		CandidateRepo: candRepo,
		JobRepo:       jobRepo,
		DBCheck:       dbCheck,
		QdrantCheck:   qdrantCheck,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

type createCandidateRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Email         string   `json:"email" validate:"omitempty,email"`
	ResumeText    string   `json:"resume_text"`
	Skills        []string `json:"skills" validate:"max=100,dive,max=100"`
	ExternalYears *float64 `json:"external_years" validate:"omitempty,gte=0,lte=80"`
}

type candidateResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
	YearsConfidence float64  `json:"years_confidence"`
	YearsSource     string   `json:"years_source"`
	ResumeParsed    bool     `json:"resume_parsed"`
}

func toCandidateResponse(c domain.Candidate) candidateResponse {
	return candidateResponse{
		ID:              c.ID,
		Name:            c.Name,
		Email:           c.Email,
		Skills:          c.Skills,
		YearsExperience: c.YearsExperience,
		YearsConfidence: c.YearsExperienceConfidence,
		YearsSource:     c.YearsExperienceSource,
		ResumeParsed:    c.ResumeParsed,
	}
}

// CreateCandidateHandler ingests a candidate with an optional resume.
func (s *Server) CreateCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCandidateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		c, err := s.Candidates.Ingest(r.Context(), usecase.CandidateInput{
			Name:          req.Name,
			Email:         req.Email,
			ResumeText:    req.ResumeText,
			Skills:        req.Skills,
			ExternalYears: req.ExternalYears,
		})
		if err != nil {
			LoggerFrom(r.Context()).Error("candidate ingest failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toCandidateResponse(c))
	}
}

// GetCandidateHandler returns one candidate by id.
func (s *Server) GetCandidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.CandidateRepo.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCandidateResponse(c))
	}
}

// SimilarCandidatesHandler returns nearest candidates by embedding.
func (s *Server) SimilarCandidatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))
		hits, err := s.Candidates.SimilarCandidates(r.Context(), chi.URLParam(r, "id"), topK)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": hits})
	}
}

type createJobRequest struct {
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description" validate:"required"`
	Skills        []string `json:"skills" validate:"max=100,dive,max=100"`
	MinExperience int      `json:"min_experience" validate:"gte=0,lte=60"`
}

type jobResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Skills        []string `json:"skills"`
	MinExperience int      `json:"min_experience"`
}

func toJobResponse(j domain.Job) jobResponse {
	return jobResponse{
		ID:            j.ID,
		Title:         j.Title,
		Description:   j.Description,
		Skills:        j.Skills,
		MinExperience: j.MinExperience,
	}
}

// CreateJobHandler stores a job posting.
func (s *Server) CreateJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		j, err := s.Jobs.Create(r.Context(), usecase.JobInput{
			Title:         req.Title,
			Description:   req.Description,
			Skills:        req.Skills,
			MinExperience: req.MinExperience,
		})
		if err != nil {
			LoggerFrom(r.Context()).Error("job create failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toJobResponse(j))
	}
}

// GetJobHandler returns one job by id.
func (s *Server) GetJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := s.JobRepo.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(j))
	}
}

type applyRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,max=100"`
}

// ApplyHandler records a candidate's application to a job.
func (s *Server) ApplyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		app, err := s.Match.Apply(r.Context(), chi.URLParam(r, "id"), req.CandidateID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":           app.ID,
			"job_id":       app.JobID,
			"candidate_id": app.CandidateID,
			"status":       app.Status,
		})
	}
}

// ScoreHandler scores one candidate against one job.
func (s *Server) ScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Match.ScoreCandidateForJob(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "candidateID"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// RankHandler returns the job's applicants ranked by score.
func (s *Server) RankHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranked, err := s.Match.RankApplicants(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			LoggerFrom(r.Context()).Error("rank failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": ranked})
	}
}

type selectRequest struct {
	N int `json:"n" validate:"required,gt=0,lte=1000"`
}

// SelectTopHandler marks the job's best pending applicants as selected.
func (s *Server) SelectTopHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		n, err := s.Match.SelectTop(r.Context(), chi.URLParam(r, "id"), req.N)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"selected": n})
	}
}

// RejectPendingHandler rejects the job's remaining pending applicants.
func (s *Server) RejectPendingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.Match.RejectPending(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rejected": n})
	}
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler reports dependency readiness. The vector index is optional
// and only checked when configured.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		ready := true
		if s.DBCheck != nil {
			if err := s.DBCheck(r.Context()); err != nil {
				checks["db"] = err.Error()
				ready = false
			} else {
				checks["db"] = "ok"
			}
		}
		if s.QdrantCheck != nil {
			if err := s.QdrantCheck(r.Context()); err != nil {
				checks["qdrant"] = err.Error()
				ready = false
			} else {
				checks["qdrant"] = "ok"
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
	}
}
