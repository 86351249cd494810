package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrNotScorable       = errors.New("not yet scorable")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrInternal          = errors.New("internal error")
)

// ExperienceSource enumerates how a candidate's years-of-experience figure was
// derived. Values are produced only by the experience extractor.
const (
	ExperienceSourceExplicit           = "explicit"
	ExperienceSourceDateRanges         = "date_ranges"
	ExperienceSourceDateRangesExternal = "date_ranges+external"
	ExperienceSourceExternal           = "external"
	ExperienceSourceUnknown            = "unknown"
)

// Candidate is a people-profile built from a parsed resume.
// Embedding slots are derived data: either empty or a vector of the
// provider's dimension. Scoring against a candidate is only meaningful once
// ResumeParsed is true and Embedding is non-empty.
type Candidate struct {
	ID         string
	Name       string
	Email      string
	ResumeText string

	// Skills holds normalized lowercase skill tokens, first occurrence order.
	Skills []string

	YearsExperience           int
	YearsExperienceConfidence float64
	YearsExperienceSource     string

	Embedding           []float32
	SkillsEmbedding     []float32
	ExperienceEmbedding []float32
	ProjectsEmbedding   []float32

	ResumeParsed bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Job is a role-posting. Jobs carry no projects facet: the project comparison
// uses the job's whole-description embedding against the candidate's projects
// embedding (intentional asymmetry).
type Job struct {
	ID            string
	Title         string
	Description   string
	Skills        []string
	MinExperience int

	Embedding           []float32
	SkillsEmbedding     []float32
	ExperienceEmbedding []float32

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplicationStatus transitions one way from pending to selected or rejected,
// only via bulk decision operations.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationSelected ApplicationStatus = "selected"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ScoreBreakdown carries the per-facet contribution of a match score.
// In semantic mode each field is a clamped [0,1] similarity; in composite
// mode each field is a pre-weighted contribution and the four sum to Score.
type ScoreBreakdown struct {
	Experience float64 `json:"experience"`
	Skills     float64 `json:"skills"`
	Projects   float64 `json:"projects"`
	Semantic   float64 `json:"semantic"`
}

// MatchResult is the output of scoring one candidate against one job.
type MatchResult struct {
	CandidateID     string         `json:"candidate_id"`
	Score           float64        `json:"score"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
	MatchedSkills   []string       `json:"matched_skills"`
	MissingSkills   []string       `json:"missing_skills"`
	SkillMatch      float64        `json:"skill_match"`
	ExperienceScore float64        `json:"experience_score"`
	ProjectScore    float64        `json:"project_score"`
	Similarity      float64        `json:"similarity"`
}

// Application links one candidate to one job and freezes the score computed
// when the job's applicants were last ranked. At most one application exists
// per (job, candidate) pair.
type Application struct {
	ID          string
	JobID       string
	CandidateID string
	Status      ApplicationStatus
	Result      MatchResult
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CandidateFacets is a partial update: nil slices are left untouched by the
// repository, non-nil slices (including empty ones) are written.
type CandidateFacets struct {
	Embedding           []float32
	SkillsEmbedding     []float32
	ExperienceEmbedding []float32
	ProjectsEmbedding   []float32
}

// JobFacets is the job-side partial facet update.
type JobFacets struct {
	Embedding           []float32
	SkillsEmbedding     []float32
	ExperienceEmbedding []float32
}

// Repositories (ports)

type CandidateRepository interface {
	Create(ctx context.Context, c Candidate) (string, error)
	Get(ctx context.Context, id string) (Candidate, error)
	List(ctx context.Context, limit, offset int) ([]Candidate, error)
	UpdateFacets(ctx context.Context, id string, f CandidateFacets) error
}

type JobRepository interface {
	Create(ctx context.Context, j Job) (string, error)
	Get(ctx context.Context, id string) (Job, error)
	UpdateFacets(ctx context.Context, id string, f JobFacets) error
}

type ApplicationRepository interface {
	Create(ctx context.Context, a Application) (string, error)
	Get(ctx context.Context, id string) (Application, error)
	ListByJob(ctx context.Context, jobID string) ([]Application, error)
	UpdateResult(ctx context.Context, id string, r MatchResult) error
	// UpdateStatus moves pending applications only; ids already decided are
	// skipped, never reverted.
	UpdateStatus(ctx context.Context, ids []string, status ApplicationStatus) error
}

// Embedder (port)
//
// Embed converts texts to fixed-length vectors of the provider's dimension.
// Vectors are assumed L2-normalized and deterministic for identical input
// within a provider version. The core never generates embeddings itself.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex (port, optional)
//
// A secondary index mirroring whole-resume embeddings for similarity search.
// Ranking never reads it.
type VectorIndex interface {
	UpsertCandidate(ctx context.Context, id string, vector []float32, payload map[string]any) error
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]SimilarCandidate, error)
}

// SimilarCandidate is one vector-index search hit.
type SimilarCandidate struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"`
}
