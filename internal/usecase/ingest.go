package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/match"
	"github.com/hiregrid/matchengine/pkg/textx"
)

// CandidateService ingests resumes and answers similarity lookups.
type CandidateService struct {
	Candidates domain.CandidateRepository
	Embedder   domain.Embedder
	// Index is optional; when nil, similarity search is unavailable and
	// ingest skips the write-through upsert.
	Index domain.VectorIndex
}

// NewCandidateService constructs a CandidateService.
func NewCandidateService(repo domain.CandidateRepository, emb domain.Embedder, idx domain.VectorIndex) CandidateService {
	return CandidateService{Candidates: repo, Embedder: emb, Index: idx}
}

// CandidateInput is the raw ingest payload before any normalization.
type CandidateInput struct {
	Name       string
	Email      string
	ResumeText string
	Skills     []string
	// ExternalYears is an optional profile-claimed years figure used to
	// reconcile the resume-derived estimate.
	ExternalYears *float64
}

// Ingest parses a resume, derives skills and experience, computes the
// whole-document embedding, and stores the candidate. A candidate with an
// empty resume is stored unparsed and stays unscorable until a resume
// arrives.
func (s CandidateService) Ingest(ctx context.Context, in CandidateInput) (domain.Candidate, error) {
	resume := textx.NormalizeNewlines(textx.SanitizeText(in.ResumeText))
	skills := match.NormalizeSkills(in.Skills)
	if len(skills) == 0 && resume != "" {
		skills = skillsFromResume(resume)
	}

	c := domain.Candidate{
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		ResumeText: resume,
		Skills:     skills,
	}
	if resume != "" {
		exp := match.ExtractYears(resume, in.ExternalYears)
		c.YearsExperience = exp.Years
		c.YearsExperienceConfidence = exp.Confidence
		c.YearsExperienceSource = exp.Method

		vecs, err := s.Embedder.Embed(ctx, []string{resume})
		if err != nil {
			return domain.Candidate{}, fmt.Errorf("op=ingest.embed: %w", err)
		}
		if len(vecs) != 1 {
			return domain.Candidate{}, fmt.Errorf("op=ingest.embed: got %d vectors for 1 text: %w", len(vecs), domain.ErrInternal)
		}
		c.Embedding = vecs[0]
		c.ResumeParsed = true
	} else {
		c.YearsExperienceSource = domain.ExperienceSourceUnknown
	}

	id, err := s.Candidates.Create(ctx, c)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("op=ingest.create: %w", err)
	}
	c.ID = id
	if s.Index != nil && len(c.Embedding) > 0 {
		payload := map[string]any{"name": c.Name, "years_experience": c.YearsExperience}
		if err := s.Index.UpsertCandidate(ctx, c.ID, c.Embedding, payload); err != nil {
			// Search lags; the candidate record is the source of truth.
			slog.Warn("vector index upsert failed",
				slog.String("candidate_id", c.ID), slog.Any("error", err))
		}
	}
	return c, nil
}

// SimilarCandidates finds candidates near the given one in embedding space.
func (s CandidateService) SimilarCandidates(ctx context.Context, candidateID string, topK int) ([]domain.SimilarCandidate, error) {
	if s.Index == nil {
		return nil, fmt.Errorf("op=ingest.similar: vector index not configured: %w", domain.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = 5
	}
	c, err := s.Candidates.Get(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("op=ingest.similar: %w", err)
	}
	if len(c.Embedding) == 0 {
		return nil, fmt.Errorf("op=ingest.similar: candidate %s has no embedding: %w", candidateID, domain.ErrNotScorable)
	}
	out, err := s.Index.SearchSimilar(ctx, c.Embedding, topK+1)
	if err != nil {
		return nil, fmt.Errorf("op=ingest.similar: %w", err)
	}
	// Drop the candidate itself from its own neighborhood.
	filtered := make([]domain.SimilarCandidate, 0, topK)
	for _, sc := range out {
		if sc.CandidateID == candidateID {
			continue
		}
		filtered = append(filtered, sc)
		if len(filtered) == topK {
			break
		}
	}
	return filtered, nil
}

// skillsFromResume falls back to the resume's skills section when the
// payload listed none, splitting on commas, newlines, and bullets.
func skillsFromResume(resume string) []string {
	section := match.ExtractSection(resume, "skills")
	if section == "" {
		return nil
	}
	parts := strings.FieldsFunc(section, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';' || r == '•' || r == '*'
	})
	return match.NormalizeSkills(parts)
}

// JobService creates job postings with their embeddings precomputed.
type JobService struct {
	Jobs     domain.JobRepository
	Facets   FacetService
	Embedder domain.Embedder
}

// NewJobService constructs a JobService.
func NewJobService(repo domain.JobRepository, facets FacetService, emb domain.Embedder) JobService {
	return JobService{Jobs: repo, Facets: facets, Embedder: emb}
}

// JobInput is the raw job-posting payload.
type JobInput struct {
	Title         string
	Description   string
	Skills        []string
	MinExperience int
}

// Create stores a job posting and eagerly computes all of its embeddings so
// the first ranking request pays no backfill cost on the job side.
func (s JobService) Create(ctx context.Context, in JobInput) (domain.Job, error) {
	title := strings.TrimSpace(in.Title)
	desc := textx.NormalizeNewlines(textx.SanitizeText(in.Description))
	if title == "" || desc == "" {
		return domain.Job{}, fmt.Errorf("op=jobs.create: title and description are required: %w", domain.ErrInvalidArgument)
	}
	if in.MinExperience < 0 {
		return domain.Job{}, fmt.Errorf("op=jobs.create: min experience must not be negative: %w", domain.ErrInvalidArgument)
	}
	j := domain.Job{
		Title:         title,
		Description:   desc,
		Skills:        match.NormalizeSkills(in.Skills),
		MinExperience: in.MinExperience,
	}
	id, err := s.Jobs.Create(ctx, j)
	if err != nil {
		return domain.Job{}, fmt.Errorf("op=jobs.create: %w", err)
	}
	j.ID = id
	j, err = s.Facets.EnsureJobFacets(ctx, j)
	if err != nil {
		return domain.Job{}, err
	}
	return j, nil
}
