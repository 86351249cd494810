// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/hiregrid/matchengine/internal/adapter/observability"
	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/match"
)

// FacetService lazily computes and persists missing facet embeddings.
// Entities may predate the facet columns, so each scoring path calls Ensure*
// first; when every facet is already present nothing happens (no provider
// call, no write) and the entity is returned unchanged.
type FacetService struct {
	Candidates domain.CandidateRepository
	Jobs       domain.JobRepository
	Embedder   domain.Embedder
}

// NewFacetService constructs a FacetService with its dependencies.
func NewFacetService(c domain.CandidateRepository, j domain.JobRepository, e domain.Embedder) FacetService {
	return FacetService{Candidates: c, Jobs: j, Embedder: e}
}

// facetText builders. The fixed templates keep experience embeddings
// comparable between jobs and candidates.

func skillsFacetText(skills []string) string {
	return strings.Join(match.NormalizeSkills(skills), " ")
}

func candidateExperienceText(years int) string {
	return fmt.Sprintf("%d years experience", years)
}

func jobExperienceText(years int) string {
	return fmt.Sprintf("%d years experience required", years)
}

// facetPlan is one missing facet: its source text and where the computed
// vector lands.
type facetPlan struct {
	name   string
	text   string
	assign func([]float32)
}

// embedPlans fills every planned facet, batching all non-empty source texts
// into a single provider call. Facets with empty source text short-circuit
// to an empty vector without a provider call. Provider failure propagates
// untouched; no partial vector is ever assigned.
func (s FacetService) embedPlans(ctx context.Context, entity string, plans []facetPlan) error {
	texts := make([]string, 0, len(plans))
	pending := make([]facetPlan, 0, len(plans))
	for _, p := range plans {
		if p.text == "" {
			p.assign([]float32{})
			continue
		}
		texts = append(texts, p.text)
		pending = append(pending, p)
	}
	if len(texts) == 0 {
		return nil
	}
	vecs, err := s.Embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("op=facets.embed: %w", err)
	}
	if len(vecs) != len(pending) {
		return fmt.Errorf("op=facets.embed: got %d vectors for %d texts: %w", len(vecs), len(pending), domain.ErrInternal)
	}
	for i, p := range pending {
		p.assign(vecs[i])
		observability.FacetBackfillsTotal.WithLabelValues(entity, p.name).Inc()
	}
	return nil
}

// EnsureCandidateFacets returns the candidate with every derived embedding
// populated, computing and persisting only what is missing. Idempotent: a
// candidate whose facets are all present is returned as-is with zero
// provider calls and zero writes.
func (s FacetService) EnsureCandidateFacets(ctx context.Context, c domain.Candidate) (domain.Candidate, error) {
	needEmbedding := len(c.Embedding) == 0
	needSkills := len(c.SkillsEmbedding) == 0
	needExperience := len(c.ExperienceEmbedding) == 0
	needProjects := len(c.ProjectsEmbedding) == 0
	if !needEmbedding && !needSkills && !needExperience && !needProjects {
		return c, nil
	}

	out := c
	var plans []facetPlan
	if needEmbedding {
		plans = append(plans, facetPlan{"embedding", out.ResumeText, func(v []float32) { out.Embedding = v }})
	}
	if needSkills {
		plans = append(plans, facetPlan{"skills", skillsFacetText(out.Skills), func(v []float32) { out.SkillsEmbedding = v }})
	}
	if needExperience {
		plans = append(plans, facetPlan{"experience", candidateExperienceText(out.YearsExperience), func(v []float32) { out.ExperienceEmbedding = v }})
	}
	if needProjects {
		plans = append(plans, facetPlan{"projects", match.ExtractSection(out.ResumeText, "projects"), func(v []float32) { out.ProjectsEmbedding = v }})
	}
	if err := s.embedPlans(ctx, "candidate", plans); err != nil {
		return domain.Candidate{}, err
	}

	update := domain.CandidateFacets{}
	if needEmbedding {
		update.Embedding = out.Embedding
	}
	if needSkills {
		update.SkillsEmbedding = out.SkillsEmbedding
	}
	if needExperience {
		update.ExperienceEmbedding = out.ExperienceEmbedding
	}
	if needProjects {
		update.ProjectsEmbedding = out.ProjectsEmbedding
	}
	if err := s.Candidates.UpdateFacets(ctx, out.ID, update); err != nil {
		return domain.Candidate{}, fmt.Errorf("op=facets.candidate_update: %w", err)
	}
	return out, nil
}

// EnsureJobFacets is the job-side counterpart. Jobs carry no projects facet.
func (s FacetService) EnsureJobFacets(ctx context.Context, j domain.Job) (domain.Job, error) {
	needEmbedding := len(j.Embedding) == 0
	needSkills := len(j.SkillsEmbedding) == 0
	needExperience := len(j.ExperienceEmbedding) == 0
	if !needEmbedding && !needSkills && !needExperience {
		return j, nil
	}

	out := j
	var plans []facetPlan
	if needEmbedding {
		text := strings.TrimSpace(out.Title + "\n" + out.Description)
		plans = append(plans, facetPlan{"embedding", text, func(v []float32) { out.Embedding = v }})
	}
	if needSkills {
		plans = append(plans, facetPlan{"skills", skillsFacetText(out.Skills), func(v []float32) { out.SkillsEmbedding = v }})
	}
	if needExperience {
		plans = append(plans, facetPlan{"experience", jobExperienceText(out.MinExperience), func(v []float32) { out.ExperienceEmbedding = v }})
	}
	if err := s.embedPlans(ctx, "job", plans); err != nil {
		return domain.Job{}, err
	}

	update := domain.JobFacets{}
	if needEmbedding {
		update.Embedding = out.Embedding
	}
	if needSkills {
		update.SkillsEmbedding = out.SkillsEmbedding
	}
	if needExperience {
		update.ExperienceEmbedding = out.ExperienceEmbedding
	}
	if err := s.Jobs.UpdateFacets(ctx, out.ID, update); err != nil {
		return domain.Job{}, fmt.Errorf("op=facets.job_update: %w", err)
	}
	return out, nil
}
