package match

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/hiregrid/matchengine/internal/domain"
)

// Mode selects the scoring strategy. It is read from configuration once at
// process start and threaded through explicitly; nothing in this package
// consults ambient state.
type Mode string

const (
	// ModeSemantic ranks purely on whole-text embedding similarity; the other
	// facet numbers are exposed for explanatory breakdowns only.
	ModeSemantic Mode = "semantic"
	// ModeComposite blends heuristic and semantic signals with fixed weights.
	ModeComposite Mode = "composite"
)

// ParseMode validates a configured scoring mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSemantic:
		return ModeSemantic, nil
	case ModeComposite:
		return ModeComposite, nil
	}
	return "", fmt.Errorf("op=match.parse_mode: unknown scoring mode %q: %w", s, domain.ErrInvalidArgument)
}

// Weights are the composite-mode facet weights. They must sum to 1.0.
type Weights struct {
	Experience float64
	Skills     float64
	Projects   float64
	Semantic   float64
}

// DefaultWeights are the fixed production weights.
var DefaultWeights = Weights{Experience: 0.4, Skills: 0.2, Projects: 0.2, Semantic: 0.2}

func (w Weights) sum() float64 { return w.Experience + w.Skills + w.Projects + w.Semantic }

// Scorer fuses facet signals into a single ranked score with a per-facet
// breakdown. It is immutable and safe for concurrent use.
type Scorer struct {
	mode    Mode
	weights Weights
}

// NewScorer builds a scorer with the default weights.
func NewScorer(mode Mode) (*Scorer, error) {
	return NewScorerWithWeights(mode, DefaultWeights)
}

// NewScorerWithWeights builds a scorer with custom composite weights. The
// weights must sum to exactly 1.0 (within 1e-9) so composite breakdowns keep
// summing to the score.
func NewScorerWithWeights(mode Mode, w Weights) (*Scorer, error) {
	if mode != ModeSemantic && mode != ModeComposite {
		return nil, fmt.Errorf("op=match.new_scorer: unknown mode %q: %w", mode, domain.ErrInvalidArgument)
	}
	if math.Abs(w.sum()-1.0) > 1e-9 {
		return nil, fmt.Errorf("op=match.new_scorer: weights sum to %.4f, want 1.0: %w", w.sum(), domain.ErrInvalidArgument)
	}
	return &Scorer{mode: mode, weights: w}, nil
}

// Mode returns the configured scoring strategy.
func (s *Scorer) Mode() Mode { return s.mode }

// Score compares one candidate against one job. Score is always in [0,1].
// Missing facet vectors degrade to 0 for that facet; nothing here returns an
// error, so one unscorable facet never aborts the comparison.
func (s *Scorer) Score(c domain.Candidate, j domain.Job) domain.MatchResult {
	matchedRatio, matched, missing := skillOverlap(j.Skills, c.Skills)
	res := domain.MatchResult{
		CandidateID:   c.ID,
		MatchedSkills: matched,
		MissingSkills: missing,
	}
	if s.mode == ModeSemantic {
		res.Similarity = cosineOrZero(j.Embedding, c.Embedding)
		res.SkillMatch = cosineOrZero(j.SkillsEmbedding, c.SkillsEmbedding)
		res.ExperienceScore = cosineOrZero(j.ExperienceEmbedding, c.ExperienceEmbedding)
		// Jobs have no projects facet: the candidate's projects embedding is
		// compared against the job's whole-description embedding.
		res.ProjectScore = cosineOrZero(j.Embedding, c.ProjectsEmbedding)
		res.Score = res.Similarity
		res.Breakdown = domain.ScoreBreakdown{
			Experience: res.ExperienceScore,
			Skills:     res.SkillMatch,
			Projects:   res.ProjectScore,
			Semantic:   res.Similarity,
		}
		return res
	}

	res.ExperienceScore = experienceFit(c, j)
	res.SkillMatch = matchedRatio
	res.ProjectScore = descriptionCoverage(j.Description, c.ResumeText)
	res.Similarity = cosineOrZero(j.Embedding, c.Embedding)
	res.Breakdown = domain.ScoreBreakdown{
		Experience: round4(res.ExperienceScore * s.weights.Experience),
		Skills:     round4(res.SkillMatch * s.weights.Skills),
		Projects:   round4(res.ProjectScore * s.weights.Projects),
		Semantic:   round4(res.Similarity * s.weights.Semantic),
	}
	res.Score = round4(res.Breakdown.Experience + res.Breakdown.Skills + res.Breakdown.Projects + res.Breakdown.Semantic)
	return res
}

// Rank scores every candidate and returns results sorted descending by
// score; ties keep input order (stable sort).
func (s *Scorer) Rank(candidates []domain.Candidate, j domain.Job) []domain.MatchResult {
	results := make([]domain.MatchResult, len(candidates))
	for i, c := range candidates {
		results[i] = s.Score(c, j)
	}
	sort.SliceStable(results, func(a, b int) bool { return results[a].Score > results[b].Score })
	return results
}

// skillOverlap computes the required-skill match ratio with matched and
// missing lists in required-skill order. The required list is normalized and
// deduplicated here so the ratio is stable regardless of caller hygiene.
// An empty requirement is vacuously satisfied.
func skillOverlap(required, have []string) (float64, []string, []string) {
	req := dedupeSkills(NormalizeSkills(required))
	matched := []string{}
	missing := []string{}
	if len(req) == 0 {
		return 1, matched, missing
	}
	haveSet := make(map[string]struct{})
	for _, s := range NormalizeSkills(have) {
		haveSet[s] = struct{}{}
	}
	for _, s := range req {
		if _, ok := haveSet[s]; ok {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return float64(len(matched)) / float64(len(req)), matched, missing
}

// experienceFit scores candidate years against the job minimum: full credit
// at or above the minimum, partial credit within one year below, a floor
// otherwise, and a neutral 0.5 when either side is unstated.
func experienceFit(c domain.Candidate, j domain.Job) float64 {
	unknown := c.YearsExperienceSource == "" || c.YearsExperienceSource == domain.ExperienceSourceUnknown
	if j.MinExperience <= 0 || unknown {
		return 0.5
	}
	switch {
	case c.YearsExperience >= j.MinExperience:
		return 1
	case c.YearsExperience >= j.MinExperience-1:
		return 0.7
	default:
		return 0.3
	}
}

// stopWords filters common English tokens that add noise to keyword overlap.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "such": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
}

// tokenize lowercases text and splits on non-alphanumerics, dropping stop
// words and tokens of two characters or fewer. Returns a distinct token set.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var word strings.Builder
	flush := func() {
		w := word.String()
		word.Reset()
		if len(w) <= 2 || stopWords[w] {
			return
		}
		tokens[w] = struct{}{}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// descriptionCoverage measures how much of what the job asks for appears in
// the resume: overlap of distinct token sets divided by the size of the
// job's set. Deliberately asymmetric, not a Jaccard index.
func descriptionCoverage(jobText, resumeText string) float64 {
	jobTokens := tokenize(jobText)
	resumeTokens := tokenize(resumeText)
	if len(jobTokens) == 0 || len(resumeTokens) == 0 {
		return 0
	}
	overlap := 0
	for t := range jobTokens {
		if _, ok := resumeTokens[t]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(jobTokens))
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
