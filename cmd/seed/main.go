// Command seed loads candidates, jobs, and applications from a YAML fixture
// file into the database, computing embeddings as it goes. Intended for local
// development and demo environments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	ai "github.com/hiregrid/matchengine/internal/adapter/ai"
	"github.com/hiregrid/matchengine/internal/adapter/ai/openai"
	"github.com/hiregrid/matchengine/internal/adapter/ai/stub"
	"github.com/hiregrid/matchengine/internal/adapter/observability"
	"github.com/hiregrid/matchengine/internal/adapter/repo/postgres"
	"github.com/hiregrid/matchengine/internal/config"
	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/match"
	"github.com/hiregrid/matchengine/internal/usecase"
)

type fixture struct {
	Jobs []struct {
		Title         string   `yaml:"title"`
		Description   string   `yaml:"description"`
		Skills        []string `yaml:"skills"`
		MinExperience int      `yaml:"min_experience"`
	} `yaml:"jobs"`
	Candidates []struct {
		Name          string   `yaml:"name"`
		Email         string   `yaml:"email"`
		Resume        string   `yaml:"resume"`
		Skills        []string `yaml:"skills"`
		ExternalYears *float64 `yaml:"external_years"`
	} `yaml:"candidates"`
	// Applications pair fixture indexes: candidate i applies to job j.
	Applications []struct {
		Job       int `yaml:"job"`
		Candidate int `yaml:"candidate"`
	} `yaml:"applications"`
}

func main() {
	var file string
	flag.StringVar(&file, "file", "cmd/seed/seed.example.yaml", "path to the YAML fixture file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	slog.SetDefault(observability.SetupLogger(cfg))

	raw, err := os.ReadFile(file)
	if err != nil {
		slog.Error("read fixture failed", slog.String("file", file), slog.Any("error", err))
		os.Exit(1)
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		slog.Error("parse fixture failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	candRepo := postgres.NewCandidateRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)
	appRepo := postgres.NewApplicationRepo(pool)

	var embedder domain.Embedder
	if cfg.EmbedderStub {
		embedder = stub.New()
	} else {
		embedder = openai.New(cfg)
	}
	embedder = ai.NewEmbedCache(ai.NewSerialized(embedder), cfg.EmbedCacheSize)

	mode, err := match.ParseMode(cfg.ScoringMode)
	if err != nil {
		slog.Error("invalid scoring mode", slog.Any("error", err))
		os.Exit(1)
	}
	scorer, err := match.NewScorer(mode)
	if err != nil {
		slog.Error("scorer init failed", slog.Any("error", err))
		os.Exit(1)
	}

	facets := usecase.NewFacetService(candRepo, jobRepo, embedder)
	candSvc := usecase.NewCandidateService(candRepo, embedder, nil)
	jobSvc := usecase.NewJobService(jobRepo, facets, embedder)
	matchSvc := usecase.NewMatchService(jobRepo, candRepo, appRepo, facets, scorer, cfg.RankBackfillConcurrency)

	jobIDs := make([]string, 0, len(fx.Jobs))
	for _, j := range fx.Jobs {
		created, err := jobSvc.Create(ctx, usecase.JobInput{
			Title:         j.Title,
			Description:   j.Description,
			Skills:        j.Skills,
			MinExperience: j.MinExperience,
		})
		if err != nil {
			slog.Error("seed job failed", slog.String("title", j.Title), slog.Any("error", err))
			os.Exit(1)
		}
		jobIDs = append(jobIDs, created.ID)
		slog.Info("seeded job", slog.String("id", created.ID), slog.String("title", created.Title))
	}

	candIDs := make([]string, 0, len(fx.Candidates))
	for _, c := range fx.Candidates {
		created, err := candSvc.Ingest(ctx, usecase.CandidateInput{
			Name:          c.Name,
			Email:         c.Email,
			ResumeText:    c.Resume,
			Skills:        c.Skills,
			ExternalYears: c.ExternalYears,
		})
		if err != nil {
			slog.Error("seed candidate failed", slog.String("name", c.Name), slog.Any("error", err))
			os.Exit(1)
		}
		candIDs = append(candIDs, created.ID)
		slog.Info("seeded candidate",
			slog.String("id", created.ID),
			slog.Int("years_experience", created.YearsExperience),
			slog.String("years_source", created.YearsExperienceSource))
	}

	seen := map[int]bool{}
	for _, a := range fx.Applications {
		if a.Job < 0 || a.Job >= len(jobIDs) || a.Candidate < 0 || a.Candidate >= len(candIDs) {
			slog.Warn("skipping application with out-of-range index", slog.Int("job", a.Job), slog.Int("candidate", a.Candidate))
			continue
		}
		if _, err := matchSvc.Apply(ctx, jobIDs[a.Job], candIDs[a.Candidate]); err != nil {
			slog.Error("seed application failed", slog.Any("error", err))
			os.Exit(1)
		}
		seen[a.Job] = true
	}

	// Warm the facet embeddings and freeze initial rankings.
	for jobIdx := range seen {
		ranked, err := matchSvc.RankApplicants(ctx, jobIDs[jobIdx])
		if err != nil {
			slog.Error("seed ranking failed", slog.String("job_id", jobIDs[jobIdx]), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("seeded ranking", slog.String("job_id", jobIDs[jobIdx]), slog.Int("applicants", len(ranked)))
	}
}
