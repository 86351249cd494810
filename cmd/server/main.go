// Command server starts the match engine HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ai "github.com/hiregrid/matchengine/internal/adapter/ai"
	"github.com/hiregrid/matchengine/internal/adapter/ai/openai"
	"github.com/hiregrid/matchengine/internal/adapter/ai/stub"
	httpserver "github.com/hiregrid/matchengine/internal/adapter/httpserver"
	"github.com/hiregrid/matchengine/internal/adapter/observability"
	"github.com/hiregrid/matchengine/internal/adapter/repo/postgres"
	qdrantidx "github.com/hiregrid/matchengine/internal/adapter/vector/qdrant"
	"github.com/hiregrid/matchengine/internal/app"
	"github.com/hiregrid/matchengine/internal/config"
	"github.com/hiregrid/matchengine/internal/domain"
	"github.com/hiregrid/matchengine/internal/match"
	"github.com/hiregrid/matchengine/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

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

	// Embedder chain: provider -> serialized -> cache.
	var embedder domain.Embedder
	if cfg.EmbedderStub {
		slog.Warn("using deterministic stub embedder; scores are not meaningful")
		embedder = stub.New()
	} else {
		embedder = openai.New(cfg)
	}
	embedder = ai.NewEmbedCache(ai.NewSerialized(embedder), cfg.EmbedCacheSize)

	var index domain.VectorIndex
	if cfg.QdrantEnabled() {
		qidx := qdrantidx.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
		dim := stub.Dimension
		if !cfg.EmbedderStub {
			dim = 1536 // text-embedding-3-small
		}
		if err := qidx.EnsureCollection(ctx, dim); err != nil {
			slog.Error("qdrant ensure collection failed", slog.Any("error", err))
		}
		index = qidx
	}

	mode, err := match.ParseMode(cfg.ScoringMode)
	if err != nil {
		slog.Error("invalid scoring mode", slog.String("mode", cfg.ScoringMode), slog.Any("error", err))
		os.Exit(1)
	}
	scorer, err := match.NewScorer(mode)
	if err != nil {
		slog.Error("scorer init failed", slog.Any("error", err))
		os.Exit(1)
	}

	facets := usecase.NewFacetService(candRepo, jobRepo, embedder)
	candSvc := usecase.NewCandidateService(candRepo, embedder, index)
	jobSvc := usecase.NewJobService(jobRepo, facets, embedder)
	matchSvc := usecase.NewMatchService(jobRepo, candRepo, appRepo, facets, scorer, cfg.RankBackfillConcurrency)

	dbCheck, qdrantCheck := app.BuildReadinessChecks(cfg, pool)

	srv := httpserver.NewServer(cfg, candSvc, jobSvc, matchSvc, candRepo, jobRepo, dbCheck, qdrantCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("scoring_mode", cfg.ScoringMode))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
