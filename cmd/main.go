package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/okian/rally/internal/adapters/http/api"
	"github.com/okian/rally/internal/adapters/repository"
	app "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	decayInterval          = 24 * time.Hour
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, loggerInstance)
	if err := loadData(ctx, svc, cfg.DataPath); err != nil {
		loggerInstance.Error(ctx, "failed to load data", logger.String("path", cfg.DataPath), logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	go startServiceMetricsUpdater(ctx, svc)
	go startDecayLoop(ctx, svc, loggerInstance)

	apiServer := api.NewServer(svc, api.WithMaxStandingsLimit(cfg.MaxStandingsLimit))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	svc.Stop(shutdownCtx)
	if err := saveData(shutdownCtx, svc, cfg.DataPath); err != nil {
		loggerInstance.Error(shutdownCtx, "failed to save data", logger.String("path", cfg.DataPath), logger.Error(err))
	}
	loggerInstance.Info(shutdownCtx, "server stopped")
}

// newService maps configuration onto service options.
func newService(cfg *config.Config, l logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(l),
		app.WithRegistry(repository.NewRegistry(repository.WithMaxHistory(cfg.MaxHistory))),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithTeamSize(cfg.TeamSize),
		app.WithIterations(cfg.Iterations),
		app.WithOptimizerStrategy(optimizer.Strategy(cfg.OptimizerStrategy)),
		app.WithPerturbation(cfg.Perturbation),
		app.WithSeed(cfg.Seed),
		app.WithRoundsCap(cfg.RoundsCap),
		app.WithIntegratedIterations(cfg.IntegratedIterations),
		app.WithRatingStrategy(cfg.RatingStrategy),
		app.WithModelPath(cfg.ModelPath),
		app.WithBeta(cfg.Beta),
		app.WithBaseFactor(cfg.BaseFactor),
		app.WithSigmaReference(cfg.SigmaReference),
		app.WithCloseness(cfg.QualityCloseness),
		app.WithSigmaFloor(cfg.SigmaFloor),
		app.WithSigmaDecay(cfg.SigmaDecay),
		app.WithChemistry(cfg.ChemistryEnabled, cfg.ChemistryWeight),
	)
}

// loadData imports a JSONL snapshot when path is set and exists.
func loadData(ctx context.Context, svc *app.Service, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // read only
	n, err := svc.Import(ctx, f)
	if err != nil {
		return err
	}
	logger.Get().Info(ctx, "data imported", logger.String("path", path), logger.Int("records", n))
	return nil
}

// saveData writes a JSONL snapshot next to path and renames it into place.
func saveData(ctx context.Context, svc *app.Service, path string) error {
	if path == "" {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rally-*.jsonl")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best effort after rename
	if err := svc.Export(ctx, tmp); err != nil {
		tmp.Close() //nolint:errcheck,gosec // export error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// startServiceMetricsUpdater refreshes service gauges periodically.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if n, ok := stats["participants"].(int); ok {
		metrics.UpdateParticipants(n)
	}
}

// startDecayLoop applies inactivity decay once a day.
func startDecayLoop(ctx context.Context, svc *app.Service, l logger.Logger) {
	ticker := time.NewTicker(decayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ApplyDecay(ctx); err != nil {
				l.Error(ctx, "inactivity decay failed", logger.Error(err))
			}
		}
	}
}
