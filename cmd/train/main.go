// Command train fits the learned rating model offline from a JSONL export
// of recorded games and writes the model file the server loads at start.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/update"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

const (
	defaultEpochs       = 2000
	defaultLearningRate = 0.1
)

type options struct {
	input        string
	output       string
	epochs       int
	learningRate float64
	beta         float64
	baseFactor   float64
	sigmaRef     float64
}

func main() {
	var o options
	flag.StringVar(&o.input, "input", "rally.jsonl", "JSONL export with game records")
	flag.StringVar(&o.output, "output", "model.json", "Path of the model file to write")
	flag.IntVar(&o.epochs, "epochs", defaultEpochs, "Gradient descent epochs")
	flag.Float64Var(&o.learningRate, "lr", defaultLearningRate, "Learning rate")
	flag.Float64Var(&o.beta, "beta", update.DefaultBeta, "Logistic spread of the statistical target")
	flag.Float64Var(&o.baseFactor, "base-factor", update.DefaultBaseFactor, "Maximum statistical adjustment")
	flag.Float64Var(&o.sigmaRef, "sigma-reference", update.DefaultSigmaReference, "Sigma at which statistical deltas are unscaled")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := run(ctx, o)
	if err != nil {
		logger.Get().Error(ctx, "training failed", logger.Error(err))
		os.Exit(1)
	}
	logger.Get().Info(ctx, "model written",
		logger.String("path", o.output),
		logger.Int("samples", m.Samples),
		logger.Float64("loss", m.Loss),
	)
}

func run(ctx context.Context, o options) (*update.LinearModel, error) {
	log := logger.Get().Named("train")

	f, err := os.Open(o.input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close() //nolint:errcheck // read only

	records, err := repository.ReadGameRecords(f)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "game records read", logger.String("path", o.input), logger.Int("records", len(records)))

	trainer := update.NewTrainer(
		update.WithEpochs(o.epochs),
		update.WithLearningRate(o.learningRate),
		update.WithTarget(update.NewStatistical(
			update.WithBeta(o.beta),
			update.WithBaseFactor(o.baseFactor),
			update.WithSigmaReference(o.sigmaRef),
		)),
	)
	m, err := trainer.Train(ctx, records)
	if err != nil {
		return nil, err
	}
	metrics.RecordModelTraining(m.Loss)
	if err := update.SaveModel(o.output, m); err != nil {
		return nil, err
	}
	return m, nil
}
