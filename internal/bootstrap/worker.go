package bootstrap

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"triage_server/adapter/in/worker"
	"triage_server/adapter/out/messaging"
	"triage_server/config"
	"triage_server/pkg/logger"
)

// Worker owns the stream consumer for one triage process.
type Worker struct {
	consumer *messaging.Consumer
	deps     *Dependencies
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	processor := worker.NewTriageProcessor(
		deps.Classifier,
		deps.TicketRepo,
		deps.DirectoryRepo,
		deps.RuleRepo,
		deps.RoutingEngine,
		deps.Producer,
		cfg.AutoRoute,
	)
	handler := worker.NewHandler(processor)

	consumer := messaging.NewConsumer(deps.Stream, &messaging.ConsumerConfig{
		Consumer: cfg.ConsumerID,
		Streams: []string{
			messaging.StreamClassify,
			messaging.StreamRetry,
			messaging.StreamRoute,
		},
		Handler:              handler,
		Logger:               zlog,
		BlockWait:            deps.consumerBlockWait(),
		TransportBackoff:     deps.consumerRetryBackoff(),
		PendingCheckInterval: time.Duration(cfg.ConsumerReclaimSec) * time.Second,
		PendingIdleTime:      cfg.ConsumerPendingIdle,
		MaxDeliveries:        cfg.ConsumerMaxRetries,
	})

	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		consumer: consumer,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
	}
	return w, cleanup, nil
}

// Start runs the consumer and blocks until Stop is called.
func (w *Worker) Start() {
	logger.Info("worker started (consumer: %s, group: %s)",
		w.deps.Config.ConsumerID, w.deps.Config.ConsumerGroup)
	w.consumer.Start(w.ctx)
	<-w.ctx.Done()
}

// Stop drains the in-flight job and shuts the consumer down.
func (w *Worker) Stop() {
	w.consumer.Stop()
	w.cancel()
	logger.Info("worker stopped")
}
