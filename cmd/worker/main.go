package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/config"
	"github.com/unclebandit/phonathon-backend/internal/logging"
	"github.com/unclebandit/phonathon-backend/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required")
	}
	q, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal("connecting to RabbitMQ", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, q, log); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}

// run consumes upload reports until ctx is done, then closes q.
func run(ctx context.Context, q queue.Queue, log *zap.Logger) error {
	if err := queue.StartUploadReportSubscriber(q, log); err != nil {
		q.Close()
		return err
	}
	log.Info("worker running, waiting for upload reports...")

	<-ctx.Done()
	log.Info("worker stopping")
	if err := q.Close(); err != nil && !errors.Is(err, queue.ErrClosed) {
		return err
	}
	return nil
}
