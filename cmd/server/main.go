// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/phonathon-backend/internal/config"
	"github.com/unclebandit/phonathon-backend/internal/controller"
	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/handler"
	"github.com/unclebandit/phonathon-backend/internal/logging"
	"github.com/unclebandit/phonathon-backend/internal/queue"
	"github.com/unclebandit/phonathon-backend/internal/repository"
	"github.com/unclebandit/phonathon-backend/internal/seed"
	"github.com/unclebandit/phonathon-backend/internal/service"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

const sessionPurgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer database.Close()
	uow := db.NewUnitOfWork(database)

	if cfg.AdminPassword != "" {
		if _, err := seed.NewSeeder(uow, log).Apply(ctx, cfg.AdminPassword); err != nil {
			return fmt.Errorf("initial data: %w", err)
		}
	} else {
		log.Warn("ADMIN_PASSWORD not set, skipping initial data")
	}

	q, err := newQueue(cfg, log)
	if err != nil {
		return err
	}
	defer q.Close()

	repos := repository.New(database.Conn())
	auth := service.NewAuthService(database, uow, cfg.SessionTTL, log)
	rec := upload.NewReconciler(uow, log)

	router := handler.NewRouter(handler.Deps{
		Auth: &controller.AuthController{
			Auth:   auth,
			Cookie: cfg.SessionCookie,
			Secure: cfg.CookieSecure,
			Log:    log,
		},
		Home: &controller.HomeController{
			Callers: &service.CallerService{Assignments: repos.Assignments},
			Log:     log,
		},
		Uploads: &controller.UploadController{
			Uploads:  service.NewUploadService(rec, q, log),
			MaxBytes: cfg.UploadMaxBytes,
			Log:      log,
		},
		Admin: &controller.AdminController{
			Admin: service.NewAdminService(repos, rec, auth, log),
			Log:   log,
		},
		Sessions: auth,
		Cookie:   cfg.SessionCookie,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("🚀 server running", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return service.NewWorker(auth, sessionPurgeInterval, log).Start(gctx)
	})
	return g.Wait()
}

// newQueue publishes upload reports to RabbitMQ when configured, where
// cmd/worker consumes them. Otherwise reports stay in process.
func newQueue(cfg *config.Config, log *zap.Logger) (queue.Queue, error) {
	if cfg.AMQPURL != "" {
		return queue.DialAMQP(cfg.AMQPURL, log)
	}
	q := queue.NewInMemoryQueue(log)
	if err := queue.StartUploadReportSubscriber(q, log); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}
