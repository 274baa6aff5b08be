package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/queue"
	"github.com/unclebandit/phonathon-backend/internal/repository"
	"github.com/unclebandit/phonathon-backend/internal/seed"
	"github.com/unclebandit/phonathon-backend/internal/service"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// db.Open has already migrated.
			fmt.Fprintf(cmd.OutOrStdout(), "Database migrated (%s).\n", a.cfg.DB.Driver)
			return nil
		},
	}
}

func newInitialDataCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "initial-data",
		Short: "Load groups, result codes and the admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = a.cfg.AdminPassword
			}
			rep, err := seed.NewSeeder(db.NewUnitOfWork(a.db), a.log).Apply(cmd.Context(), password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Groups added: %d\nResult codes added: %d\nAdmin created: %t\n",
				rep.Groups, rep.ResultCodes, rep.AdminCreated)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "admin-password", "", "password for a new admin account (default $ADMIN_PASSWORD)")
	return cmd
}

func newSuperuserCmd(a *app) *cobra.Command {
	var (
		su       seed.Superuser
		password string
		reset    bool
	)
	cmd := &cobra.Command{
		Use:   "superuser",
		Short: "Create or promote a superuser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var created bool
			err := db.NewUnitOfWork(a.db).WithinTx(cmd.Context(), func(ctx context.Context, tx db.DBTX) error {
				var err error
				created, err = seed.EnsureSuperuser(ctx, repository.New(tx), su, password, reset)
				return err
			})
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Superuser %q created.\n", su.Username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Superuser %q updated.\n", su.Username)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&su.Username, "username", "", "login name")
	cmd.Flags().StringVar(&su.Name, "name", "", "display name (default username)")
	cmd.Flags().StringVar(&su.Email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().BoolVar(&reset, "reset-password", false, "replace the password of an existing account")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var modelName string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upsert a CSV of one model: " + strings.Join(upload.Models, ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc, done, err := a.uploads()
			if err != nil {
				return err
			}
			defer done()
			sum, err := svc.Upload(cmd.Context(), service.UploadRequest{
				Model:    modelName,
				Uploader: uploader(),
				Filename: filepath.Base(args[0]),
				File:     f,
			})
			printSummary(cmd.OutOrStdout(), sum)
			return err
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "model the rows belong to")
	cmd.MarkFlagRequired("model")
	return cmd
}

func newUploadPoolCmd(a *app) *cobra.Command {
	var project, pool string
	cmd := &cobra.Command{
		Use:   "upload-pool FILE",
		Short: "Upsert a prospect CSV into a pool of an existing project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc, done, err := a.uploads()
			if err != nil {
				return err
			}
			defer done()
			res, err := svc.UploadPool(cmd.Context(), service.PoolUploadRequest{
				Project:  project,
				Pool:     pool,
				Uploader: uploader(),
				Filename: filepath.Base(args[0]),
				File:     f,
			})
			if res != nil {
				printSummary(cmd.OutOrStdout(), res.Summary())
				if res.Pool != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Pool %q: %d added, %d prospects\n", res.Pool.Name, res.Added, res.Pool.ProspectCount)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project name")
	cmd.Flags().StringVar(&pool, "pool", "", "pool name, created when missing")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("pool")
	return cmd
}

// uploads publishes reports to RabbitMQ when AMQP_URL is set, so the worker
// logs seeder uploads the same way as web uploads.
func (a *app) uploads() (*service.UploadService, func(), error) {
	rec := upload.NewReconciler(db.NewUnitOfWork(a.db), a.log)
	if a.cfg.AMQPURL == "" {
		return service.NewUploadService(rec, nil, a.log), func() {}, nil
	}
	q, err := queue.DialAMQP(a.cfg.AMQPURL, a.log)
	if err != nil {
		return nil, nil, err
	}
	return service.NewUploadService(rec, q, a.log), func() { q.Close() }, nil
}

func printSummary(w io.Writer, sum *upload.Summary) {
	if sum == nil {
		return
	}
	fmt.Fprintf(w, "%s: %d created, %d updated, %d skipped\n", sum.Model, len(sum.Created), len(sum.Updated), len(sum.Skipped))
	for _, s := range sum.Skipped {
		fmt.Fprintf(w, "  %s\n", s.Error())
	}
}

// uploader names the OS account running the command in upload reports.
func uploader() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "seeder"
}
