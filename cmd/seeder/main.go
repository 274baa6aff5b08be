// cmd/seeder/main.go
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/config"
	"github.com/unclebandit/phonathon-backend/internal/db"
	"github.com/unclebandit/phonathon-backend/internal/logging"
)

func main() {
	a := &app{}
	defer a.close()
	if err := newRootCmd(a).Execute(); err != nil {
		a.close()
		os.Exit(1)
	}
}

// app opens the database once per invocation, after flags are parsed.
type app struct {
	envFile string

	cfg *config.Config
	log *zap.Logger
	db  *db.Database
}

func (a *app) open(ctx context.Context) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	database, err := db.Open(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.db = cfg, log, database
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.log != nil {
		a.log.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "seeder",
		Short:        "Database setup and bulk CSV loading for the phonathon",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load instead of .env")

	root.AddCommand(
		newMigrateCmd(a),
		newInitialDataCmd(a),
		newSuperuserCmd(a),
		newUploadCmd(a),
		newUploadPoolCmd(a),
	)
	return root
}
