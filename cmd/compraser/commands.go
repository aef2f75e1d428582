package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"compraser-api/internal"
	"compraser-api/internal/infrastructure/db/postgres"
	"compraser-api/internal/infrastructure/jwt"
	"compraser-api/internal/interface/api/rest/dto/file_record"
)

const defaultTokenTTL = time.Hour

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "compraser",
		Short:        "File upload, compression and expiry service",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newSweepCmd(), newMigrateCmd(), newTokenCmd())

	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event workers and the sweep schedule",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := internal.Bootstrap()
	if err != nil {
		return err
	}

	app, err := internal.NewApp(cmd.Context(), cfg, logger, true)
	if err != nil {
		logger.Error("init app failed", zap.Error(err))
		return err
	}
	defer app.Close()

	app.InitControllers()

	if err = app.Run(cmd.Context()); err != nil {
		app.Logger().Sugar().Errorf("compraser stopped with error: %v", err)
		return err
	}
	return nil
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired file records and their assets once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := internal.Bootstrap()
			if err != nil {
				return err
			}

			app, err := internal.NewApp(cmd.Context(), cfg, logger, false)
			if err != nil {
				logger.Error("init app failed", zap.Error(err))
				return err
			}
			defer app.Close()

			res, err := app.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(file_record.CleanupResponse{
				DeletedCount:  res.DeletedCount,
				AssetsDeleted: &res.AssetsDeleted,
				AssetFailures: &res.AssetFailures,
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := internal.Bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			dsn, err := cfg.MigrateDSN()
			if err != nil {
				return fmt.Errorf("DB config error: %w", err)
			}
			return postgres.Migrate(logger, dsn)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the cleanup endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}

			cfg, _, err := internal.Bootstrap()
			if err != nil {
				return err
			}

			tok, err := jwt.New(cfg.Cleanup.Secret).GenerateCleanupToken(ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")

	return cmd
}
