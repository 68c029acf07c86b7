package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/accounts"
	"github.com/dharsanguruparan/ftpledger/internal/app"
	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/database"
	"github.com/dharsanguruparan/ftpledger/internal/database/migrations"
	"github.com/dharsanguruparan/ftpledger/internal/logger"
	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

// withApp loads the configuration, builds the App and hands it to fn.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	a, err := app.New(cmd.Context(), cfg, zl)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := app.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			latest, err := migrations.LatestVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", latest)
			return nil
		},
	}, &cobra.Command{
		Use:   "status",
		Short: "Compare the database version with the embedded migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.OpenSQL(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			st, err := migrations.CheckMigrationStatus(db)
			if st != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "version %d, latest %d, dirty %t\n", st.Version, st.Latest, st.Dirty)
			}
			return err
		},
	})
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one batch reconciliation over every active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				summary, err := a.Service.ReconcileActive(cmd.Context(), a.Source)
				if err != nil {
					return err
				}
				a.Log.Info("reconcile finished",
					zap.Int("users", summary.UsersProcessed),
					zap.Int("new_files", summary.NewFiles()))
				if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
				return reconcile.PartialFailure(summary)
			})
		},
	}
}

func newIngestCmd() *cobra.Command {
	var obs model.CandidateFile
	var timestamp string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Track a single file observation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := model.ParseTimestamp(timestamp)
			if err != nil {
				return fmt.Errorf("--timestamp: %w", err)
			}
			obs.Timestamp = ts
			return withApp(cmd, func(a *app.App) error {
				result, err := a.Service.Ingest(cmd.Context(), obs)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&obs.Username, "user", "", "FTP login name")
	cmd.Flags().StringVar(&obs.Filename, "name", "", "File name (default: last path element)")
	cmd.Flags().StringVar(&obs.Filepath, "path", "", "Absolute file path")
	cmd.Flags().Float64Var(&obs.Filesize, "size", 0, "File size in bytes")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Observation time (ISO 8601, UTC when no zone is given)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newTouchCmd() *cobra.Command {
	var obs model.CandidateFile
	var timestamp string
	cmd := &cobra.Command{
		Use:   "touch",
		Short: "Record a read of a tracked file (last_accessed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := model.ParseTimestamp(timestamp)
			if err != nil {
				return fmt.Errorf("--timestamp: %w", err)
			}
			obs.Timestamp = ts
			return withApp(cmd, func(a *app.App) error {
				return a.Service.Touch(cmd.Context(), obs)
			})
		},
	}
	cmd.Flags().StringVar(&obs.Username, "user", "", "FTP login name")
	cmd.Flags().StringVar(&obs.Filepath, "path", "", "Absolute file path")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Access time (ISO 8601, default now)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administer FTP accounts",
	}

	var req accounts.NewAccount
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				account, err := a.Accounts.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), account)
			})
		},
	}
	create.Flags().StringVar(&req.Username, "user", "", "FTP login name")
	create.Flags().StringVar(&req.Password, "password", "", "Initial password")
	create.Flags().StringVar(&req.HomeDirectory, "home", "", "Home directory (default /home/ftp/<user>)")
	create.Flags().IntVar(&req.QuotaMB, "quota-mb", accounts.DefaultQuotaMB, "Storage quota in MB")
	create.Flags().IntVar(&req.MaxConnections, "max-connections", accounts.DefaultMaxConnections, "Concurrent session limit")
	_ = create.MarkFlagRequired("user")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				list, err := a.Accounts.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, acc := range list {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-8s %s\n", acc.Username, acc.Status, acc.HomeDirectory)
				}
				return nil
			})
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate <username>",
		Short: "Deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				_, err := a.Accounts.Deactivate(cmd.Context(), args[0])
				if errors.Is(err, model.ErrNotFound) {
					return fmt.Errorf("no account named %q", args[0])
				}
				return err
			})
		},
	}

	cmd.AddCommand(create, list, deactivate)
	return cmd
}
