package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/config"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/infra"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/service"
	"github.com/replika-labs/wms-01-sub000/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wmsctl",
		Short:         "Operational commands for the WMS backend",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(), seedUserCmd(), hashPasswordCmd(), deadLettersCmd())
	return root
}

// openDB loads the config and connects with DATABASE_URL.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return cfg, db, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			return infra.Migrate(cmd.Context(), db)
		},
	}, &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			return infra.Rollback(cmd.Context(), db)
		},
	}, &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			statuses, err := infra.MigrationStatus(cmd.Context(), db)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tSTATE\tAPPLIED AT")
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Source.Path, s.State, applied)
			}
			return w.Flush()
		},
	})
	return cmd
}

func seedUserCmd() *cobra.Command {
	var req dto.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a user, typically the first admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("WMS_SEED_PASSWORD")
			}
			if req.Password == "" {
				return errors.New("--password or WMS_SEED_PASSWORD is required")
			}
			if err := validator.New().Struct(req); err != nil {
				return err
			}
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			svc := service.NewAuthService(repository.NewUserRepository(db), cfg)
			u, err := svc.CreateUser(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s> with role %s\n", u.ID, u.Email, u.Role)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "Administrator", "display name")
	f.StringVar(&req.Email, "email", "", "login email")
	f.StringVar(&req.Password, "password", "", "initial password (min 8 chars)")
	f.StringVar(&req.Role, "role", model.RoleAdmin, "admin | manager | staff")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash stored for a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := bcrypt.GenerateFromPassword([]byte(args[0]), service.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(h))
			return nil
		},
	}
}

func deadLettersCmd() *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "List stock alerts that exhausted their delivery attempts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rdb, err := infra.NewRedis(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			if rdb == nil {
				return errors.New("REDIS_URL is not set; alerts are not queued")
			}
			defer rdb.Close()

			entries, err := worker.ListDeadLetters(cmd.Context(), rdb, worker.QueueStockAlert, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAILED AT\tCODE\tON HAND\tATTEMPTS\tREASON")
			for _, e := range entries {
				code, onHand := "?", "?"
				if a, err := e.Alert(); err == nil {
					code, onHand = a.Code, a.QtyOnHand.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.FailedAt.Format(time.RFC3339), code, onHand, e.Attempts, e.Reason)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum entries to show, newest first")
	return cmd
}
