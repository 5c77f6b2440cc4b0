package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"gamelog/internal/app"
	"gamelog/internal/config"
	"gamelog/internal/version"
	"gamelog/pkg/db"
	"gamelog/services/accounts"
	"gamelog/services/catalog"
	"gamelog/services/maintenance"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gamelogctl",
		Short:         "Operator tasks for the GameLog database and mail setup",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newBackfillUsernamesCommand())
	cmd.AddCommand(newVerifyAllCommand())
	cmd.AddCommand(newTestEmailCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withORM opens the database named by DB_DSN for the duration of fn.
func withORM(ctx context.Context, fn func(orm *gorm.DB) error) error {
	dsn, err := config.LoadDSN(ctx)
	if err != nil {
		return err
	}
	orm, err := db.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close(orm) }()
	return fn(orm)
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			dsn, err := config.LoadDSN(ctx)
			if err != nil {
				return err
			}
			pool, err := db.Open(ctx, dsn)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newBackfillUsernamesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-usernames",
		Short: "Give every account without a username the name user_<id>",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withORM(ctx, func(orm *gorm.DB) error {
				n, err := accounts.NewGormStore(orm).BackfillUsernames(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backfilled %d usernames\n", n)
				return nil
			})
		},
	}
}

func newVerifyAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-all",
		Short: "Mark every account as email-verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withORM(ctx, func(orm *gorm.DB) error {
				n, err := accounts.NewGormStore(orm).VerifyAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "verified %d accounts\n", n)
				return nil
			})
		},
	}
}

func newTestEmailCommand() *cobra.Command {
	var (
		to     string
		origin string
	)

	cmd := &cobra.Command{
		Use:   "test-email",
		Short: "Send a sample verification email through the configured transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			mailCfg, err := config.LoadMail(ctx)
			if err != nil {
				return err
			}
			logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
			mailer, err := app.NewMailer(mailCfg, logger, nil)
			if err != nil {
				return err
			}
			if err := mailer.SendVerification(ctx, to, "GameLog tester", origin+"/verify-email/example", 24*time.Hour); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test email sent to %s\n", to)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&origin, "origin", "http://localhost:5173", "Base URL used in the sample link")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo categories and games owned by a seed account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			seed, err := loadSeed(file)
			if err != nil {
				return err
			}
			return withORM(ctx, func(orm *gorm.DB) error {
				res, err := maintenance.Seed(ctx, accounts.NewGormStore(orm), catalog.NewService(orm, nil), accounts.NewHasher(0), seed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d games (%d already present)\n",
					res.Categories, res.GamesCreated, res.GamesSkipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Seed YAML file (defaults to the built-in demo data)")
	return cmd
}

func loadSeed(path string) (maintenance.SeedFile, error) {
	if path == "" {
		return maintenance.DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return maintenance.SeedFile{}, err
	}
	defer f.Close()
	return maintenance.ReadSeed(f)
}
