package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"learningfun/internal/config"
	"learningfun/internal/database"
	"learningfun/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Learning Fun maintenance tool",
	Long:          "Operator commands for the Learning Fun backend: schema migrations, JSON backups and content previews.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(previewCmd)
}

// env is what every database command needs.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.DB
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	_ = e.log.Sync()
}

// openEnv loads configuration, opens the database and applies pending
// migrations so commands always run against the current schema.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := openDB(contextOf(cmd), cfg)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log, db: db}
	if _, err := db.RunMigrations(contextOf(cmd), cfg.MigrationsPath); err != nil {
		e.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return e, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DatabasePath = p
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	return database.Open(ctx, database.Options{
		Type: cfg.DatabaseType,
		URL:  cfg.DatabaseURL,
		Path: cfg.DatabasePath,
	})
}
