package cmd

import (
	"fmt"

	"github.com/abhisek/eikengen/internal/config"
	"github.com/abhisek/eikengen/internal/logging"
	"github.com/abhisek/eikengen/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eikengen",
	Short: "Adaptive Eiken practice item generator",
	Long: `eikengen picks a topic for each learner, asks an LLM for a practice item,
and accepts it only after vocabulary, text-complexity and session-diversity
checks pass. Every outcome feeds back into future topic selection.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides EIKENGEN_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides EIKENGEN_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log format: dev or prod")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(blacklistCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(lexiconCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.Logging.Mode = m
	}
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		cfg.Logging.Level = l
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config file or EIKENGEN_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}

// env is the configuration, store and logger shared by subcommands.
type env struct {
	cfg   config.Config
	store *store.Store
	log   *logging.Logger
}

// openEnv loads config, builds the logger and opens the database. Callers
// must Close the result.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Debug("database opened", "path", dbPath)
	return &env{cfg: cfg, store: s, log: log}, nil
}

func (e *env) Close() {
	e.store.Close()
	e.log.Sync()
}
