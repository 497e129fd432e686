// Command regkb manages the regulatory knowledge base from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/regkb/internal/app"
	"github.com/DjordjeVuckovic/regkb/internal/config"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "regkb",
		Short:         "Regulatory knowledge base",
		Long:          "regkb imports regulatory documents, links successive versions and searches them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML), overrides "+config.EnvConfig)
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		addCmd(g),
		importCmd(g),
		watchCmd(g),
		searchCmd(g),
		diffCmd(g),
		resolveCmd(g),
		versionsCmd(g),
		extractCmd(g),
		reindexCmd(g),
		backupCmd(g),
		statsCmd(g),
		migrateCmd(g),
		versionCmd(),
	)
	return cmd
}

func (g *globalFlags) load() (*config.Config, error) {
	if g.configPath != "" {
		if err := os.Setenv(config.EnvConfig, g.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stderr))
	return cfg, nil
}

// withApp runs fn against a fully wired App and closes it afterwards.
func (g *globalFlags) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regkb version %s (build: %s)\n", Version, BuildTime)
		},
	}
}
