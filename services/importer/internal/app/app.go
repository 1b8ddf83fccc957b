package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stoik/taskbridge/internal/logger"
	"github.com/stoik/taskbridge/services/importer/internal/config"
	"github.com/stoik/taskbridge/services/importer/internal/migration"
	"github.com/stoik/taskbridge/services/importer/internal/report"
)

var rootCmd = &cobra.Command{
	Use:          "importer",
	Short:        "Task importer",
	Long:         "Imports projects, sections, tasks, tags and comments from Trello, Asana, Todoist and Monday",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one import",
	Long:  "Imports everything the configured source exposes into the destination team. Re-running is safe: existing records are reused.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.Load(viper.GetViper())
		log := newLogger(cfg)
		defer log.Sync()

		result, err := migration.RunImport(ctx, cfg.Source, cfg.Credentials(), cfg.RunConfig(log))
		if result == nil {
			return err
		}

		sinks := report.Multi{report.NewLogSink(log)}
		if cfg.ReportDatabaseURL != "" {
			pool, openErr := report.Open(ctx, cfg.ReportDatabaseURL)
			if openErr != nil {
				log.Warn("run history disabled", zap.Error(openErr))
			} else {
				defer pool.Close()
				sinks = append(sinks, report.NewPostgresSink(pool))
			}
		}
		// the summary is written even when the run was cancelled
		if writeErr := sinks.Write(context.WithoutCancel(ctx), result); writeErr != nil {
			log.Warn("failed to record run", zap.Error(writeErr))
		}
		return err
	},
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.LogFormat == "" {
		return logger.NewForEnvironment(cfg.Env, cfg.LogLevel)
	}
	lc := logger.DefaultConfig()
	if cfg.Env == "production" {
		lc = logger.ProductionConfig()
	}
	if cfg.LogLevel != "" {
		lc.Level = cfg.LogLevel
	}
	lc.Format = cfg.LogFormat
	return logger.New(lc)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags
	flags := rootCmd.PersistentFlags()
	flags.String("source.type", "", "Source to import from: trello, asana, todoist or monday")
	flags.String("source.token", "", "Source API token")
	flags.String("source.app_key", "", "Source application key")
	flags.String("source.api_url", "", "Source API base URL override")
	flags.String("team_id", "", "Destination team ID")
	flags.String("destination.token", "", "Destination access token")
	flags.String("destination.host", "", "Destination API host override")
	flags.String("report.database_url", "", "Postgres URL for the run history (optional)")
	flags.String("log.level", "", "Log level: debug, info, warn or error")
	flags.String("log.format", "", "Log format: console or json")

	// Bind flags to viper
	for _, key := range []string{
		"source.type", "source.token", "source.app_key", "source.api_url",
		"team_id", "destination.token", "destination.host",
		"report.database_url", "log.level", "log.format",
	} {
		viper.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(runCmd)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./services/importer")
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
