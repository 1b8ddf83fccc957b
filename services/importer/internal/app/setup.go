package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stoik/taskbridge/services/importer/internal/config"
	"github.com/stoik/taskbridge/services/importer/internal/provider"
	"github.com/stoik/taskbridge/services/importer/internal/report"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the run history table",
	Long:  "Creates the import_runs table in the database named by report.database_url",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg := config.Load(viper.GetViper())

		pool, err := report.Open(ctx, cfg.ReportDatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Running migrations...")
		if err := report.NewPostgresSink(pool).Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Database setup complete")
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the supported sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tURL\tINPUT FIELDS")
		for _, s := range provider.Sources() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Code, s.Name, s.URL, strings.Join(s.InputFields, ","))
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs of the configured team",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg := config.Load(viper.GetViper())
		if cfg.TeamID == "" {
			return fmt.Errorf("team_id not configured")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		pool, err := report.Open(ctx, cfg.ReportDatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		runs, err := report.NewPostgresSink(pool).Recent(ctx, cfg.TeamID, limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSOURCE\tDURATION\tCREATED\tFAILURES\tERROR")
		for _, r := range runs {
			created := 0
			for _, n := range r.Created {
				created += n
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				created, r.Failures, r.Error)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Number of runs to show")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(historyCmd)
}
