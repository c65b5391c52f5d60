package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvaria04/Traffic-light-Management/internal/history"
	"github.com/vvaria04/Traffic-light-Management/internal/output"
)

var (
	reportDay    string
	reportOutput string
	reportDB     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a markdown timing plan from recorded history",
	Long: `Write a markdown timing plan with the predicted demand and advisory
north-south / east-west split for every hour of one weekday.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportDay, "day", "d", "", "Weekday to plan, e.g. monday (default: today)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", ".", "Directory for the report")
	reportCmd.Flags().StringVar(&reportDB, "db", "", "DuckDB history database (overrides config)")
}

// parseWeekday returns the day of week with Monday = 0.
func parseWeekday(raw string) (int, error) {
	if raw == "" {
		return history.DayOfWeek(time.Now()), nil
	}
	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
	name := strings.ToLower(strings.TrimSpace(raw))
	for i, d := range days {
		if name == d || (len(name) >= 3 && strings.HasPrefix(d, name)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", raw)
}

func runReport(cmd *cobra.Command, args []string) error {
	day, err := parseWeekday(reportDay)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.History.Database
	if cmd.Flags().Changed("db") {
		path = reportDB
	}

	store, database, err := openStore(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get history stats: %w", err)
	}

	predictor := history.NewPredictor(store, cfg.Predictor())
	predictions, err := predictor.PredictDay(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("failed to predict demand: %w", err)
	}

	plan := output.BuildPlan(day, predictions, cfg.Server.Cycle.Std(), stats)
	filename, err := output.NewGenerator(reportOutput).Generate(plan)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	fmt.Printf("Wrote timing plan from %d samples to %s\n", stats.Count, filename)
	return nil
}
