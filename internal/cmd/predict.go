package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvaria04/Traffic-light-Management/internal/advisory"
	"github.com/vvaria04/Traffic-light-Management/internal/history"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

var (
	predictAt string
	predictDB string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict demand for a time of day from recorded history",
	Long: `Predict the per-direction vehicle count for the hour and weekday of --at,
weighting recent samples more. The prediction and the matching advisory split
are informational and never drive the signal.`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictAt, "at", "", "Instant to predict for, RFC 3339 or \"2006-01-02 15:04\" (default: now)")
	predictCmd.Flags().StringVar(&predictDB, "db", "", "DuckDB history database (overrides config)")
}

func parseInstant(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

func runPredict(cmd *cobra.Command, args []string) error {
	at, err := parseInstant(predictAt)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.History.Database
	if cmd.Flags().Changed("db") {
		path = predictDB
	}

	store, database, err := openStore(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer database.Close()

	predictor := history.NewPredictor(store, cfg.Predictor())
	pred, err := predictor.PredictAt(cmd.Context(), at)
	if err != nil {
		return fmt.Errorf("failed to predict demand: %w", err)
	}

	fmt.Printf("Prediction for %s (hour %d, day %d)\n", at.Format("Mon 2006-01-02 15:04"), pred.Hour, pred.DayOfWeek)
	if !pred.Found {
		fmt.Println("No history for this hour")
		return nil
	}
	if pred.Fallback {
		fmt.Printf("No samples on this weekday, using %d samples from other days\n", pred.Samples)
	} else {
		fmt.Printf("Based on %d samples\n", pred.Samples)
	}
	for _, d := range phase.Directions {
		fmt.Printf("  - %-5s %d\n", d, pred.Demand.Of(d))
	}

	split := advisory.SplitFor(pred.Demand, cfg.Server.Cycle.Std(), advisory.EvenSplit(cfg.Server.Cycle.Std()))
	fmt.Printf("Advisory split: north-south %s, east-west %s\n", split.NorthSouth, split.EastWest)
	return nil
}
