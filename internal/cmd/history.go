package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvaria04/Traffic-light-Management/internal/db"
	"github.com/vvaria04/Traffic-light-Management/internal/history"
)

var historyDB string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded demand history",
}

var historyImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Import a demand history CSV",
	Long: `Import a CSV with columns timestamp,hour,day_of_week,north_density,
south_density,east_density,west_density. Rows with an hour outside 0-23 or a
day outside 0-6 are skipped and negative densities are stored as zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryImport,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <csv>",
	Short: "Export recorded demand to CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded demand",
	RunE:  runHistoryStats,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyImportCmd, historyExportCmd, historyStatsCmd)

	historyCmd.PersistentFlags().StringVar(&historyDB, "db", "", "DuckDB history database (overrides config)")
}

// openStore opens the shared history database at path and makes sure its
// table exists. The caller closes the returned handle.
func openStore(ctx context.Context, path string) (*history.Store, *sql.DB, error) {
	db.SetPath(path)
	database, err := db.GetDB()
	if err != nil {
		return nil, nil, err
	}
	store := history.NewStore(database)
	if err := store.Init(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, database, nil
}

func historyStore(cmd *cobra.Command) (*history.Store, *sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	path := cfg.History.Database
	if cmd.Flags().Changed("db") {
		path = historyDB
	}
	return openStore(cmd.Context(), path)
}

func runHistoryImport(cmd *cobra.Command, args []string) error {
	store, database, err := historyStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := store.ImportCSV(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d samples from %s\n", n, args[0])
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, database, err := historyStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.ExportCSV(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Exported history to %s\n", args[0])
	return nil
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	store, database, err := historyStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get history stats: %w", err)
	}
	if stats.Count == 0 {
		fmt.Println("No demand history recorded")
		return nil
	}

	fmt.Printf("Found %d samples from %s to %s\n", stats.Count,
		stats.First.Format("2006-01-02 15:04"), stats.Last.Format("2006-01-02 15:04"))
	fmt.Printf("  - %d distinct days\n", stats.Days)
	fmt.Printf("  - %d distinct hours of day\n", stats.Hours)

	profile, err := store.HourlyProfile(cmd.Context(), -1)
	if err != nil {
		return fmt.Errorf("failed to get hourly profile: %w", err)
	}
	fmt.Println("Mean demand by hour (north/south/east/west):")
	for _, h := range profile {
		fmt.Printf("  %02d:00  %5.1f %5.1f %5.1f %5.1f  (%d samples)\n",
			h.Hour, h.Mean[0], h.Mean[1], h.Mean[2], h.Mean[3], h.Samples)
	}
	return nil
}
