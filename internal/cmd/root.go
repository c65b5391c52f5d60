package cmd

import (
	goflag "flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/vvaria04/Traffic-light-Management/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "trafficctl",
	Short: "Adaptive four-way traffic light controller",
	Long: `trafficctl drives a four-way intersection signal from per-direction vehicle
counts. It replays demand traces, pre-segmented camera masks or a synthetic
stream, records observed demand to DuckDB and predicts typical demand by
time of day.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = false

	klogFlags := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
}

// loadConfig loads the file and environment layers. Commands apply their
// own flag overrides and validate again.
func loadConfig() (*config.Config, error) {
	return config.LoadConfig(configPath)
}
