package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/vvaria04/Traffic-light-Management/internal/config"
	"github.com/vvaria04/Traffic-light-Management/internal/controller"
	"github.com/vvaria04/Traffic-light-Management/internal/detect"
	"github.com/vvaria04/Traffic-light-Management/internal/history"
	"github.com/vvaria04/Traffic-light-Management/internal/metrics"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
	"github.com/vvaria04/Traffic-light-Management/internal/server"
)

var (
	runSource      string
	runTrace       string
	runMasks       string
	runDB          string
	runListen      string
	runInterval    time.Duration
	runRecordEvery int
	runNoRecord    bool
	runSeed        int64
	runCycles      int
	runFramePeriod time.Duration
	runPace        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control loop",
	Long: `Run the control loop against a demand source until it is exhausted or
interrupted. Sources:

  trace      replay a CSV trace (timestamp,direction,count[,intensity])
  masks      count vehicles in a directory of PNG foreground masks
  synthetic  draw Poisson-distributed counts

Smoothed demand is recorded to the history database, and /healthz, /readyz,
/status and /metrics are served while the loop runs.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runSource, "source", "s", "synthetic", "Demand source: trace, masks or synthetic")
	runCmd.Flags().StringVar(&runTrace, "trace", "", "CSV trace to replay (source=trace)")
	runCmd.Flags().StringVar(&runMasks, "masks", "", "Directory of PNG masks (source=masks)")
	runCmd.Flags().StringVar(&runDB, "db", "", "DuckDB history database (overrides config)")
	runCmd.Flags().StringVar(&runListen, "listen", "", "Status server address, empty string disables it (overrides config)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Time between cycles (overrides config)")
	runCmd.Flags().IntVar(&runRecordEvery, "record-every", 0, "Record every n-th cycle to history (overrides config)")
	runCmd.Flags().BoolVar(&runNoRecord, "no-record", false, "Do not record demand to history")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "Random seed (source=synthetic)")
	runCmd.Flags().IntVar(&runCycles, "cycles", 0, "Stop the synthetic source after n cycles (0 = unbounded)")
	runCmd.Flags().BoolVar(&runPace, "pace", false, "Emit synthetic samples in real time, one per period; combine with --interval 0")
	runCmd.Flags().DurationVar(&runFramePeriod, "frame-period", time.Second, "Time between masks (source=masks)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.History.Database = runDB
	}
	if flags.Changed("listen") {
		cfg.Server.Listen = runListen
	}
	if flags.Changed("interval") {
		cfg.Loop.Interval = config.Duration(runInterval)
	}
	if flags.Changed("record-every") {
		cfg.Loop.RecordEvery = runRecordEvery
	}
	if runNoRecord {
		cfg.Loop.RecordEvery = 0
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, database, err := openStore(ctx, cfg.History.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	source, start, err := openSource(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer source.Close()

	ctrlCfg, err := cfg.Controller()
	if err != nil {
		return err
	}
	opts := []controller.Option{
		controller.WithObserver(phase.NewLoggingObserver()),
		controller.WithObserver(metrics.NewObserver()),
	}
	if ctrlCfg.RecordEvery > 0 {
		opts = append(opts, controller.WithRecorder(store))
	}

	ctrl, err := controller.New(ctrlCfg, source, start, opts...)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	metrics.RecordGreen(ctrl.Current())

	fmt.Printf("Run %s: source %s, initial green %s\n", ctrl.RunID(), runSource, ctrl.Current())

	serverErr := make(chan error, 1)
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	if cfg.Server.Listen != "" {
		srv := server.New(ctrl, history.NewPredictor(store, cfg.Predictor()), cfg.Loop.StaleAfter.Std(), cfg.Server.Cycle.Std())
		go func() {
			err := srv.ListenAndServe(loopCtx, cfg.Server.Listen)
			if err != nil {
				cancelLoop()
			}
			serverErr <- err
		}()
		fmt.Printf("Status server listening on %s\n", cfg.Server.Listen)
	} else {
		serverErr <- nil
	}

	runErr := ctrl.Run(loopCtx, cfg.Loop.Interval.Std())
	cancelLoop()
	if err := <-serverErr; err != nil {
		return fmt.Errorf("status server failed: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	printSummary(ctrl.Status())
	return nil
}

func openSource(ctx context.Context, cfg *config.Config, database *sql.DB) (detect.Source, time.Time, error) {
	now := time.Now()

	switch runSource {
	case "trace":
		if runTrace == "" {
			return nil, time.Time{}, fmt.Errorf("--trace is required with --source trace")
		}
		src, err := detect.NewTraceSource(ctx, database, runTrace, now)
		if err != nil {
			return nil, time.Time{}, err
		}
		stats := src.Stats()
		fmt.Printf("Loaded trace %s: %d rows in %d cycles (%d dropped, %d clamped)\n",
			runTrace, stats.Rows, stats.Cycles, stats.Dropped, stats.Clamped)
		start := now
		if !stats.FirstSeen.IsZero() {
			start = stats.FirstSeen
		}
		return src, start, nil

	case "masks":
		if runMasks == "" {
			return nil, time.Time{}, fmt.Errorf("--masks is required with --source masks")
		}
		opts := detect.MaskDirOptions{
			Detector:    cfg.MaskDetector(),
			Start:       now,
			FramePeriod: runFramePeriod,
		}
		regions, ok, err := cfg.Regions()
		if err != nil {
			return nil, time.Time{}, err
		}
		if ok {
			opts.Regions = regions
			opts.RefWidth = cfg.Detector.ReferenceWidth
			opts.RefHeight = cfg.Detector.ReferenceHeight
		}
		src, err := detect.NewMaskDirSource(runMasks, opts)
		if err != nil {
			return nil, time.Time{}, err
		}
		fmt.Printf("Found %d masks in %s\n", src.Len(), runMasks)
		return src, now, nil

	case "synthetic":
		opts := detect.DefaultSyntheticOptions()
		opts.Seed = runSeed
		opts.Start = now
		opts.Cycles = runCycles
		opts.Pace = runPace
		if interval := cfg.Loop.Interval.Std(); interval > 0 {
			opts.Period = interval
		}
		return detect.NewSyntheticSource(opts), now, nil

	default:
		return nil, time.Time{}, fmt.Errorf("unknown source %q (want trace, masks or synthetic)", runSource)
	}
}

func printSummary(st controller.Status) {
	fmt.Printf("Completed %d cycles (%d source failures, %d record errors)\n", st.Cycles, st.Failures, st.RecordErrors)
	fmt.Printf("Green: %s for %s\n", st.Green, st.Elapsed)
	if st.LastDecision != "" {
		fmt.Printf("Last decision: %s\n", st.LastDecision)
	}
	fmt.Printf("Recent greens: %v\n", st.History)
	klog.V(2).InfoS("Final demand", "raw", st.Raw, "smoothed", st.Smoothed)
}
