package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/zebranoise/internal/cache"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
	"github.com/MeKo-Tech/zebranoise/internal/worker"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Generate and cache a globally normalised stimulus",
	Long: `Generate every chunk of a stimulus once, demean it and store it with its
global range in the SQLite cache. Running prepare again with the same
parameters reuses the cache. Render the result with the render command.`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	addStimulusFlags(prepareCmd, "prepare")
	prepareCmd.Flags().String("demean", string(stimulus.DemeanBoth), "Axes fixed to zero mean: both, time, space or none")
	prepareCmd.Flags().IntP("workers", "w", 1, "Chunks processed in parallel (0 = number of CPUs)")
	prepareCmd.Flags().Bool("progress", true, "Show progress bar")
	bindFlags(prepareCmd, []flagBinding{
		{"prepare.demean", "demean"},
		{"prepare.workers", "workers"},
		{"prepare.progress", "progress"},
	})
}

// openStimulus plans a stimulus from section's flags and binds it to the cache.
func openStimulus(section string, opts stimulus.Options) (*stimulus.Stimulus, *cache.Store, *grid.Plan, error) {
	plan, err := grid.NewPlan(stimulusParams(section))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid stimulus: %w", err)
	}
	demean, err := stimulus.ParseDemean(viper.GetString(section + ".demean"))
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := cache.Open(viper.GetString("cache"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	s, err := stimulus.New(plan, store, demean, opts)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return s, store, plan, nil
}

func runPrepare(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	workers := viper.GetInt("prepare.workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Chunk count is only known once the plan exists; the bar total is set
	// by the first progress callback.
	progress := worker.NewProgress(0, viper.GetBool("prepare.progress"))
	s, store, _, err := openStimulus("prepare", stimulus.Options{
		Logger:     logger,
		Workers:    workers,
		OnProgress: progress.Callback(),
		OnFrames:   progress.AddFrames,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	err = s.Prepare(ctx)
	progress.Done()
	if err != nil {
		return fmt.Errorf("prepare failed: %w", err)
	}

	st := s.Stats()
	logger.Info("Stimulus cached",
		"key", s.Key(),
		"cache", store.Path(),
		"frames", st.Frames,
		"chunks", st.Chunks,
		"min", st.Min,
		"max", st.Max,
	)
	return nil
}
