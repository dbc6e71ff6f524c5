package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
	"github.com/MeKo-Tech/zebranoise/internal/worker"
)

var renderCmd = &cobra.Command{
	Use:   "render OUTPUT",
	Short: "Render a prepared stimulus into a video",
	Long: `Render a stimulus from the cache (preparing it first if needed), normalised
by its global range, through the filter pipeline and into an .mp4 video.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addStimulusFlags(renderCmd, "render")
	addOutputFlags(renderCmd, "render")
	renderCmd.Flags().String("demean", string(stimulus.DemeanBoth), "Axes fixed to zero mean: both, time, space or none")
	bindFlags(renderCmd, []flagBinding{{"render.demean", "demean"}})
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	out, err := outputSettings("render")
	if err != nil {
		return err
	}
	output := stimulus.Output(args[0])
	if !out.noEncode && exists(output) {
		return fmt.Errorf("output video %s already exists", output)
	}

	opts, prepared := out.options(0)
	s, store, plan, err := openStimulus("render", opts)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	err = s.Prepare(ctx)
	prepared.Done()
	if err != nil {
		return fmt.Errorf("prepare failed: %w", err)
	}

	progress := worker.NewProgress(plan.NumChunks(), out.progress)
	s.Report(progress.Callback(), progress.AddFrames)

	sink, cleanup, err := out.openSink()
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("Rendering stimulus",
		"key", s.Key(),
		"frames", s.Stats().Frames,
		"filters", fmt.Sprint(out.filters),
		"loop", out.loop,
		"demean", viper.GetString("render.demean"),
	)
	frames, err := s.Render(ctx, out.filters, sink)
	progress.Done()
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	logger.Info(progress.Summary())

	return out.finish(ctx, sink, frames, plan.Params().FPS, output)
}
