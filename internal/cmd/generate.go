package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
)

var generateCmd = &cobra.Command{
	Use:   "generate OUTPUT",
	Short: "Stream zebra noise straight into a video",
	Long: `Generate zebra noise chunk by chunk and encode it into an .mp4 video.

Each chunk is mapped from [-1, 1] to [0, 1] on its own, so no global pass or
cache is needed. Use prepare and render for globally normalised stimuli.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addStimulusFlags(generateCmd, "generate")
	addOutputFlags(generateCmd, "generate")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	params := stimulusParams("generate")
	out, err := outputSettings("generate")
	if err != nil {
		return err
	}
	output := stimulus.Output(args[0])
	if !out.noEncode && exists(output) {
		return fmt.Errorf("output video %s already exists", output)
	}

	plan, err := grid.NewPlan(params)
	if err != nil {
		return fmt.Errorf("invalid stimulus: %w", err)
	}

	logger.Info("Starting zebra noise generation",
		"size", fmt.Sprintf("%dx%d", params.XSize, params.YSize),
		"frames", plan.NumFrames(),
		"fps", params.FPS,
		"levels", params.Levels,
		"seed", params.Seed,
		"filters", fmt.Sprint(out.filters),
	)

	sink, cleanup, err := out.openSink()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	opts, progress := out.options(plan.NumChunks())
	frames, err := stimulus.Stream(ctx, plan, out.filters, sink, opts)
	progress.Done()
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	logger.Info(progress.Summary())

	return out.finish(ctx, sink, frames, params.FPS, output)
}
