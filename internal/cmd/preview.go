package cmd

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render single frames as PNG images",
	Long:  `Generate only the requested frames of a stimulus and save them as PNG files, to check parameters and filters quickly.`,
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	addStimulusFlags(previewCmd, "preview")
	previewCmd.Flags().String("frames", "0", "Comma-separated frame indices to render")
	previewCmd.Flags().StringArray("filter", []string{"comb:0.08"}, "Filters applied in order, as name or name:arg,arg (repeatable)")
	previewCmd.Flags().Bool("demean", false, "Remove each frame's spatial mean before filtering")
	previewCmd.Flags().String("output-dir", ".", "Directory for the PNG files")
	bindFlags(previewCmd, []flagBinding{
		{"preview.frames", "frames"},
		{"preview.filter", "filter"},
		{"preview.demean", "demean"},
		{"preview.output_dir", "output-dir"},
	})
}

func runPreview(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	frames, err := parseFrames(viper.GetString("preview.frames"))
	if err != nil {
		return err
	}
	filters, err := filter.ParseList(viper.GetStringSlice("preview.filter"))
	if err != nil {
		return err
	}
	plan, err := grid.NewPlan(stimulusParams("preview"))
	if err != nil {
		return fmt.Errorf("invalid stimulus: %w", err)
	}

	images, err := stimulus.Preview(plan, frames, filters, viper.GetBool("preview.demean"))
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	dir := viper.GetString("preview.output_dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("preview_%05d.png", frames[i]))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("Preview written", "frame", frames[i], "path", path)
	}
	return nil
}
