package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
)

var padCmd = &cobra.Command{
	Use:   "pad OUTPUT",
	Short: "Write a mid-grey padding video",
	Long:  `Write a uniform grey (127) video matching a stimulus' frame size and rate, used to pad recordings between stimuli.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPad,
}

func init() {
	rootCmd.AddCommand(padCmd)
	padCmd.Flags().Int("xsize", 640, "Frame width in pixels")
	padCmd.Flags().Int("ysize", 480, "Frame height in pixels")
	padCmd.Flags().Float64("duration", 10, "Duration in seconds")
	padCmd.Flags().Int("fps", 30, "Frames per second")
	padCmd.Flags().Int("bitrate", 20, "Video bitrate in Mbit/s")
	bindFlags(padCmd, []flagBinding{
		{"pad.xsize", "xsize"},
		{"pad.ysize", "ysize"},
		{"pad.duration", "duration"},
		{"pad.fps", "fps"},
		{"pad.bitrate", "bitrate"},
	})
}

func runPad(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	xsize := viper.GetInt("pad.xsize")
	ysize := viper.GetInt("pad.ysize")
	fps := viper.GetInt("pad.fps")
	n := int(viper.GetFloat64("pad.duration") * float64(fps))
	if fps <= 0 || n <= 0 {
		return fmt.Errorf("padding needs positive fps and at least one frame, got %d fps, %d frames", fps, n)
	}

	dir, err := os.MkdirTemp("", "zebranoise-pad-")
	if err != nil {
		return fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(dir)

	sink, err := stimulus.NewDirSink(dir, stimulus.FormatTIFF)
	if err != nil {
		return err
	}
	if err := stimulus.GreyPad(sink, xsize, ysize, n); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	return encode(ctx, sink, fps, viper.GetInt("pad.bitrate"), args[0])
}
