package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "zebranoise",
	Short: "A tileable Perlin noise video stimulus generator",
	Long: `Zebranoise synthesises seamlessly tiling fractal Perlin noise videos for
visual neuroscience experiments.

Noise is generated chunk by chunk, mapped to [0, 1], passed through a filter
pipeline (for example "comb" for zebra stripes) and written as frames that
ffmpeg encodes into a video.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("ffmpeg", "ffmpeg", "ffmpeg executable used to encode videos")
	rootCmd.PersistentFlags().String("cache", "zebranoise-cache.db", "SQLite cache file for prepared stimuli")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	for _, key := range []string{"ffmpeg", "cache", "verbose"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ZEBRANOISE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
