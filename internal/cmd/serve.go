package cmd

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/zebranoise/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve single preview frames over HTTP for parameter tuning",
	Long: `Serve renders individual frames on request at /frames/{n}.png.

Query parameters (xsize, ysize, duration, fps, levels, xyscale, tscale,
xscale, yscale, seed, filter, demean) override the flag defaults, so a
browser can sweep parameters without generating a whole video.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addStimulusFlags(serveCmd, "serve")
	serveCmd.Flags().StringArray("filter", []string{"comb:0.08"}, "Default filters when a request names none")
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("max-concurrent-renders", runtime.NumCPU(), "Max concurrent frame renders (default: number of CPUs)")
	serveCmd.Flags().Int("max-pixels", 1920*1080, "Largest frame a request may ask for, in pixels")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for served frames")

	bindFlags(serveCmd, []flagBinding{
		{"serve.filter", "filter"},
		{"serve.addr", "addr"},
		{"serve.max_concurrent_renders", "max-concurrent-renders"},
		{"serve.max_pixels", "max-pixels"},
		{"serve.cache_control", "cache-control"},
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	maxConc := viper.GetInt("serve.max_concurrent_renders")

	preview, err := server.NewPreview(server.PreviewConfig{
		Defaults:             stimulusParams("serve"),
		Filters:              viper.GetStringSlice("serve.filter"),
		CacheControl:         viper.GetString("serve.cache_control"),
		MaxConcurrentRenders: maxConc,
		MaxPixels:            viper.GetInt("serve.max_pixels"),
	}, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/status", withCORS(preview.StatusHandler()))
	mux.Handle("/frames/", withCORS(preview.Handler()))

	logger.Info("preview server listening",
		"addr", addr,
		"max_concurrent_renders", maxConc,
	)

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
