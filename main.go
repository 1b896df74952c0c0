package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pelageech/corserve/config"
	"github.com/pelageech/corserve/fileserver"
	"github.com/pelageech/corserve/headers"
	"github.com/pelageech/corserve/metrics"
	"github.com/pelageech/corserve/server"
	"github.com/pelageech/corserve/timer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "corserve",
		Short:         "corserve serves its own directory over HTTP with CORS and no-cache headers",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr()))
		},
	}
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "corserve",
	})
}

// newHandler builds the request pipeline: the file handler produces status,
// body and content headers, the injector adds the fixed headers on top.
func newHandler(cfg *config.Config, m *metrics.Metrics, logger *log.Logger) http.Handler {
	files := fileserver.New(cfg.Root, logger)
	return timer.MakeRequestTimeTracker(
		m.Instrument(headers.Inject(files, cfg.HeaderMap())),
		timer.SaveToLog(logger),
	)
}

// run blocks until ctx is done. Errors returned before the banner is
// printed mean nothing was served.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m := metrics.New()
	files := server.New("files", cfg.Addr(), newHandler(cfg, m, logger), logger).
		WithListener(func(ln net.Listener) net.Listener {
			return headers.Listener(ln, cfg.HeaderMap())
		})
	if err := files.Listen(); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	admin := server.New("metrics", cfg.MetricsAddr, mux, logger)
	if err := admin.Listen(); err != nil {
		if cerr := files.Close(); cerr != nil {
			logger.Warn("Failed to release listener", "err", cerr)
		}
		return err
	}

	color.New(color.FgGreen).Fprintf(stdout, "Serving at %s\n", cfg.URL())
	fmt.Fprintln(stdout, "Press Ctrl+C to stop the server")
	logger.Info("Started", "root", cfg.Root, "addr", cfg.Addr(), "metrics", cfg.MetricsAddr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return files.Serve(ctx)
	})
	g.Go(func() error {
		return admin.Serve(ctx)
	})
	g.Go(func() error {
		return m.Observe(ctx, metrics.ObserveFrequency)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nServer stopped.")
	return nil
}
