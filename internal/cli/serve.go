package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes search and explanations over HTTP:

  POST /v1/search          manuscript -> ranked, verified venues
  POST /v1/explanations    abstract + venue -> explanation (X-User-ID required)
  GET  /healthz            dependency health
  GET  /metrics            Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAppFromViper(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.MustRegister(registry)

	go a.runSweeper(ctx)

	opts := append([]server.Option{server.WithGatherer(registry)}, a.checks...)
	srv := server.New(a.search, a.explain, a.cfg.Explain, a.cfg.Server, a.logger, opts...)
	return srv.ListenAndServe(ctx)
}
