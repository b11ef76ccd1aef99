package main

import (
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yieldindex/lendnorm/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve normalized pools over HTTP",
	Long: `Starts the HTTP API. Every request to /api/pools runs a fresh pass.
Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default WEB_PORT)")
}

func serve(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	port := rt.cfg.WebPort
	if servePort > 0 {
		port = servePort
	}

	server := web.NewWebServer(strconv.Itoa(port), rt.aggregator, rt.registry)
	log.Info().Int("port", port).Str("url", "http://localhost:"+strconv.Itoa(port)).Msg("Starting lendnorm API")
	return server.Start(cmd.Context())
}
