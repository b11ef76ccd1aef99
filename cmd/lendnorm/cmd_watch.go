package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yieldindex/lendnorm/internal/web"
)

const DEFAULT_WATCH_INTERVAL = 10 * time.Minute

var (
	watchInterval time.Duration
	watchServe    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run passes on an interval",
	Long: `Runs a pass immediately and then on every interval until interrupted. Results
are only logged and reflected in metrics. With --serve the HTTP API runs alongside
so the metrics can be scraped.`,
	Args: cobra.NoArgs,
	RunE: watch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", DEFAULT_WATCH_INTERVAL, "time between passes")
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "also serve the HTTP API on WEB_PORT")
}

func watch(cmd *cobra.Command, args []string) error {
	if watchInterval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", watchInterval)
	}

	rt, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	if watchServe {
		server := web.NewWebServer(strconv.Itoa(rt.cfg.WebPort), rt.aggregator, rt.registry)
		go func() {
			if err := server.Start(cmd.Context()); err != nil {
				log.Error().Err(err).Msg("Web server stopped")
			}
		}()
	}

	rt.aggregator.RunLoop(cmd.Context(), watchInterval)
	return nil
}
