package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"holo-reversal-lab/internal/execution"
	"holo-reversal-lab/internal/feed"
	"holo-reversal-lab/internal/live"
	"holo-reversal-lab/internal/replay"
)

func liveCmd() *cobra.Command {
	var (
		data     dataFlags
		runID    string
		feedURL  string
		httpAddr string
		pace     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the strategy on a live feed with paper execution",
		Long: "Streams bars and ticks from a websocket feed (or replays files with --bars,\n" +
			"--ticks or --synthetic) through the strategy on a paper gateway. The latest\n" +
			"snapshot is restored on start. /health, /metrics and /state are served on\n" +
			"the HTTP address.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := requireSymbol(cfg); err != nil {
				return err
			}
			if feedURL != "" {
				cfg.Live.FeedURL = feedURL
			}
			if httpAddr != "" {
				cfg.Live.HTTPAddr = httpAddr
			}
			if cfg.Live.FeedURL == "" && !data.set() {
				return errors.New("--feed-url (or live.feed_url) or a file source is required")
			}

			scenario, err := cfg.Scenario()
			if err != nil {
				return err
			}
			mode, err := execution.ParseFillMode(cfg.Live.FillMode)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			runner, err := live.NewRunner(ctx, live.RunnerOptions{
				RunID:         runID,
				Symbol:        cfg.Symbol,
				Strategy:      cfg.Strategy,
				Scenario:      scenario,
				FillMode:      mode,
				BarsFromTicks: cfg.Live.BarsFromTicks,
				SnapshotEvery: cfg.Live.SnapshotEvery,
				BarStore:      st.bars,
				TickStore:     st.ticks,
				TradeStore:    st.trades,
				SnapshotStore: st.snapshots,
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			events, closeFeed, err := openFeed(ctx, cfg.Live.FeedURL, cfg.Live.ReconnectDelay, &data, cfg.Symbol, pace, logger)
			if err != nil {
				return err
			}
			defer closeFeed()

			srvCtx, stopServer := context.WithCancel(ctx)
			defer stopServer()
			var servers errgroup.Group
			if cfg.Live.HTTPAddr != "" {
				srv := live.NewServer(cfg.Live.HTTPAddr, runner, logger)
				servers.Go(func() error { return srv.Run(srvCtx) })
			}

			runErr := runner.Run(ctx, events)
			stopServer()
			if err := servers.Wait(); err != nil {
				logger.WithError(err).Error("http server failed")
			}

			status := runner.Status()
			if outputJSON {
				if err := printJSON(status); err != nil {
					return err
				}
			} else {
				printStatus(status)
			}

			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			return nil
		},
	}

	data.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "Session ID used for trade records (generated when empty)")
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "Market data websocket URL (overrides live.feed_url)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address for /health, /metrics and /state")
	cmd.Flags().DurationVar(&pace, "pace", 0, "Delay between replayed file events")

	return cmd
}

// openFeed connects to the websocket feed, or streams file events when
// a file source is set.
func openFeed(
	ctx context.Context,
	url string,
	reconnectDelay time.Duration,
	data *dataFlags,
	sym string,
	pace time.Duration,
	logger logrus.FieldLogger,
) (<-chan *replay.Event, func(), error) {
	if data.set() {
		events, err := data.events(sym, 0, 0)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("events", len(events)).Info("replaying file events")
		return feed.Stream(ctx, events, pace), func() {}, nil
	}

	wsCfg := feed.DefaultWSConfig()
	if reconnectDelay > 0 {
		wsCfg.ReconnectDelay = reconnectDelay
	}
	client, err := feed.NewWSClient(ctx, url, &wsCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect feed: %w", err)
	}
	if err := client.Subscribe(sym); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", sym, err)
	}
	logger.WithFields(logrus.Fields{"url": url, "symbol": sym}).Info("feed connected")

	return client.Events(), func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("close feed")
		}
	}, nil
}

// printStatus outputs the final runner state.
func printStatus(s live.Status) {
	fmt.Println()
	fmt.Println("=== Live Session ===")
	fmt.Printf("Run ID:             %s\n", s.RunID)
	fmt.Printf("Symbol:             %s\n", s.Symbol)
	fmt.Printf("Strategy:           %s\n", s.StrategyID)
	if s.RestoredFrom > 0 {
		fmt.Printf("Restored From:      %s\n", time.UnixMilli(s.RestoredFrom).UTC().Format(time.RFC3339))
	}
	fmt.Printf("Events:             %d (%d stale)\n", s.Events, s.StaleEvents)
	fmt.Printf("Orders:             %d\n", s.Orders)
	fmt.Printf("Trades:             %d\n", s.Trades)
	fmt.Printf("Position:           %g\n", s.Position)
	fmt.Printf("Realized Net PnL:   %.4f\n", s.RealizedNet)
	if s.LastError != "" {
		fmt.Printf("Last Error:         %s\n", s.LastError)
	}
}
