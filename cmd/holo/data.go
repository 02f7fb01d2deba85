package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/feed"
	"holo-reversal-lab/internal/replay"
)

// dataFlags selects market data from files instead of the stores.
type dataFlags struct {
	barsPath  string
	ticksPath string
	synthetic bool
	days      int
	start     string
}

func (d *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.barsPath, "bars", "", "Bars CSV file (timestamp,open,high,low,close[,volume])")
	cmd.Flags().StringVar(&d.ticksPath, "ticks", "", "Ticks CSV file (timestamp,last[,bid,ask])")
	cmd.Flags().BoolVar(&d.synthetic, "synthetic", false, "Use a generated one-minute bar series")
	cmd.Flags().IntVar(&d.days, "days", 2, "Days of synthetic bars")
	cmd.Flags().StringVar(&d.start, "start", "", "Synthetic series start (RFC3339, default 2025-01-01T00:00:00Z)")
}

// set reports whether file or synthetic data was requested.
func (d *dataFlags) set() bool {
	return d.barsPath != "" || d.ticksPath != "" || d.synthetic
}

// load reads bars and ticks for sym.
func (d *dataFlags) load(sym string) ([]*domain.PriceBar, []*domain.PriceTick, error) {
	var (
		bars  []*domain.PriceBar
		ticks []*domain.PriceTick
	)

	if d.synthetic {
		cfg := feed.DefaultSyntheticConfig()
		cfg.Symbol = sym
		if d.start != "" {
			start, err := time.Parse(time.RFC3339, d.start)
			if err != nil {
				return nil, nil, fmt.Errorf("--start: %w", err)
			}
			cfg.Start = start
		}
		if d.days > 0 {
			cfg.End = cfg.Start.Add(time.Duration(d.days) * 24 * time.Hour)
		}
		bars = feed.GenerateBars(cfg)
	}

	if d.barsPath != "" {
		f, err := os.Open(d.barsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bars: %w", err)
		}
		loaded, err := feed.LoadBarsCSV(f, sym)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("load bars %s: %w", d.barsPath, err)
		}
		bars = append(bars, loaded...)
	}

	if d.ticksPath != "" {
		f, err := os.Open(d.ticksPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open ticks: %w", err)
		}
		loaded, err := feed.LoadTicksCSV(f, sym)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("load ticks %s: %w", d.ticksPath, err)
		}
		ticks = loaded
	}

	return bars, ticks, nil
}

// events loads the data as one ordered event stream, restricted to
// [from, to] when a range is set.
func (d *dataFlags) events(sym string, from, to int64) ([]*replay.Event, error) {
	bars, ticks, err := d.load(sym)
	if err != nil {
		return nil, err
	}

	events := replay.MergeEvents(bars, ticks)
	if from == 0 && to == 0 {
		return events, nil
	}

	filtered := events[:0]
	for _, e := range events {
		if e.TimestampMs >= from && e.TimestampMs <= to {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
