package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"holo-reversal-lab/internal/domain"
)

// CSV errors
var (
	ErrMissingColumn = errors.New("missing csv column")
	ErrBadRecord     = errors.New("malformed csv record")
)

// LoadBarsCSV reads bars from CSV with a header row.
// Required columns: timestamp, open, high, low, close. Optional: volume, symbol.
// When the file has no symbol column every bar gets the given symbol.
func LoadBarsCSV(r io.Reader, symbol string) ([]*domain.PriceBar, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	cols, err := indexColumns(header, "timestamp", "open", "high", "low", "close")
	if err != nil {
		return nil, err
	}

	bars := make([]*domain.PriceBar, 0, len(records))
	for i, rec := range records {
		line := i + 2
		row := csvRow{rec: rec, cols: cols, line: line}

		b := &domain.PriceBar{Symbol: row.str("symbol", symbol)}
		if b.TimestampMs, err = row.timestamp("timestamp"); err != nil {
			return nil, err
		}
		if b.Open, err = row.float("open"); err != nil {
			return nil, err
		}
		if b.High, err = row.float("high"); err != nil {
			return nil, err
		}
		if b.Low, err = row.float("low"); err != nil {
			return nil, err
		}
		if b.Close, err = row.float("close"); err != nil {
			return nil, err
		}
		if v, err := row.optFloat("volume"); err != nil {
			return nil, err
		} else if v != nil {
			b.Volume = *v
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("%w: line %d: high %v below low %v", ErrBadRecord, line, b.High, b.Low)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// LoadTicksCSV reads ticks from CSV with a header row.
// Required columns: timestamp, last. Optional: bid, ask, symbol.
// Empty bid/ask cells load as missing quotes.
func LoadTicksCSV(r io.Reader, symbol string) ([]*domain.PriceTick, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	cols, err := indexColumns(header, "timestamp", "last")
	if err != nil {
		return nil, err
	}

	ticks := make([]*domain.PriceTick, 0, len(records))
	for i, rec := range records {
		row := csvRow{rec: rec, cols: cols, line: i + 2}

		t := &domain.PriceTick{Symbol: row.str("symbol", symbol)}
		if t.TimestampMs, err = row.timestamp("timestamp"); err != nil {
			return nil, err
		}
		if t.LastPrice, err = row.float("last"); err != nil {
			return nil, err
		}
		if t.BidPrice, err = row.optFloat("bid"); err != nil {
			return nil, err
		}
		if t.AskPrice, err = row.optFloat("ask"); err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrBadRecord)
	}
	return records[0], records[1:], nil
}

func indexColumns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

type csvRow struct {
	rec  []string
	cols map[string]int
	line int
}

func (r csvRow) cell(name string) (string, bool) {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return "", false
	}
	return strings.TrimSpace(r.rec[i]), true
}

func (r csvRow) str(name, fallback string) string {
	if v, ok := r.cell(name); ok && v != "" {
		return v
	}
	return fallback
}

func (r csvRow) float(name string) (float64, error) {
	v, _ := r.cell(name)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q", ErrBadRecord, r.line, name, v)
	}
	return f, nil
}

func (r csvRow) optFloat(name string) (*float64, error) {
	v, ok := r.cell(name)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %s %q", ErrBadRecord, r.line, name, v)
	}
	return &f, nil
}

// timestamp accepts RFC3339 or integer epoch milliseconds.
func (r csvRow) timestamp(name string) (int64, error) {
	v, _ := r.cell(name)
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q", ErrBadRecord, r.line, name, v)
	}
	return t.UnixMilli(), nil
}
