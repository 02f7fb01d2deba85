package strategy

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"

	"holo-reversal-lab/internal/domain"
)

// Configuration errors
var (
	ErrInvalidFixedSize    = errors.New("fixed size must be positive")
	ErrInvalidPriceTick    = errors.New("price tick must be positive")
	ErrInvalidDayStartHour = errors.New("day start hour must be within 0..23")
	ErrInvalidBreakeven    = errors.New("breakeven points must be non-negative")
	ErrInvalidTrailingStep = errors.New("trailing step must be non-negative")
	ErrInvalidTimezone     = errors.New("unknown timezone")
)

// ValidateConfig checks strategy parameters before the strategy starts.
// A negative SignalWindow is accepted and behaves like 1.
func ValidateConfig(cfg domain.StrategyConfig) error {
	_, err := validate(cfg)
	return err
}

// validate checks cfg and returns the location trading days are computed in.
func validate(cfg domain.StrategyConfig) (*time.Location, error) {
	if cfg.FixedSize <= 0 {
		return nil, ErrInvalidFixedSize
	}
	if cfg.PriceTick <= 0 {
		return nil, ErrInvalidPriceTick
	}
	if cfg.DayStartHour < 0 || cfg.DayStartHour > 23 {
		return nil, ErrInvalidDayStartHour
	}
	if cfg.BE1Points < 0 || cfg.BE5Points < 0 {
		return nil, ErrInvalidBreakeven
	}
	if cfg.TrailingStep < 0 {
		return nil, ErrInvalidTrailingStep
	}
	return loadLocation(cfg.Timezone)
}

// FromConfig creates a HoloReversal strategy for symbol from domain.StrategyConfig.
// A nil logger discards all strategy logs.
func FromConfig(symbol string, cfg domain.StrategyConfig, gateway OrderGateway, logger logrus.FieldLogger) (*HoloReversal, error) {
	loc, err := validate(cfg)
	if err != nil {
		return nil, err
	}
	if gateway == nil {
		return nil, errors.New("order gateway is required")
	}

	return newHoloReversal(symbol, cfg, loc, gateway, logger), nil
}

// StrategyID returns the identifier used for a parameter set.
func StrategyID(cfg domain.StrategyConfig) string {
	trail := "notrail"
	if cfg.EnableTrailing {
		trail = fmt.Sprintf("trail%d", cfg.TrailingStep)
	}
	return fmt.Sprintf("HOLO_REVERSAL_w%d_d%d_be%d_%d_%s",
		cfg.SignalWindow,
		cfg.DayStartHour,
		cfg.BE1Points,
		cfg.BE5Points,
		trail)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
	}
	return loc, nil
}
