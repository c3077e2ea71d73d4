package worker

import (
	"context"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/DanielPopoola/car-rental-engine/internal/metrics"
	"github.com/rs/zerolog"
)

// TTLSweeper periodically removes temporary bookings whose payment window
// elapsed, together with the guest accounts created for them.
type TTLSweeper struct {
	sweeper  ports.Sweeper
	interval time.Duration
	logger   zerolog.Logger
}

func NewTTLSweeper(sweeper ports.Sweeper, interval time.Duration, logger zerolog.Logger) *TTLSweeper {
	return &TTLSweeper{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With().Str("component", "ttl_sweeper").Logger(),
	}
}

func (w *TTLSweeper) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("ttl sweeper started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error().Err(err).Msg("ttl sweep failed")
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("ttl sweeper stopping")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error().Err(err).Msg("ttl sweep failed")
			}
		}
	}
}

// RunOnce performs a single sweep.
func (w *TTLSweeper) RunOnce(ctx context.Context) (*ports.SweepResult, error) {
	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		return nil, err
	}

	metrics.AddSwept("booking", result.Bookings)
	metrics.AddSwept("additional_driver", result.AdditionalDrivers)
	metrics.AddSwept("user", result.Users)

	if result.Bookings > 0 || result.Users > 0 {
		w.logger.Info().
			Int64("bookings", result.Bookings).
			Int64("additional_drivers", result.AdditionalDrivers).
			Int64("users", result.Users).
			Msg("expired temporary bookings swept")
	}

	return result, nil
}
