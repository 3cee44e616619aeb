package checkout

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/settings"
)

// IntentSweeper periodically expires checkout intents that were never paid.
type IntentSweeper struct {
	service *Service
	now     func() time.Time
}

// NewIntentSweeper builds a sweeper over service.
func NewIntentSweeper(service *Service) *IntentSweeper {
	if service == nil {
		return nil
	}
	return &IntentSweeper{service: service, now: func() time.Time { return time.Now().UTC() }}
}

// Start launches the sweep loop in a background goroutine.
func (w *IntentSweeper) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go w.run(ctx)
	log.Infof("checkout intent sweeper started (interval=%s)", w.interval())
}

func (w *IntentSweeper) interval() time.Duration {
	return settings.Seconds(settings.IntentSweepIntervalSecondsKey, settings.DefaultIntentSweepIntervalSeconds)
}

func (w *IntentSweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		w.SweepOnce(ctx)
		timer := time.NewTimer(w.interval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// SweepOnce expires pending intents older than the configured TTL and returns how many changed.
func (w *IntentSweeper) SweepOnce(ctx context.Context) int64 {
	if w == nil || w.service == nil {
		return 0
	}
	ttl := settings.Minutes(settings.CheckoutIntentTTLMinutesKey, settings.DefaultCheckoutIntentTTLMinutes)
	cutoff := w.now().Add(-ttl)
	n, err := w.service.ExpireStale(ctx, cutoff)
	if err != nil {
		log.WithError(err).Warn("checkout intent sweeper: expire failed")
		return 0
	}
	if n > 0 {
		log.Infof("checkout intent sweeper: expired %d intents (cutoff=%s)", n, cutoff.Format(time.RFC3339))
	}
	return n
}
