package sweeper

import (
	"context"
	"time"

	"github.com/nkiryanov/vidtube/internal/logger"
)

const (
	defaultInterval = time.Hour
	defaultTimeout  = 30 * time.Second
)

type sessionCleaner interface {
	ClearExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper periodically forgets stored refresh tokens that are already expired
// Expired tokens are rejected on refresh anyway; this only keeps the store tidy
type Sweeper struct {
	interval time.Duration
	timeout  time.Duration
	cleaner  sessionCleaner
	logger   logger.Logger
	now      func() time.Time
}

func New(cleaner sessionCleaner, interval time.Duration, logger logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Sweeper{
		interval: interval,
		timeout:  defaultTimeout,
		cleaner:  cleaner,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep once
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.cleaner.ClearExpiredRefreshTokens(ctx, s.now())
}

// Run sweeps on every tick until ctx is done
// Returned channel is closed when sweeper stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting session sweeper", "interval", s.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Session sweeper stopped by context")
				return

			case <-ticker.C:
				n, err := s.Sweep(ctx)
				if err != nil {
					s.logger.Error("Failed to clear expired sessions", "error", err)
					continue
				}
				if n > 0 {
					s.logger.Info("Expired sessions cleared", "count", n)
				}
			}
		}
	}()

	return idleStopped
}
