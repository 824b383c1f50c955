package service

import (
	"log/slog"
	"time"
)

// Cleaner periodically deletes expired refresh tokens and verification
// codes. Expired rows are already unusable; the sweep only keeps the
// tables from growing without bound.
type Cleaner struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewCleaner(store Store, interval time.Duration, logger *slog.Logger) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleaner{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop on a background goroutine until Stop.
func (c *Cleaner) Start() {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (c *Cleaner) Stop() {
	close(c.stop)
	<-c.done
}

// Sweep deletes expired rows once and logs what it removed.
func (c *Cleaner) Sweep() {
	repos := c.store.Repos()
	tokens, err := repos.RefreshTokens.DeleteExpired()
	if err != nil {
		c.logger.Error("expired refresh token sweep failed", "error", err.Error())
	}
	codes, err := repos.VerificationCodes.DeleteExpired()
	if err != nil {
		c.logger.Error("expired verification code sweep failed", "error", err.Error())
	}
	if tokens > 0 || codes > 0 {
		c.logger.Info("expired rows removed", "refresh_tokens", tokens, "verification_codes", codes)
	}
}
