package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ReconnectConfig configures automatic reconnection behavior
type ReconnectConfig struct {
	MaxAttempts  int           // Maximum reconnection attempts (0 = unlimited)
	InitialDelay time.Duration // Initial delay between reconnection attempts
	MaxDelay     time.Duration // Maximum delay between attempts
	Multiplier   float64       // Exponential backoff multiplier
}

// DefaultReconnectConfig returns sensible reconnection defaults
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Reconnector manages automatic reconnection for a long-lived connection,
// such as the live recognition socket.
type Reconnector struct {
	name   string
	config ReconnectConfig
	logger zerolog.Logger

	mu        sync.Mutex
	attempts  int
	connected bool
}

// NewReconnector creates a reconnector for the named connection
func NewReconnector(name string, config ReconnectConfig, logger zerolog.Logger) *Reconnector {
	return &Reconnector{
		name:   name,
		config: config,
		logger: logger.With().Str("connection", name).Logger(),
	}
}

// Connect attempts to establish the connection with exponential backoff.
// The connect function is called until it succeeds, the configured attempt
// limit is reached, or the context is cancelled.
func (r *Reconnector) Connect(ctx context.Context, connect func() error) error {
	delay := r.config.InitialDelay

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("reconnect cancelled: %w", ctx.Err())
		}

		err := connect()
		if err == nil {
			r.mu.Lock()
			r.connected = true
			r.attempts = 0
			r.mu.Unlock()
			if attempt > 1 {
				r.logger.Info().Int("attempt", attempt).Msg("Reconnected")
			}
			return nil
		}

		r.mu.Lock()
		r.attempts = attempt
		r.connected = false
		r.mu.Unlock()

		if r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts {
			return fmt.Errorf("reconnect failed after %d attempts: %w", attempt, err)
		}

		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("next_delay", delay).
			Msg("Connection attempt failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("reconnect cancelled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
}

// MarkDisconnected records that the connection has dropped
func (r *Reconnector) MarkDisconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = false
}

// IsConnected reports whether the connection is currently established
func (r *Reconnector) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}
