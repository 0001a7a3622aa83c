package config

import (
	"fmt"
	"strings"
	"time"
)

// BookingConfig tunes the booking coordinator.
type BookingConfig struct {
	MaxAttempts    int           // BOOKING_MAX_ATTEMPTS
	RetryBackoff   time.Duration // BOOKING_RETRY_BACKOFF
	PricePolicy    string        // BOOKING_PRICE_POLICY: trust | verify
	PublishTimeout time.Duration // BOOKING_PUBLISH_TIMEOUT
}

func LoadBookingConfig() (BookingConfig, error) {
	cfg := BookingConfig{
		MaxAttempts:    envInt("BOOKING_MAX_ATTEMPTS", 3),
		RetryBackoff:   envDur("BOOKING_RETRY_BACKOFF", 20*time.Millisecond),
		PricePolicy:    strings.ToLower(getenv("BOOKING_PRICE_POLICY", "trust")),
		PublishTimeout: envDur("BOOKING_PUBLISH_TIMEOUT", 3*time.Second),
	}
	if cfg.MaxAttempts < 1 {
		return cfg, fmt.Errorf("BOOKING_MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.PricePolicy != "trust" && cfg.PricePolicy != "verify" {
		return cfg, fmt.Errorf("BOOKING_PRICE_POLICY must be trust or verify, got %q", cfg.PricePolicy)
	}
	return cfg, nil
}
