package session

import "fmt"

// Config tunes the registry. All durations are in seconds since the values
// come straight from the configuration file.
type Config struct {
	// ReservationTTLSeconds sets the expiry window handed out with new
	// reservations. Expiry is checked lazily on the next operation.
	ReservationTTLSeconds int `json:"reservation_ttl_seconds"`
	// CostLimitEnabled turns on the spontaneous stop when the projected
	// session cost would exceed the account's available balance.
	CostLimitEnabled bool `json:"cost_limit_enabled"`
	// ProjectionSamples bounds how many of the most recent cost samples feed
	// the linear projection.
	ProjectionSamples int `json:"projection_samples"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ReservationTTLSeconds == 0 {
		c.ReservationTTLSeconds = 900
	}
	if c.ProjectionSamples == 0 {
		c.ProjectionSamples = 16
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.ReservationTTLSeconds < 0 {
		return fmt.Errorf("reservation_ttl_seconds must not be negative")
	}
	if c.ProjectionSamples < 2 {
		return fmt.Errorf("projection_samples must be at least 2")
	}
	return nil
}
