package config

import (
	"fmt"
	"strings"
	"time"
)

type ResilienceConfig struct {
	RateLimit      RateLimitConfig      `koanf:"ratelimit"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

type CircuitBreakerConfig struct {
	Enabled             bool          `koanf:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// String returns a string representation of the ResilienceConfig.
func (c *ResilienceConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Rate Limit ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.RateLimit.Enabled))
	b.WriteString(fmt.Sprintf("  rps: %v\n", c.RateLimit.RPS))
	b.WriteString(fmt.Sprintf("  burst: %d\n", c.RateLimit.Burst))
	b.WriteString("\n--- Circuit Breaker ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.CircuitBreaker.Enabled))
	b.WriteString(fmt.Sprintf("  consecutivefailures: %d\n", c.CircuitBreaker.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  errorratepercent: %d\n", c.CircuitBreaker.ErrorRatePercent))
	b.WriteString(fmt.Sprintf("  opentimeout: %v\n", c.CircuitBreaker.OpenTimeout))
	return b.String()
}

func (c *ResilienceConfig) Validate() error {
	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("ratelimit.rps must be greater than 0")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("ratelimit.burst must be greater than 0")
		}
	}
	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.ConsecutiveFailures <= 0 {
			return fmt.Errorf("circuitbreaker.consecutivefailures must be greater than 0")
		}
		if c.CircuitBreaker.ErrorRatePercent < 0 || c.CircuitBreaker.ErrorRatePercent > 100 {
			return fmt.Errorf("circuitbreaker.errorratepercent must be between 0 and 100")
		}
		if c.CircuitBreaker.OpenTimeout <= 0 {
			return fmt.Errorf("circuitbreaker.opentimeout must be greater than 0")
		}
	}
	return nil
}
