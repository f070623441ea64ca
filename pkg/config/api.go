package config

import (
	"fmt"
	"strings"
	"time"
)

// APIConfig holds the settings for the remote storefront API.
type APIConfig struct {
	BaseURL    string           `koanf:"baseurl"`
	Timeout    time.Duration    `koanf:"timeout"`
	Resilience ResilienceConfig `koanf:"resilience"`
}

// String returns a string representation of the API configuration.
func (c *APIConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Remote API ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %v\n", c.Timeout))
	b.WriteString(c.Resilience.String())
	return b.String()
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("api base URL is not configured")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid api base URL: %s", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("api timeout must be greater than 0")
	}
	return c.Resilience.Validate()
}
