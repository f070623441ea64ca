package config

import (
	"fmt"
	"strings"
	"time"
)

// CacheConfig holds the settings for the query cache.
type CacheConfig struct {
	GCInterval time.Duration `koanf:"gcinterval"`
	GCTime     time.Duration `koanf:"gctime"`
}

// String returns a string representation of the cache configuration.
func (c *CacheConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Query Cache ---\n")
	b.WriteString(fmt.Sprintf("  gcinterval: %v\n", c.GCInterval))
	b.WriteString(fmt.Sprintf("  gctime: %v\n", c.GCTime))
	return b.String()
}

func (c *CacheConfig) Validate() error {
	if c.GCInterval <= 0 {
		return fmt.Errorf("cache gc interval must be greater than 0")
	}
	if c.GCTime <= 0 {
		return fmt.Errorf("cache gc time must be greater than 0")
	}
	return nil
}
