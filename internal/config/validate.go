// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate checks a configuration for values the pipeline cannot run with.
func Validate(c Config) error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: dataDir is empty")
	}
	if strings.TrimSpace(c.Raw.Archive) == "" {
		return fmt.Errorf("config: raw.archive is empty")
	}
	if strings.TrimSpace(c.Raw.NLSY) == "" || strings.TrimSpace(c.Raw.CHS) == "" {
		return fmt.Errorf("config: raw extract file names are empty")
	}
	if strings.TrimSpace(c.Meta.NLSY) == "" || strings.TrimSpace(c.Meta.CHS) == "" {
		return fmt.Errorf("config: dictionary paths are empty")
	}

	if c.Waves.Start > c.Waves.End {
		return fmt.Errorf("config: waves.start %d after waves.end %d", c.Waves.Start, c.Waves.End)
	}
	if c.Waves.Start < 1900 || c.Waves.End > 2100 {
		return fmt.Errorf("config: wave range %d-%d is not a plausible survey period", c.Waves.Start, c.Waves.End)
	}
	if c.Ages.Min > c.Ages.Max {
		return fmt.Errorf("config: ages.min %d above ages.max %d", c.Ages.Min, c.Ages.Max)
	}
	if c.Ages.Min < 0 {
		return fmt.Errorf("config: ages.min %d is negative", c.Ages.Min)
	}

	if c.API.Listen != "" {
		if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
			return fmt.Errorf("config: api.listen %q: %w", c.API.Listen, err)
		}
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("config: api.rateLimit %d is negative", c.API.RateLimit)
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("config: watch.debounce %q: %w", c.Watch.Debounce, err)
		}
	}
	return nil
}
