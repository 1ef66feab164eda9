package config

import (
	"fmt"
	"strings"

	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
)

// Validate checks ranges and option values. All problems are reported at once.
func (c *EnvConfig) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.WindowSize < 1 {
		add("window size must be positive, got: %d", c.WindowSize)
	}
	if c.FrameStart != 0 && c.FrameStart < c.WindowSize {
		add("frame start must be at least the window size (%d), got: %d", c.WindowSize, c.FrameStart)
	}
	if c.FrameEnd != 0 && c.FrameEnd <= c.FrameStart {
		add("frame end must be after frame start, got: %d..%d", c.FrameStart, c.FrameEnd)
	}
	if c.BidFee < 0 || c.BidFee >= MaxFee {
		add("bid fee must be in [0, 1), got: %.6f", c.BidFee)
	}
	if c.AskFee < 0 || c.AskFee >= MaxFee {
		add("ask fee must be in [0, 1), got: %.6f", c.AskFee)
	}
	if c.LookAheadRange < 1 {
		add("look-ahead range must be positive, got: %d", c.LookAheadRange)
	}
	if !oneOf(c.RewardStrategy, RewardStrategies) {
		add("reward strategy must be one of %s, got: %q", strings.Join(RewardStrategies, "|"), c.RewardStrategy)
	}
	if !oneOf(c.EntryPriceSource, EntryPriceSources) {
		add("entry price source must be one of %s, got: %q", strings.Join(EntryPriceSources, "|"), c.EntryPriceSource)
	}
	if !oneOf(c.HoldAtEnd, HoldAtEndPolicies) {
		add("hold at end must be one of %s, got: %q", strings.Join(HoldAtEndPolicies, "|"), c.HoldAtEnd)
	}
	if c.FeatureRows < 1 {
		add("feature rows must be positive, got: %d", c.FeatureRows)
	}
	if c.FeatureRows > 0 && c.WindowSize >= c.FeatureRows {
		add("window size %d leaves no steps in %d feature rows", c.WindowSize, c.FeatureRows)
	}
	if c.NormalizeWorkers < 0 {
		add("normalize workers must not be negative, got: %d", c.NormalizeWorkers)
	}
	if c.Episodes < 1 {
		add("episodes must be positive, got: %d", c.Episodes)
	}
	if _, err := c.CacheTTL(); err != nil {
		add("cache ttl: %v", err)
	}
	if p := c.Storage.MetricsPort; p < 0 || p > 65535 {
		add("metrics port out of range: %d", p)
	}

	if len(problems) > 0 {
		return simerrors.NewConfigurationError("config", "Validate", strings.Join(problems, "; "))
	}
	return nil
}

func oneOf(v string, choices []string) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}
