package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/features"
)

// LoadEnvConfig reads a JSON file over the defaults. An empty path returns the defaults.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	cfg := DefaultEnvConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, simerrors.WrapError(err, simerrors.ErrorCategoryConfiguration, "config", "LoadEnvConfig")
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, simerrors.WrapError(fmt.Errorf("could not parse %s: %w", path, err),
			simerrors.ErrorCategoryConfiguration, "config", "LoadEnvConfig")
	}
	return cfg, nil
}

// SaveEnvConfig writes the configuration as indented JSON
func SaveEnvConfig(cfg *EnvConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

type envOverride struct {
	key   string
	apply func(cfg *EnvConfig, raw string) error
}

func intSetter(dst func(*EnvConfig) *int) func(*EnvConfig, string) error {
	return func(cfg *EnvConfig, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*dst(cfg) = v
		return nil
	}
}

func floatSetter(dst func(*EnvConfig) *float64) func(*EnvConfig, string) error {
	return func(cfg *EnvConfig, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*dst(cfg) = v
		return nil
	}
}

func stringSetter(dst func(*EnvConfig) *string) func(*EnvConfig, string) error {
	return func(cfg *EnvConfig, raw string) error {
		*dst(cfg) = raw
		return nil
	}
}

var envOverrides = []envOverride{
	{"GYM_DATA_FILE", stringSetter(func(c *EnvConfig) *string { return &c.DataFile })},
	{"GYM_WINDOW_SIZE", intSetter(func(c *EnvConfig) *int { return &c.WindowSize })},
	{"GYM_FRAME_START", intSetter(func(c *EnvConfig) *int { return &c.FrameStart })},
	{"GYM_FRAME_END", intSetter(func(c *EnvConfig) *int { return &c.FrameEnd })},
	{"GYM_BID_FEE", floatSetter(func(c *EnvConfig) *float64 { return &c.BidFee })},
	{"GYM_ASK_FEE", floatSetter(func(c *EnvConfig) *float64 { return &c.AskFee })},
	{"GYM_LOOK_AHEAD_RANGE", intSetter(func(c *EnvConfig) *int { return &c.LookAheadRange })},
	{"GYM_PROFITABLE_SELL_THRESHOLD", floatSetter(func(c *EnvConfig) *float64 { return &c.ProfitableSellThreshold })},
	{"GYM_REWARD_STRATEGY", stringSetter(func(c *EnvConfig) *string { return &c.RewardStrategy })},
	{"GYM_ENTRY_PRICE_SOURCE", stringSetter(func(c *EnvConfig) *string { return &c.EntryPriceSource })},
	{"GYM_HOLD_AT_END", stringSetter(func(c *EnvConfig) *string { return &c.HoldAtEnd })},
	{"GYM_FEATURE_ROWS", intSetter(func(c *EnvConfig) *int { return &c.FeatureRows })},
	{"GYM_NORMALIZE_WORKERS", intSetter(func(c *EnvConfig) *int { return &c.NormalizeWorkers })},
	{"GYM_POLICY", stringSetter(func(c *EnvConfig) *string { return &c.Policy })},
	{"GYM_EPISODES", intSetter(func(c *EnvConfig) *int { return &c.Episodes })},
	{"GYM_SEED", func(c *EnvConfig, raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		c.Seed = v
		return nil
	}},
	{"GYM_REDIS_ADDR", stringSetter(func(c *EnvConfig) *string { return &c.Cache.RedisAddr })},
	{"GYM_REDIS_PASSWORD", stringSetter(func(c *EnvConfig) *string { return &c.Cache.RedisPassword })},
	{"GYM_REDIS_DB", intSetter(func(c *EnvConfig) *int { return &c.Cache.RedisDB })},
	{"GYM_CACHE_TTL", stringSetter(func(c *EnvConfig) *string { return &c.Cache.TTL })},
	{"GYM_JOURNAL_PATH", stringSetter(func(c *EnvConfig) *string { return &c.Storage.JournalPath })},
	{"GYM_LOG_DIR", stringSetter(func(c *EnvConfig) *string { return &c.Storage.LogDir })},
	{"GYM_METRICS_PORT", intSetter(func(c *EnvConfig) *int { return &c.Storage.MetricsPort })},
}

// ApplyEnvOverrides overwrites fields from GYM_* variables found by lookup. Every
// malformed variable is reported.
func (c *EnvConfig) ApplyEnvOverrides(lookup func(string) (string, bool)) error {
	var bad []string
	for _, o := range envOverrides {
		raw, ok := lookup(o.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		if err := o.apply(c, strings.TrimSpace(raw)); err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q", o.key, raw))
		}
	}
	if len(bad) > 0 {
		return simerrors.NewConfigurationError("config", "ApplyEnvOverrides",
			"malformed environment variables: "+strings.Join(bad, ", "))
	}
	return nil
}

// ApplyProcessEnv applies overrides from the process environment
func (c *EnvConfig) ApplyProcessEnv() error {
	return c.ApplyEnvOverrides(os.LookupEnv)
}

// RewardParams converts the reward fields
func (c *EnvConfig) RewardParams() env.RewardParams {
	return env.RewardParams{
		LookAheadRange:              c.LookAheadRange,
		ProfitableSellThreshold:     c.ProfitableSellThreshold,
		ProfitableSellReward:        c.ProfitableSellReward,
		NonProfitableSellPunishment: c.NonProfitableSellPunishment,
		HoldAtEnd:                   env.HoldAtEndPolicy(c.HoldAtEnd),
	}
}

// SimulatorConfig builds the simulator configuration for a dataset of n rows
func (c *EnvConfig) SimulatorConfig(n int) (env.Config, error) {
	reward, err := env.NewRewardStrategy(c.RewardStrategy, c.RewardParams())
	if err != nil {
		return env.Config{}, err
	}
	start, end, err := c.Frame(n)
	if err != nil {
		return env.Config{}, err
	}
	return env.Config{
		WindowSize: c.WindowSize,
		FrameBound: env.FrameBound{Start: start, End: end},
		BidFee:     c.BidFee,
		AskFee:     c.AskFee,
		EntryPrice: env.EntryPriceSource(c.EntryPriceSource),
		Reward:     reward,
	}, nil
}

// EngineConfig returns the indicator engine configuration with the configured row count
func (c *EnvConfig) EngineConfig() features.EngineConfig {
	ec := features.DefaultEngineConfig()
	ec.Rows = c.FeatureRows
	return ec
}

// CacheTTL parses Cache.TTL, falling back to the default on an empty value
func (c *EnvConfig) CacheTTL() (time.Duration, error) {
	raw := c.Cache.TTL
	if raw == "" {
		raw = DefaultCacheTTL
	}
	return time.ParseDuration(raw)
}
