package config

// Package config provides configuration management for the trading environment

import (
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
)

// Environment defaults
const (
	DefaultWindowSize                  = 60
	DefaultFee                         = 0.00075 // 0.075%
	DefaultLookAheadRange              = 5
	DefaultProfitableSellThreshold     = 1.0 // percent
	DefaultProfitableSellReward        = 1.0
	DefaultNonProfitableSellPunishment = -1.0
	DefaultRewardStrategy              = "lookahead"
	DefaultEntryPriceSource            = "last_buy"
	DefaultHoldAtEnd                   = "zero"
	DefaultFeatureRows                 = 500
	DefaultPolicy                      = "buy_and_hold"
	DefaultMetricsPort                 = 9102
	DefaultCacheTTL                    = "24h"

	// Output locations
	DefaultLogDir  = "logs"
	ResultsDir     = "results"
	HistoryFile    = "episode.xlsx"
	SummaryFile    = "summary.json"
	FeaturesFile   = "features.csv"
	DefaultEnvFile = ".env"

	MaxFee = 1.0
)

// Supported option values
var (
	RewardStrategies  = []string{"lookahead", "trend"}
	EntryPriceSources = []string{"last_buy", "last_trade"}
	HoldAtEndPolicies = []string{"zero", "reject"}
)

// EnvConfig holds everything needed to build and run an environment
type EnvConfig struct {
	DataFile string `json:"data_file"`

	WindowSize int `json:"window_size"`
	// FrameStart 0 means WindowSize, FrameEnd 0 means the dataset length
	FrameStart int     `json:"frame_start"`
	FrameEnd   int     `json:"frame_end"`
	BidFee     float64 `json:"bid_fee"`
	AskFee     float64 `json:"ask_fee"`

	LookAheadRange              int     `json:"look_ahead_range"`
	ProfitableSellThreshold     float64 `json:"profitable_sell_threshold"`
	ProfitableSellReward        float64 `json:"profitable_sell_reward"`
	NonProfitableSellPunishment float64 `json:"non_profitable_sell_punishment"`
	RewardStrategy              string  `json:"reward_strategy"`
	EntryPriceSource            string  `json:"entry_price_source"`
	HoldAtEnd                   string  `json:"hold_at_end"`

	FeatureRows      int `json:"feature_rows"`
	NormalizeWorkers int `json:"normalize_workers"`

	Policy   string `json:"policy"`
	Seed     int64  `json:"seed"`
	Episodes int    `json:"episodes"`

	Cache   CacheConfig   `json:"cache"`
	Storage StorageConfig `json:"storage"`
}

// CacheConfig selects the feature table cache; an empty RedisAddr keeps it in memory
type CacheConfig struct {
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTL           string `json:"ttl"`
}

// StorageConfig locates journal, logs and metrics
type StorageConfig struct {
	JournalPath string `json:"journal_path"`
	LogDir      string `json:"log_dir"`
	MetricsPort int    `json:"metrics_port"`
}

// DefaultEnvConfig returns the defaults of the registered crypto-v0 environment
func DefaultEnvConfig() *EnvConfig {
	return &EnvConfig{
		WindowSize:                  DefaultWindowSize,
		BidFee:                      DefaultFee,
		AskFee:                      DefaultFee,
		LookAheadRange:              DefaultLookAheadRange,
		ProfitableSellThreshold:     DefaultProfitableSellThreshold,
		ProfitableSellReward:        DefaultProfitableSellReward,
		NonProfitableSellPunishment: DefaultNonProfitableSellPunishment,
		RewardStrategy:              DefaultRewardStrategy,
		EntryPriceSource:            DefaultEntryPriceSource,
		HoldAtEnd:                   DefaultHoldAtEnd,
		FeatureRows:                 DefaultFeatureRows,
		Policy:                      DefaultPolicy,
		Episodes:                    1,
		Cache:                       CacheConfig{TTL: DefaultCacheTTL},
		Storage:                     StorageConfig{LogDir: DefaultLogDir},
	}
}

// Frame resolves the frame bound for a dataset of n rows. A frame end past the
// dataset is an error, not a clamp.
func (c *EnvConfig) Frame(n int) (start, end int, err error) {
	start, end = c.FrameStart, c.FrameEnd
	if start == 0 {
		start = c.WindowSize
	}
	if end == 0 {
		end = n
	}
	if end > n {
		return 0, 0, simerrors.NewPreconditionError("config", "Frame", simerrors.ErrInvalidFrameBound).
			WithContext("end", end).WithContext("rows", n)
	}
	return start, end, nil
}
