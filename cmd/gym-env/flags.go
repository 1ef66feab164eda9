package main

import (
	"flag"

	"github.com/ducminhle1904/crypto-gym/cmd/common"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
	"github.com/ducminhle1904/crypto-gym/pkg/config"
)

// GymFlags holds all command line flags for the gym-env command
type GymFlags struct {
	*common.CommonFlags

	// Environment
	WindowSize *int
	FrameStart *int
	FrameEnd   *int
	Fee        *float64
	Reward     *string
	EntryPrice *string
	HoldAtEnd  *string

	// Episodes
	Policy   *string
	Episodes *int
	Workers  *int
	Seed     *int64

	// Data
	SampleSize  *int
	FeatureRows *int

	// Storage and monitoring
	Journal     *string
	RedisAddr   *string
	MetricsPort *int
	LogSteps    *bool
}

// NewGymFlags registers every gym-env flag on fs
func NewGymFlags(fs *flag.FlagSet) *GymFlags {
	return &GymFlags{
		CommonFlags: common.RegisterCommonFlags(fs),

		WindowSize: fs.Int("window", config.DefaultWindowSize, "Observation window size"),
		FrameStart: fs.Int("frame-start", 0, "First tick of the episode frame (0 = window)"),
		FrameEnd:   fs.Int("frame-end", 0, "End of the episode frame, exclusive (0 = dataset length)"),
		Fee:        fs.Float64("fee", config.DefaultFee, "Bid and ask fee as a fraction"),
		Reward:     fs.String("reward", config.DefaultRewardStrategy, "Reward strategy (lookahead, trend)"),
		EntryPrice: fs.String("entry-price", config.DefaultEntryPriceSource, "Entry price for profit (last_buy, last_trade)"),
		HoldAtEnd:  fs.String("hold-at-end", config.DefaultHoldAtEnd, "HOLD on the last tick (zero, reject)"),

		Policy:   fs.String("policy", config.DefaultPolicy, "Baseline policy (hold, buy_and_hold, random, oracle)"),
		Episodes: fs.Int("episodes", 1, "Number of episodes to run"),
		Workers:  fs.Int("workers", 4, "Concurrent episodes when episodes > 1"),
		Seed:     fs.Int64("seed", 42, "Seed for sample data and the random policy"),

		SampleSize:  fs.Int("sample-size", 1000, "Candles to generate when no data file is given"),
		FeatureRows: fs.Int("rows", config.DefaultFeatureRows, "Trailing rows kept after feature computation"),

		Journal:     fs.String("journal", "", "SQLite episode journal path (empty disables)"),
		RedisAddr:   fs.String("redis", "", "Redis address for the feature cache (empty uses memory)"),
		MetricsPort: fs.Int("metrics-port", 0, "Serve prometheus /metrics on this port (0 disables)"),
		LogSteps:    fs.Bool("log-steps", false, "Write every step to the episode log, not just trades"),
	}
}

// ValidateGymFlags checks flag values that config validation does not cover
func ValidateGymFlags(f *GymFlags) error {
	v := common.NewFlagValidator().
		ValidateInt("episodes", *f.Episodes, 1, 10000).
		ValidateInt("workers", *f.Workers, 1, 256).
		ValidateInt("sample-size", *f.SampleSize, 0, 10000000).
		ValidateInt("metrics-port", *f.MetricsPort, 0, 65535).
		ValidateChoice("policy", *f.Policy, runner.PolicyNames).
		ValidateFile("data", *f.DataFile, false)
	return v.GetError()
}

// applyFlags copies explicitly set flags over the loaded configuration
func applyFlags(fs *flag.FlagSet, f *GymFlags, cfg *config.EnvConfig) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.DataFile = *f.DataFile
		case "window":
			cfg.WindowSize = *f.WindowSize
		case "frame-start":
			cfg.FrameStart = *f.FrameStart
		case "frame-end":
			cfg.FrameEnd = *f.FrameEnd
		case "fee":
			cfg.BidFee = *f.Fee
			cfg.AskFee = *f.Fee
		case "reward":
			cfg.RewardStrategy = *f.Reward
		case "entry-price":
			cfg.EntryPriceSource = *f.EntryPrice
		case "hold-at-end":
			cfg.HoldAtEnd = *f.HoldAtEnd
		case "policy":
			cfg.Policy = *f.Policy
		case "episodes":
			cfg.Episodes = *f.Episodes
		case "seed":
			cfg.Seed = *f.Seed
		case "rows":
			cfg.FeatureRows = *f.FeatureRows
		case "journal":
			cfg.Storage.JournalPath = *f.Journal
		case "redis":
			cfg.Cache.RedisAddr = *f.RedisAddr
		case "metrics-port":
			cfg.Storage.MetricsPort = *f.MetricsPort
		}
	})
}

func usage() *common.UsageFormatter {
	return common.NewUsageFormatter("gym-env", "Run baseline policies through the crypto trading simulator").
		AddExample("gym-env -data data/BTCUSDT_1h.csv -policy oracle", "Oracle episode on a CSV file").
		AddExample("gym-env -policy random -episodes 20 -workers 4", "Twenty random episodes on sample data").
		AddExample("gym-env -reward trend -journal episodes.db -metrics-port 9102", "Trend reward with journal and metrics")
}
