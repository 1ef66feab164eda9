package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ducminhle1904/crypto-gym/cmd/common"
	"github.com/ducminhle1904/crypto-gym/internal/features"
	"github.com/ducminhle1904/crypto-gym/pkg/config"
	"github.com/ducminhle1904/crypto-gym/pkg/data"
)

const AppName = "build-features"

// BuildFlags holds the command line flags of build-features
type BuildFlags struct {
	*common.CommonFlags

	Rows       *int
	Workers    *int
	Strict     *bool
	LastN      *int
	SampleSize *int
	Seed       *int64
}

// NewBuildFlags registers every build-features flag on fs
func NewBuildFlags(fs *flag.FlagSet) *BuildFlags {
	return &BuildFlags{
		CommonFlags: common.RegisterCommonFlags(fs),
		Rows:        fs.Int("rows", config.DefaultFeatureRows, "Trailing rows kept after feature computation"),
		Workers:     fs.Int("workers", 0, "Normalization workers (0 = one per CPU)"),
		Strict:      fs.Bool("strict", false, "Fail on the first unparseable CSV row instead of skipping it"),
		LastN:       fs.Int("last", 0, "Only use the trailing N candles of the input (0 = all)"),
		SampleSize:  fs.Int("sample-size", 1000, "Candles to generate when no data file is given"),
		Seed:        fs.Int64("seed", 42, "Seed for sample data"),
	}
}

func main() {
	fs := flag.CommandLine
	flags := NewBuildFlags(fs)
	flag.Parse()

	formatter := common.NewUsageFormatter(AppName, "Compute and normalize the 17-column feature table from OHLCV candles").
		AddExample("build-features -data data/BTCUSDT_1h.csv -output results/btc", "Normalize a CSV file").
		AddExample("build-features -rows 1000 -workers 8", "Sample data with more rows")
	if common.CheckHelpAndVersion(AppName, fs, flags.CommonFlags, formatter) {
		return
	}

	log := common.SetupLogger(flags.CommonFlags)
	flags.ResolvePaths()
	v := common.NewFlagValidator().
		ValidateInt("rows", *flags.Rows, 1, 10000000).
		ValidateInt("workers", *flags.Workers, 0, 256).
		ValidateFile("data", *flags.DataFile, false)
	if err := v.GetError(); err != nil {
		log.Error("Flag validation error: %v", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags, log); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *BuildFlags, log *common.Logger) error {
	log.Header(common.ProjectName + " " + AppName)
	if err := common.LoadEnvFile(*flags.EnvFile); err != nil {
		log.Warn("continuing without %s", *flags.EnvFile)
	}

	source := "sample"
	candles := data.GenerateSampleData(*flags.SampleSize, *flags.Seed)
	if path := *flags.DataFile; path != "" {
		provider := data.NewCSVProvider()
		if *flags.Strict {
			provider = data.NewStrictCSVProvider()
		}
		loaded, err := provider.LoadData(path)
		if err != nil {
			return err
		}
		if err := data.NewDefaultDataFilter().ValidateTimeSequence(loaded); err != nil {
			log.Warn("%v", err)
		}
		candles, source = loaded, path
	}
	candles = data.NewDefaultDataFilter().LastN(candles, *flags.LastN)
	log.Info("Loaded %d candles from %s", len(candles), source)

	engineCfg := features.DefaultEngineConfig()
	engineCfg.Rows = *flags.Rows
	pipeline := features.NewPipeline(features.NewIndicatorEngine(engineCfg), features.NewColumnNormalizer(*flags.Workers))

	start := time.Now()
	ds, err := pipeline.Build(ctx, candles)
	if err != nil {
		return err
	}
	log.Success("Normalized %d rows x %d columns in %s",
		ds.Table.Rows(), ds.Table.Width(), common.FormatDuration(time.Since(start)))

	if *flags.ConsoleOnly {
		return nil
	}

	dir := *flags.OutputDir
	if dir == "" {
		dir = config.ResultsDir
	}
	if err := common.EnsureDir(dir); err != nil {
		return err
	}

	path := filepath.Join(dir, config.FeaturesFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ds.Table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Info("Features written to %s", path)
	return nil
}
