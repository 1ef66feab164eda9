package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ducminhle1904/crypto-gym/cmd/common"
	"github.com/ducminhle1904/crypto-gym/internal/env"
	simerrors "github.com/ducminhle1904/crypto-gym/internal/errors"
	"github.com/ducminhle1904/crypto-gym/internal/features"
	"github.com/ducminhle1904/crypto-gym/internal/logger"
	"github.com/ducminhle1904/crypto-gym/internal/monitoring"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
	"github.com/ducminhle1904/crypto-gym/internal/store/sqlite"
	"github.com/ducminhle1904/crypto-gym/pkg/config"
	"github.com/ducminhle1904/crypto-gym/pkg/data"
	"github.com/ducminhle1904/crypto-gym/pkg/reporting"
	"github.com/ducminhle1904/crypto-gym/pkg/types"
)

const AppName = "gym-env"

func main() {
	fs := flag.CommandLine
	flags := NewGymFlags(fs)
	flag.Parse()

	if common.CheckHelpAndVersion(AppName, fs, flags.CommonFlags, usage()) {
		return
	}

	log := common.SetupLogger(flags.CommonFlags)
	flags.ResolvePaths()
	if err := ValidateGymFlags(flags); err != nil {
		log.Error("Flag validation error: %v", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fs, flags, log); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, fs *flag.FlagSet, flags *GymFlags, log *common.Logger) error {
	log.Header(common.ProjectName + " " + AppName)

	if err := common.LoadEnvFile(*flags.EnvFile); err != nil {
		log.Warn("continuing without %s", *flags.EnvFile)
	}

	cfg, err := loadConfiguration(fs, flags)
	if err != nil {
		return err
	}

	if cfg.Storage.MetricsPort > 0 {
		startMetricsServer(cfg.Storage.MetricsPort, log)
	}

	candles, source, err := loadCandles(cfg, *flags.SampleSize)
	if err != nil {
		return err
	}
	log.Info("Loaded %d candles from %s", len(candles), source)

	ds, err := buildDataset(ctx, cfg, candles, source, log)
	if err != nil {
		return err
	}

	simCfg, err := cfg.SimulatorConfig(len(ds.Prices))
	if err != nil {
		return err
	}

	opts, closeObservers, err := buildObservers(cfg, flags)
	if err != nil {
		return err
	}
	defer closeObservers()

	log.Section("Episodes")
	log.Info("policy=%s reward=%s window=%d frame=[%d,%d) episodes=%d",
		cfg.Policy, simCfg.Reward.Name(), simCfg.WindowSize, simCfg.FrameBound.Start, simCfg.FrameBound.End, cfg.Episodes)

	if cfg.Episodes <= 1 {
		return runSingle(ctx, cfg, ds, simCfg, opts, flags, log)
	}
	return runMany(ctx, cfg, ds, simCfg, opts, *flags.Workers, log)
}

func loadConfiguration(fs *flag.FlagSet, flags *GymFlags) (*config.EnvConfig, error) {
	cfg := config.DefaultEnvConfig()
	if path := *flags.ConfigFile; path != "" {
		loaded, err := config.LoadEnvConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyProcessEnv(); err != nil {
		return nil, err
	}
	applyFlags(fs, flags, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCandles(cfg *config.EnvConfig, sampleSize int) ([]types.OHLCV, string, error) {
	if cfg.DataFile == "" {
		return data.GenerateSampleData(sampleSize, cfg.Seed), "sample", nil
	}

	provider := data.NewCachedProvider(data.NewCSVProvider())
	candles, err := provider.LoadData(cfg.DataFile)
	if err != nil {
		return nil, "", err
	}
	if err := provider.ValidateData(candles); err != nil {
		return nil, "", err
	}
	return candles, cfg.DataFile, nil
}

func buildDataset(ctx context.Context, cfg *config.EnvConfig, candles []types.OHLCV, source string, log *common.Logger) (*features.Dataset, error) {
	pipeline := features.NewPipeline(
		features.NewIndicatorEngine(cfg.EngineConfig()),
		features.NewColumnNormalizer(cfg.NormalizeWorkers),
	)

	var cache data.FeatureCache = data.NewMemoryFeatureCache()
	if cfg.Cache.RedisAddr != "" && source != "sample" {
		ttl, err := cfg.CacheTTL()
		if err != nil {
			return nil, simerrors.NewConfigurationError("config", "CacheTTL", err.Error())
		}
		redisCache := data.NewRedisFeatureCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, ttl)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using memory cache: %v", err)
		} else {
			cache = redisCache
		}
	}

	start := time.Now()
	ds, hit, err := data.BuildCached(ctx, cache, data.FeatureCacheKey(source, cfg.EngineConfig(), candles), pipeline, candles)
	if err != nil {
		return nil, err
	}
	if hit {
		log.Info("Feature table loaded from cache (%d rows)", ds.Table.Rows())
	} else {
		log.Info("Feature table built in %s (%d rows x %d columns)",
			common.FormatDuration(time.Since(start)), ds.Table.Rows(), ds.Table.Width())
	}
	return ds, nil
}

func buildObservers(cfg *config.EnvConfig, flags *GymFlags) ([]runner.Option, func(), error) {
	var opts []runner.Option
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if path := cfg.Storage.JournalPath; path != "" {
		journal, err := sqlite.NewJournal(path)
		if err != nil {
			return nil, closeAll, err
		}
		opts = append(opts, runner.WithObserver(journal))
		closers = append(closers, func() { journal.Close() })
	}

	if !*flags.ConsoleOnly {
		logOpts := logger.DefaultOptions()
		logOpts.Dir = cfg.Storage.LogDir
		logOpts.LogSteps = *flags.LogSteps
		fileLog, err := logger.NewLogger("episodes", logOpts)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opts = append(opts, runner.WithObserver(fileLog))
		closers = append(closers, func() { fileLog.Close() })
	}

	return opts, closeAll, nil
}

func runSingle(ctx context.Context, cfg *config.EnvConfig, ds *features.Dataset, simCfg env.Config, opts []runner.Option, flags *GymFlags, log *common.Logger) error {
	sim, err := env.NewFromDataset(ds, simCfg)
	if err != nil {
		return err
	}

	policy, _ := runner.NewPolicy(cfg.Policy, cfg.Seed)
	result, err := runner.NewRunner(sim, opts...).Run(ctx, policy)
	if result != nil {
		reporting.NewDefaultConsoleReporter().OutputResults(result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && result != nil {
			log.Warn("episode interrupted after %d steps", result.Steps)
			return nil
		}
		return err
	}

	if *flags.ConsoleOnly {
		return nil
	}
	return writeReports(result, outputDir(flags, result), log)
}

func runMany(ctx context.Context, cfg *config.EnvConfig, ds *features.Dataset, simCfg env.Config, opts []runner.Option, workers int, log *common.Logger) error {
	jobs := make([]runner.BatchJob, cfg.Episodes)
	for i := range jobs {
		policy, _ := runner.NewPolicy(cfg.Policy, cfg.Seed+int64(i))
		jobs[i] = runner.BatchJob{Config: simCfg, Policy: policy}
	}

	log.Progress("Running %d episodes on %d workers", len(jobs), workers)
	results, err := runner.RunBatch(ctx, ds.Prices, ds.Table.Matrix(), jobs, workers, opts...)
	reporting.NewDefaultConsoleReporter().OutputBatch(results)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Warn("%d of %d episodes failed", failed, len(results))
	} else {
		log.Success("%d episodes completed", len(results))
	}
	return nil
}

func outputDir(flags *GymFlags, result *runner.EpisodeResult) string {
	if *flags.OutputDir != "" {
		return *flags.OutputDir
	}
	return reporting.DefaultOutputDir(result.Policy, result.Reward)
}

func writeReports(result *runner.EpisodeResult, dir string, log *common.Logger) error {
	if err := common.EnsureDir(dir); err != nil {
		return err
	}

	xlsxPath := filepath.Join(dir, config.HistoryFile)
	if err := reporting.WriteEpisodeXLSX(result, xlsxPath); err != nil {
		return err
	}
	jsonPath := filepath.Join(dir, config.SummaryFile)
	if err := reporting.WriteSummaryJSON(result, jsonPath); err != nil {
		return err
	}

	log.Success("Reports written to %s", dir)
	log.Info("  %s", xlsxPath)
	log.Info("  %s", jsonPath)
	return nil
}

func startMetricsServer(port int, log *common.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())

	addr := monitoring.Addr(port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server: %v", err)
		}
	}()
	log.Info("Metrics available at http://localhost%s/metrics", addr)
}
