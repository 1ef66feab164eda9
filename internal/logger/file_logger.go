package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ducminhle1904/crypto-gym/internal/env"
	"github.com/ducminhle1904/crypto-gym/internal/runner"
)

// Logger writes episode transcripts to a size-rotated file
type Logger struct {
	name    string
	logDir  string
	rotator *lumberjack.Logger
	logger  *log.Logger
	mu      sync.Mutex
	trades  bool
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelEpisode LogLevel = "EPISODE"
)

// Options controls file placement and rotation. Sizes are in megabytes, ages in days.
type Options struct {
	Dir        string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	// LogSteps writes every step, not just trades
	LogSteps bool
}

// DefaultOptions returns logs/ with 50MB files, 5 backups kept for 14 days
func DefaultOptions() Options {
	return Options{Dir: "logs", MaxSize: 50, MaxBackups: 5, MaxAge: 14, Compress: true}
}

// NewLogger creates a logger writing to <dir>/<name>.log
func NewLogger(name string, opts Options) (*Logger, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, name+".log"),
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}

	return &Logger{
		name:    name,
		logDir:  opts.Dir,
		rotator: rotator,
		logger:  log.New(rotator, "", 0),
		trades:  !opts.LogSteps,
	}, nil
}

// Writer exposes the rotating file, e.g. to tee CLI output into it
func (l *Logger) Writer() io.Writer {
	return l.rotator
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("[%s] [%s] %s", timestamp, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// OnEpisodeStart writes the episode header
func (l *Logger) OnEpisodeStart(_ context.Context, meta runner.EpisodeMeta) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf(`
================================================================================
EPISODE %s STARTED
================================================================================
Policy: %s | Reward: %s | Window: %d
Ticks: %d -> %d
Started: %s
================================================================================`,
		meta.ID, meta.Policy, meta.Reward, meta.WindowSize,
		meta.StartTick, meta.EndTick, meta.StartedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// OnStep logs trades, and every step when LogSteps is set
func (l *Logger) OnStep(_ context.Context, step runner.StepRecord) error {
	switch {
	case step.Trade && step.Position == env.PositionLong:
		l.Trade("OPEN  tick=%d price=%.4f reward=%.4f", step.Tick, step.Price, step.Reward)
	case step.Trade:
		l.Trade("CLOSE tick=%d price=%.4f reward=%.4f profit=%.6f", step.Tick, step.Price, step.Reward, step.TotalProfit)
	case !l.trades:
		l.Info("tick=%d action=%s price=%.4f reward=%.4f total_reward=%.4f position=%s",
			step.Tick, step.Action, step.Price, step.Reward, step.TotalReward, step.Position)
	}
	return nil
}

// OnEpisodeEnd writes the episode footer with the summary
func (l *Logger) OnEpisodeEnd(_ context.Context, result *runner.EpisodeResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf(`
[%s] [%s] ==================== EPISODE %s FINISHED ====================
Steps: %d | Trades: %d | Win rate: %.2f%%
Total reward: %.4f | Total profit: %.6f
Max possible profit: %.6f | Efficiency: %.2f%%
==============================================================`,
		time.Now().Format("2006-01-02 15:04:05"), LogLevelEpisode, result.ID,
		result.Steps, len(result.Trades), result.WinRate,
		result.TotalReward, result.TotalProfit,
		result.MaxPossibleProfit, result.Efficiency*100)
	return nil
}

// Close flushes and closes the current file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotator.Close()
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return l.rotator.Filename
}
