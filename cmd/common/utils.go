package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger provides structured logging for CLI applications
type Logger struct {
	Level      LogLevel
	ShowEmojis bool
	SilentMode bool
	Out        io.Writer
}

// NewLogger creates a new logger with default settings
func NewLogger() *Logger {
	return &Logger{
		Level:      LogLevelInfo,
		ShowEmojis: true,
		Out:        os.Stdout,
	}
}

// SetSilentMode enables or disables silent mode
func (l *Logger) SetSilentMode(silent bool) {
	l.SilentMode = silent
}

func (l *Logger) emit(emoji, plain, format string, args ...interface{}) {
	prefix := emoji
	if !l.ShowEmojis {
		prefix = plain
	}
	fmt.Fprintf(l.Out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Header prints a formatted header
func (l *Logger) Header(title string) {
	if l.SilentMode {
		return
	}

	emoji := "🎯"
	if !l.ShowEmojis {
		emoji = "***"
	}

	fmt.Fprintf(l.Out, "\n%s %s\n", emoji, strings.ToUpper(title))
	fmt.Fprintf(l.Out, "%s\n", strings.Repeat("=", len(title)+5))
}

// Section prints a formatted section header
func (l *Logger) Section(title string) {
	if l.SilentMode {
		return
	}

	emoji := "📋"
	if !l.ShowEmojis {
		emoji = "---"
	}

	fmt.Fprintf(l.Out, "\n%s %s\n", emoji, title)
	fmt.Fprintf(l.Out, "%s\n", strings.Repeat("-", len(title)+5))
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.SilentMode || l.Level < LogLevelInfo {
		return
	}
	l.emit("ℹ️ ", "[INFO]", format, args...)
}

// Error prints an error message, even in silent mode
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("❌", "[ERROR]", format, args...)
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}
	l.emit("✅", "[SUCCESS]", format, args...)
}

// Warn prints a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.Level < LogLevelWarn {
		return
	}
	l.emit("⚠️ ", "[WARN]", format, args...)
}

// Debug prints a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Level < LogLevelDebug {
		return
	}
	l.emit("🔍", "[DEBUG]", format, args...)
}

// Progress prints a progress message
func (l *Logger) Progress(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}
	l.emit("🔄", "[PROGRESS]", format, args...)
}

// FileUtils provides file and path utilities
type FileUtils struct{}

// NewFileUtils creates a new file utilities instance
func NewFileUtils() *FileUtils {
	return &FileUtils{}
}

// FileExists reports whether path exists
func (f *FileUtils) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// EnsureDir ensures a directory exists, creating it if necessary
func (f *FileUtils) EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ResolvePath expands shorthand paths. A path that exists is kept as given; otherwise
// defaultExt is appended when missing and a bare file name moves under defaultDir.
func (f *FileUtils) ResolvePath(path, defaultDir, defaultExt string) string {
	if path == "" || f.FileExists(path) {
		return path
	}

	if defaultExt != "" && !strings.HasSuffix(strings.ToLower(path), defaultExt) {
		path += defaultExt
	}
	if defaultDir != "" && !strings.ContainsAny(path, "/\\") {
		return filepath.Join(defaultDir, path)
	}
	return path
}

// EnvLoader provides environment loading utilities
type EnvLoader struct {
	logger *Logger
}

// NewEnvLoader creates a new environment loader
func NewEnvLoader(logger *Logger) *EnvLoader {
	return &EnvLoader{logger: logger}
}

// LoadEnvFile loads environment variables from a file. A missing file is not an error.
// Variables already set in the process environment win.
func (e *EnvLoader) LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}

	if !DefaultFileUtils.FileExists(path) {
		e.logger.Debug("Environment file %s not found, using system environment", path)
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		e.logger.Warn("Could not load environment file %s: %v", path, err)
		return err
	}

	e.logger.Debug("Environment loaded from %s", path)
	return nil
}

// FormatUtils provides formatting utilities
type FormatUtils struct{}

// NewFormatUtils creates a new format utilities instance
func NewFormatUtils() *FormatUtils {
	return &FormatUtils{}
}

// FormatDuration formats a duration in a human-readable way
func (f *FormatUtils) FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// Global instances for convenience
var (
	DefaultLogger    = NewLogger()
	DefaultFileUtils = NewFileUtils()
	DefaultEnvLoader = NewEnvLoader(DefaultLogger)
	DefaultFormatter = NewFormatUtils()
)

// Convenience functions using global instances
func Header(title string)                         { DefaultLogger.Header(title) }
func Section(title string)                        { DefaultLogger.Section(title) }
func Info(format string, args ...interface{})     { DefaultLogger.Info(format, args...) }
func Error(format string, args ...interface{})    { DefaultLogger.Error(format, args...) }
func Success(format string, args ...interface{})  { DefaultLogger.Success(format, args...) }
func Warn(format string, args ...interface{})     { DefaultLogger.Warn(format, args...) }
func Debug(format string, args ...interface{})    { DefaultLogger.Debug(format, args...) }
func Progress(format string, args ...interface{}) { DefaultLogger.Progress(format, args...) }

func LoadEnvFile(path string) error { return DefaultEnvLoader.LoadEnvFile(path) }

func FileExists(path string) bool              { return DefaultFileUtils.FileExists(path) }
func EnsureDir(path string) error              { return DefaultFileUtils.EnsureDir(path) }
func ResolvePath(path, dir, ext string) string { return DefaultFileUtils.ResolvePath(path, dir, ext) }

func FormatDuration(d time.Duration) string { return DefaultFormatter.FormatDuration(d) }
