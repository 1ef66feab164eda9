package common

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CommonFlags contains flags shared by the gym commands
type CommonFlags struct {
	EnvFile     *string
	ConfigFile  *string
	DataFile    *string
	OutputDir   *string
	ConsoleOnly *bool

	Verbose  *bool
	Silent   *bool
	NoEmojis *bool

	Version *bool
	Help    *bool
}

// Default locations for shorthand -data and -config values
const (
	DefaultDataDir   = "data"
	DefaultConfigDir = "configs"
)

// ResolvePaths expands shorthand -data and -config values, so "-data btcusdt_1h" reads
// data/btcusdt_1h.csv when no such file exists in the working directory
func (cf *CommonFlags) ResolvePaths() {
	*cf.DataFile = ResolvePath(*cf.DataFile, DefaultDataDir, ".csv")
	*cf.ConfigFile = ResolvePath(*cf.ConfigFile, DefaultConfigDir, ".json")
}

// RegisterCommonFlags registers common flags on fs
func RegisterCommonFlags(fs *flag.FlagSet) *CommonFlags {
	return &CommonFlags{
		EnvFile:     fs.String("env", ".env", "Environment file path"),
		ConfigFile:  fs.String("config", "", "JSON environment config file"),
		DataFile:    fs.String("data", "", "OHLCV CSV file (empty generates sample data)"),
		OutputDir:   fs.String("output", "", "Output directory (default results/<policy>_<reward>)"),
		ConsoleOnly: fs.Bool("console-only", false, "Console output only (no file output)"),

		Verbose:  fs.Bool("verbose", false, "Enable verbose output"),
		Silent:   fs.Bool("silent", false, "Enable silent mode (minimal output)"),
		NoEmojis: fs.Bool("no-emojis", false, "Disable emoji output"),

		Version: fs.Bool("version", false, "Show version information"),
		Help:    fs.Bool("help", false, "Show help information"),
	}
}

// FlagValidator collects flag validation errors
type FlagValidator struct {
	errors []string
}

// NewFlagValidator creates a new flag validator
func NewFlagValidator() *FlagValidator {
	return &FlagValidator{errors: make([]string, 0)}
}

// ValidateFloat validates a float flag value
func (v *FlagValidator) ValidateFloat(name string, value float64, min, max float64) *FlagValidator {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Sprintf("%s must be between %.4f and %.4f, got: %.4f", name, min, max, value))
	}
	return v
}

// ValidateInt validates an int flag value
func (v *FlagValidator) ValidateInt(name string, value int, min, max int) *FlagValidator {
	if value < min || value > max {
		v.errors = append(v.errors, fmt.Sprintf("%s must be between %d and %d, got: %d", name, min, max, value))
	}
	return v
}

// ValidateChoice validates that a string is one of the allowed choices
func (v *FlagValidator) ValidateChoice(name, value string, choices []string) *FlagValidator {
	for _, choice := range choices {
		if value == choice {
			return v
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of [%s], got: %s", name, strings.Join(choices, ", "), value))
	return v
}

// ValidateFile validates that a file exists
func (v *FlagValidator) ValidateFile(name, path string, required bool) *FlagValidator {
	if path == "" {
		if required {
			v.errors = append(v.errors, fmt.Sprintf("%s is required", name))
		}
		return v
	}

	if !FileExists(path) {
		v.errors = append(v.errors, fmt.Sprintf("%s file does not exist: %s", name, path))
	}
	return v
}

// AddError adds a custom validation error
func (v *FlagValidator) AddError(message string) *FlagValidator {
	v.errors = append(v.errors, message)
	return v
}

// HasErrors returns true if there are validation errors
func (v *FlagValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// GetError returns all validation errors as one error
func (v *FlagValidator) GetError() error {
	if len(v.errors) == 0 {
		return nil
	}

	if len(v.errors) == 1 {
		return fmt.Errorf("validation error: %s", v.errors[0])
	}

	return fmt.Errorf("validation errors:\n  - %s", strings.Join(v.errors, "\n  - "))
}

// UsageFormatter prints usage with examples
type UsageFormatter struct {
	AppName        string
	AppDescription string
	Examples       []UsageExample
}

// UsageExample represents a usage example
type UsageExample struct {
	Command     string
	Description string
}

// NewUsageFormatter creates a new usage formatter
func NewUsageFormatter(appName, description string) *UsageFormatter {
	return &UsageFormatter{
		AppName:        appName,
		AppDescription: description,
		Examples:       make([]UsageExample, 0),
	}
}

// AddExample adds a usage example
func (u *UsageFormatter) AddExample(command, description string) *UsageFormatter {
	u.Examples = append(u.Examples, UsageExample{Command: command, Description: description})
	return u
}

// PrintUsage prints formatted usage information followed by the flag defaults of fs
func (u *UsageFormatter) PrintUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "%s - %s\n\n", u.AppName, u.AppDescription)

	fmt.Fprintf(w, "USAGE:\n")
	fmt.Fprintf(w, "  %s [OPTIONS]\n\n", filepath.Base(os.Args[0]))

	if len(u.Examples) > 0 {
		fmt.Fprintf(w, "EXAMPLES:\n")
		for _, example := range u.Examples {
			fmt.Fprintf(w, "  # %s\n", example.Description)
			fmt.Fprintf(w, "  %s\n\n", example.Command)
		}
	}

	fmt.Fprintf(w, "OPTIONS:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// CheckHelpAndVersion handles -version and -help; it reports whether the caller should exit
func CheckHelpAndVersion(appName string, fs *flag.FlagSet, commonFlags *CommonFlags, formatter *UsageFormatter) bool {
	if *commonFlags.Version {
		PrintVersion(os.Stdout, appName)
		return true
	}

	if *commonFlags.Help {
		formatter.PrintUsage(os.Stdout, fs)
		return true
	}

	return false
}

// SetupLogger configures the default logger based on common flags
func SetupLogger(commonFlags *CommonFlags) *Logger {
	logger := DefaultLogger

	if *commonFlags.Silent {
		logger.SetSilentMode(true)
	}
	if *commonFlags.Verbose {
		logger.Level = LogLevelDebug
	}
	if *commonFlags.NoEmojis {
		logger.ShowEmojis = false
	}
	return logger
}
