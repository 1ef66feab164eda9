package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultOutputDir returns results/<policy>_<reward>
func DefaultOutputDir(policy, reward string) string {
	p := strings.ToLower(strings.TrimSpace(policy))
	r := strings.ToLower(strings.TrimSpace(reward))
	if p == "" {
		p = "unknown"
	}
	if r == "" {
		r = "unknown"
	}
	return filepath.Join("results", fmt.Sprintf("%s_%s", p, r))
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
