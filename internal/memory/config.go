package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"bookshelf/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go heap.
	DefaultMemoryRatio = 0.85

	EnvLimit = "BOOKSHELF_MEMORY_LIMIT"
	EnvRatio = "BOOKSHELF_MEMORY_RATIO"
)

// Source values reported in ConfigResult.
const (
	SourceGoMemLimit = "GOMEMLIMIT"
	SourceContainer  = "container"
	SourceNone       = "none"
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the runtime memory limit from the environment.
// Call it before significant allocations.
func ConfigureFromEnv() ConfigResult {
	return configure(os.Getenv)
}

func configure(getenv func(string) string) ConfigResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := ConfigResult{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := getenv(EnvLimit)
	if raw == "" {
		logging.Debug("%s not set, GOMEMLIMIT will not be configured", EnvLimit)
		return ConfigResult{Source: SourceNone}
	}

	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Ignoring invalid %s %q", EnvLimit, raw)
		return ConfigResult{Source: SourceNone}
	}

	ratio := parseRatio(getenv(EnvRatio))
	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s container limit)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(limit))

	return ConfigResult{
		Configured:     true,
		Source:         SourceContainer,
		ContainerLimit: limit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("Ignoring invalid %s %q, using %.2f", EnvRatio, raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// FormatBytes formats b using binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
