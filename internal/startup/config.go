package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bookshelf/internal/booktypes"
	"bookshelf/internal/covers"
	"bookshelf/internal/logging"

	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath names a config file when no explicit path is given.
const EnvConfigPath = "BOOKSHELF_CONFIG"

// CoverConfig controls cover rendering.
type CoverConfig struct {
	MaxDimension int `toml:"max_dimension"`
	Quality      int `toml:"quality"`
}

// Config holds all application configuration
type Config struct {
	LibraryDir      string      `toml:"library_dir"`
	Workers         int         `toml:"workers"`
	Listen          string      `toml:"listen"`
	LogLevel        string      `toml:"log_level"`
	LogHealthChecks bool        `toml:"log_health_checks"`
	MetricsFile     string      `toml:"metrics_file"`
	Extensions      []string    `toml:"extensions"`
	Covers          CoverConfig `toml:"covers"`

	// Source is the config file that was read, empty when none was.
	Source string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LibraryDir: ".",
		Listen:     "127.0.0.1:8080",
		LogLevel:   "info",
		Extensions: []string{".epub"},
		Covers: CoverConfig{
			MaxDimension: covers.DefaultMaxDimension,
			Quality:      covers.DefaultQuality,
		},
	}
}

// DefaultConfigPath returns ~/.config/bookshelf/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bookshelf", "config.toml"), nil
}

// LoadConfig builds the configuration from defaults, the config file and
// the environment, then validates it. An explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		if err := cfg.decodeFile(resolved); err != nil {
			return nil, err
		}
		cfg.Source = resolved
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}

	if explicit {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		logging.Debug("No default config path: %v", err)
		return "", nil
	}
	info, err := os.Stat(defaultPath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", nil
	}
	return defaultPath, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LibraryDir = getEnv("BOOKSHELF_LIBRARY_DIR", c.LibraryDir)
	c.Workers = getEnvInt("BOOKSHELF_WORKERS", c.Workers)
	c.Listen = getEnv("BOOKSHELF_LISTEN", c.Listen)
	c.Covers.MaxDimension = getEnvInt("BOOKSHELF_COVER_MAX_DIMENSION", c.Covers.MaxDimension)
	c.Covers.Quality = getEnvInt("BOOKSHELF_COVER_QUALITY", c.Covers.Quality)
	c.MetricsFile = getEnv("BOOKSHELF_METRICS_FILE", c.MetricsFile)
	c.LogLevel = getEnv("BOOKSHELF_LOG_LEVEL", c.LogLevel)
	c.LogHealthChecks = getEnvBool("BOOKSHELF_LOG_HEALTH_CHECKS", c.LogHealthChecks)
}

func (c *Config) normalize() error {
	c.LibraryDir = strings.TrimSpace(c.LibraryDir)
	if c.LibraryDir == "" {
		return errors.New("library_dir must not be empty")
	}

	abs, err := filepath.Abs(c.LibraryDir)
	if err != nil {
		return fmt.Errorf("failed to resolve library directory path: %w", err)
	}
	c.LibraryDir = abs

	if c.MetricsFile != "" {
		if c.MetricsFile, err = filepath.Abs(c.MetricsFile); err != nil {
			return fmt.Errorf("failed to resolve metrics file path: %w", err)
		}
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Covers.MaxDimension < 0 {
		return fmt.Errorf("covers.max_dimension must be >= 0, got %d", c.Covers.MaxDimension)
	}
	if c.Covers.Quality < 1 || c.Covers.Quality > 100 {
		return fmt.Errorf("covers.quality must be between 1 and 100, got %d", c.Covers.Quality)
	}
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen must not be empty")
	}
	if len(c.Extensions) == 0 {
		return errors.New("extensions must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// ExtensionSet returns the configured extensions as a lookup set.
func (c *Config) ExtensionSet() map[string]bool {
	return booktypes.ExtensionSet(c.Extensions)
}

// CoverOptions returns the cover rendering options.
func (c *Config) CoverOptions() covers.Options {
	return covers.Options{
		MaxDimension: c.Covers.MaxDimension,
		Quality:      c.Covers.Quality,
	}
}
