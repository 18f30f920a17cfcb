package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/larkvale/metamerge/internal/merge"
	"github.com/larkvale/metamerge/internal/source"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Merge    MergeConfig    `yaml:"merge"`
	Sources  SourcesConfig  `yaml:"sources"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	FilePath string `yaml:"file_path"`
}

// MergeConfig holds the merge policy settings.
type MergeConfig struct {
	// Sources is the ordered source list, or the single entry "auto"
	// to use every registered source.
	Sources []string `yaml:"sources"`

	// Primary is the source whose values win for common fields under
	// the split strategy. Empty means the last source in the list.
	Primary string `yaml:"primary"`

	// Strategy is one of "priority", "all", or "split".
	Strategy string `yaml:"strategy"`

	// Exclude lists field names never written to the library.
	Exclude []string `yaml:"exclude"`

	// MaxDistance is the auto-accept threshold in [0,1]. Absent means
	// every ambiguous match prompts.
	MaxDistance *float64 `yaml:"max_distance"`
}

// SourcesConfig holds per-source adapter settings.
type SourcesConfig struct {
	MusicBrainz SourceConfig `yaml:"musicbrainz"`
	Deezer      SourceConfig `yaml:"deezer"`
}

// SourceConfig holds settings for one HTTP source adapter.
type SourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: defaultDatabasePath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Merge: MergeConfig{
			Sources:  []string{"auto"},
			Strategy: string(merge.StrategyPriority),
		},
		Sources: SourcesConfig{
			MusicBrainz: SourceConfig{Enabled: true},
			Deezer:      SourceConfig{Enabled: true},
		},
	}
}

func defaultDatabasePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/metamerge/library.db"
	}
	return "metamerge.db"
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("MM_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MM_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MM_SOURCES"); v != "" {
		c.Merge.Sources = splitList(v)
	}
	if v := os.Getenv("MM_PRIMARY_SOURCE"); v != "" {
		c.Merge.Primary = v
	}
	if v := os.Getenv("MM_STRATEGY"); v != "" {
		c.Merge.Strategy = v
	}
	if v := os.Getenv("MM_MAX_DISTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Merge.MaxDistance = &f
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if len(c.Merge.Sources) == 0 {
		return fmt.Errorf("at least one source (or \"auto\") is required")
	}
	return nil
}

// MergeConfig converts the loaded merge settings into a validated
// merge.Config. Fatal configuration mistakes surface here, before any
// entity is processed.
func (c *Config) MergeConfig() (merge.Config, error) {
	names := make([]source.Name, 0, len(c.Merge.Sources))
	for _, s := range c.Merge.Sources {
		names = append(names, source.Name(s))
	}

	mc := merge.Config{
		Sources:     names,
		Primary:     source.Name(c.Merge.Primary),
		Strategy:    merge.Strategy(c.Merge.Strategy),
		Exclude:     c.Merge.Exclude,
		MaxDistance: c.Merge.MaxDistance,
	}

	// "auto" is expanded against the registry later; skip the source
	// list checks until then.
	if len(mc.Sources) == 1 && mc.Sources[0] == "auto" {
		if !merge.ValidStrategy(mc.Strategy) {
			return merge.Config{}, &merge.ConfigError{Reason: "unknown merge strategy " + string(mc.Strategy)}
		}
		return mc, nil
	}

	if err := mc.Validate(); err != nil {
		return merge.Config{}, err
	}
	return mc, nil
}
