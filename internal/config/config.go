package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "ledgerval.yaml"

// Book formats.
const (
	FormatYAML   = "yaml"
	FormatSQLite = "sqlite"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvBook         = "LEDGERVAL_BOOK"
	EnvFormat       = "LEDGERVAL_FORMAT"
	EnvBaseCurrency = "LEDGERVAL_BASE_CURRENCY"
	EnvLogLevel     = "LEDGERVAL_LOG_LEVEL"
)

// Config represents the top-level ledgerval.yaml configuration.
type Config struct {
	Book      BookConfig      `yaml:"book"`
	Currency  CurrencyConfig  `yaml:"currency"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
	Git       GitConfig       `yaml:"git"`
}

// BookConfig locates the book.
type BookConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "yaml" or "sqlite"
}

// CurrencyConfig controls base currency selection.
type CurrencyConfig struct {
	Fallback string `yaml:"fallback"`
	Base     string `yaml:"base"` // overrides the account heuristic when set
}

// ReconcileConfig controls payment matching.
type ReconcileConfig struct {
	Tolerance string `yaml:"tolerance"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// GitConfig controls git integration for YAML books.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a ledgerval.yaml file from disk. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Book: BookConfig{
			Path:   "book.yaml",
			Format: FormatYAML,
		},
		Currency: CurrencyConfig{
			Fallback: "EUR",
		},
		Reconcile: ReconcileConfig{
			Tolerance: "0.005",
		},
		Log: LogConfig{
			Level: "info",
		},
		Git: GitConfig{
			AuthorName:  "ledgerval",
			AuthorEmail: "ledgerval@localhost",
		},
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Book.Format {
	case FormatYAML, FormatSQLite:
	default:
		return fmt.Errorf("book format must be %q or %q, got %q", FormatYAML, FormatSQLite, c.Book.Format)
	}
	if c.Currency.Fallback == "" {
		return fmt.Errorf("currency fallback must not be empty")
	}
	return nil
}

// ApplyEnv loads envFile when it exists and overrides fields from the
// environment. Variables already set in the process win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvBook); v != "" {
		c.Book.Path = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		c.Book.Format = v
	}
	if v := os.Getenv(EnvBaseCurrency); v != "" {
		c.Currency.Base = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return c.Validate()
}
