package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"spendora/internal/log"
)

// EnvPrefix prefixes every environment override, e.g. SPENDORA_LLM_API_KEY.
const EnvPrefix = "SPENDORA"

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	LLM     LLMConfig     `mapstructure:"llm"`
	AMQP    AMQPConfig    `mapstructure:"amqp"`
	Sheets  SheetsConfig  `mapstructure:"sheets"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
}

type StorageConfig struct {
	// Backend is one of memory, file or sqlite.
	Backend string `mapstructure:"backend"`
	// Path is the data directory of the file and sqlite backends.
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxImageSide int           `mapstructure:"max_image_side"`
}

// AMQPConfig enables event publishing when URL is set.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	LedgerSheet     string `mapstructure:"ledger_sheet"`
	RemindersSheet  string `mapstructure:"reminders_sheet"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UIConfig struct {
	// Timezone is an IANA name or "Local".
	Timezone string `mapstructure:"timezone"`
}

var validBackends = []string{"memory", "file", "sqlite"}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".local", "share", "spendora")
	}
	return "data"
}

// Load reads defaults, an optional spendora.yaml and SPENDORA_* environment
// overrides, in increasing precedence. SPENDORA_CONFIG names an explicit
// config file. GEMINI_API_KEY is used when no API key is configured.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", defaultDataDir())
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("llm.max_image_side", 2048)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "spendora")
	v.SetDefault("amqp.queue", "spendora.events")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.ledger_sheet", "Ledger")
	v.SetDefault("sheets.reminders_sheet", "Tax Reminders")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.credentials_json", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("ui.timezone", "Local")

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("spendora")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "spendora"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return &c, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(validBackends, c.Storage.Backend) {
		errs = append(errs, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.Storage.Backend, validBackends))
	} else if c.Storage.Backend != "memory" && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, fmt.Sprintf("storage path cannot be empty when using %s backend", c.Storage.Backend))
	}

	if c.LLM.BaseURL != "" {
		if u, err := url.Parse(c.LLM.BaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid LLM base URL '%s': %v", c.LLM.BaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid LLM base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid LLM timeout %v: must not be negative", c.LLM.Timeout))
	}
	if c.LLM.MaxImageSide < 0 {
		errs = append(errs, fmt.Sprintf("invalid max image side %d: must not be negative", c.LLM.MaxImageSide))
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.Queue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.Sheets.SpreadsheetID != "" {
		if c.Sheets.LedgerSheet == "" || c.Sheets.RemindersSheet == "" {
			errs = append(errs, "ledger and reminders sheet names are required when a spreadsheet is configured")
		} else if c.Sheets.LedgerSheet == c.Sheets.RemindersSheet {
			errs = append(errs, "ledger and reminders sheets must differ")
		}
		if f := c.Sheets.CredentialsFile; f != "" {
			if _, err := os.Stat(f); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google credentials file does not exist: %s", f))
			}
		}
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.Log.Format))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.UI.Timezone, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Location resolves UI.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.UI.Timezone == "" || strings.EqualFold(c.UI.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.UI.Timezone)
}

// ErrMissingAPIKey is returned by RequireAPIKey when no model key is configured.
var ErrMissingAPIKey = errors.New("no LLM API key configured: set SPENDORA_LLM_API_KEY or GEMINI_API_KEY")

// RequireAPIKey checks the setting only model-backed commands need.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
