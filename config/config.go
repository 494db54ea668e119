package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ARCHITECT_OLLAMA_HOST.
const EnvPrefix = "ARCHITECT"

// ServerConfig defines the HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// OllamaConfig defines the local model server.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

// RemoteConfig configures one metered backend.
type RemoteConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	DefaultModel string        `mapstructure:"default_model"`
	RPS          float64       `mapstructure:"rps"`
	Burst        int           `mapstructure:"burst"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RemotesConfig groups the remote backends.
type RemotesConfig struct {
	Gemini   RemoteConfig `mapstructure:"gemini"`
	OpenAI   RemoteConfig `mapstructure:"openai"`
	DeepSeek RemoteConfig `mapstructure:"deepseek"`
}

// ProviderConfig is the provider used when no per-user settings exist.
type ProviderConfig struct {
	Type   string `mapstructure:"type"`
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// AnalysisConfig defines the review parameters.
type AnalysisConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	StrictIntent    bool          `mapstructure:"strict_intent"`
	ScopeStrategy   string        `mapstructure:"scope_strategy"`
	CacheSize       int           `mapstructure:"cache_size"`
	MaxPromptLength int           `mapstructure:"max_prompt_length"`
	MaxFileReadSize int64         `mapstructure:"max_file_read_size"`
	DefaultLocale   string        `mapstructure:"default_locale"`
}

// ExplorerConfig defines which project folders the script finder skips.
type ExplorerConfig struct {
	IgnoreDirs     []string `mapstructure:"ignore_dirs"`
	IgnorePrefixes []string `mapstructure:"ignore_prefixes"`
	IgnoreGlobs    []string `mapstructure:"ignore_globs"`
}

// StorageConfig selects the persistence backend: sqlite, postgres or none.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LoggingConfig defines the logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Config is the top-level configuration struct.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Remote   RemotesConfig  `mapstructure:"remote"`
	Provider ProviderConfig `mapstructure:"provider"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig holds the loaded configuration.
var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origin", "*")

	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("ollama.model", "qwen2.5-coder:7b")

	v.SetDefault("remote.gemini.base_url", "")
	v.SetDefault("remote.gemini.default_model", "gemini-1.5-flash")
	v.SetDefault("remote.gemini.rps", 0.25)
	v.SetDefault("remote.gemini.burst", 1)
	v.SetDefault("remote.gemini.timeout", 60*time.Second)
	v.SetDefault("remote.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("remote.openai.default_model", "gpt-4o-mini")
	v.SetDefault("remote.openai.rps", 1.0)
	v.SetDefault("remote.openai.burst", 2)
	v.SetDefault("remote.openai.timeout", 60*time.Second)
	v.SetDefault("remote.deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("remote.deepseek.default_model", "deepseek-chat")
	v.SetDefault("remote.deepseek.rps", 1.0)
	v.SetDefault("remote.deepseek.burst", 2)
	v.SetDefault("remote.deepseek.timeout", 60*time.Second)

	v.SetDefault("provider.type", "ollama")
	v.SetDefault("provider.model", "")
	v.SetDefault("provider.api_key", "")

	v.SetDefault("analysis.request_timeout", 3*time.Minute)
	v.SetDefault("analysis.strict_intent", false)
	v.SetDefault("analysis.scope_strategy", "first_closer")
	v.SetDefault("analysis.cache_size", 256)
	v.SetDefault("analysis.max_prompt_length", 32000)
	v.SetDefault("analysis.max_file_read_size", 262144)
	v.SetDefault("analysis.default_locale", "en")

	v.SetDefault("explorer.ignore_dirs", []string{"Library", "Temp", "obj", "Logs", "Build", "Builds", "UserSettings", "node_modules"})
	v.SetDefault("explorer.ignore_prefixes", []string{".", "_"})
	v.SetDefault("explorer.ignore_globs", []string{"Assets/Plugins/**"})

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "architect.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// LoadConfig loads .env, then the YAML file at path (or ./config.yaml when
// path is empty and the file exists), then ARCHITECT_* environment overrides.
func LoadConfig(path string) error {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config file at %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("could not read config.yaml: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	AppConfig = &cfg
	return nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("storage.driver must be sqlite, postgres or none, got %q", c.Storage.Driver)
	}
	if c.Analysis.RequestTimeout <= 0 {
		return fmt.Errorf("analysis.request_timeout must be positive")
	}
	return nil
}
