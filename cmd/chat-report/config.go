package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
	"github.com/theimaginaryfoundation/chatlens/analysis/provider"
)

const (
	configName = ".chatlens"
	configType = "yaml"
	envPrefix  = "CHATLENS"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Lexicon    LexiconConfig    `mapstructure:"lexicon"`
	Output     OutputConfig     `mapstructure:"output"`
	Batch      BatchConfig      `mapstructure:"batch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ClassifierConfig struct {
	Provider            string        `mapstructure:"provider"`
	Model               string        `mapstructure:"model"`
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	MaxTokensPerMessage int           `mapstructure:"max_tokens_per_message"`
	BatchDelay          time.Duration `mapstructure:"batch_delay"`
}

type LexiconConfig struct {
	Path string `mapstructure:"path"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	Pretty bool   `mapstructure:"pretty"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

const (
	providerNone   = "none"
	providerOpenAI = "openai"

	formatJSON     = "json"
	formatTable    = "table"
	formatMarkdown = "markdown"
)

func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, error or disabled, got %q", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Classifier.Provider != providerNone && c.Classifier.Provider != providerOpenAI {
		return fmt.Errorf("classifier.provider must be none or openai, got %q", c.Classifier.Provider)
	}
	if c.Classifier.Provider == providerOpenAI && c.Classifier.Model == "" {
		return errors.New("missing classifier.model")
	}
	if c.Classifier.MaxTokensPerMessage < 0 {
		return errors.New("classifier.max_tokens_per_message must be >= 0")
	}
	if c.Classifier.BatchDelay < 0 {
		return errors.New("classifier.batch_delay must be >= 0")
	}
	switch c.Output.Format {
	case formatJSON, formatTable, formatMarkdown:
	default:
		return fmt.Errorf("output.format must be json, table or markdown, got %q", c.Output.Format)
	}
	if c.Batch.Concurrency < 0 {
		return errors.New("batch.concurrency must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Classifier: ClassifierConfig{
			Provider:            providerNone,
			Model:               provider.DefaultModel,
			MaxTokensPerMessage: provider.DefaultMaxTokensPerMessage,
			BatchDelay:          affection.DefaultBatchDelay,
		},
		Output: OutputConfig{Format: formatTable},
		Batch:  BatchConfig{Concurrency: 1},
	}
}

func applyDefaults(v *viper.Viper) {
	d := defaultConfig()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("classifier.provider", d.Classifier.Provider)
	v.SetDefault("classifier.model", d.Classifier.Model)
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.base_url", "")
	v.SetDefault("classifier.max_tokens_per_message", d.Classifier.MaxTokensPerMessage)
	v.SetDefault("classifier.batch_delay", d.Classifier.BatchDelay)
	v.SetDefault("lexicon.path", "")
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"provider":    "classifier.provider",
	"model":       "classifier.model",
	"lexicon":     "lexicon.path",
	"format":      "output.format",
	"pretty":      "output.pretty",
	"concurrency": "batch.concurrency",
}

// loadConfig layers defaults, the config file, CHATLENS_* env vars and the flags set on cmd.
// A missing config file is fine unless configPath names one explicitly.
func loadConfig(configPath string, cmd *cobra.Command) (Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if cmd != nil {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Classifier.APIKey == "" {
		cfg.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
