// Package config loads application configuration from config.yaml and
// TITANIC_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Match  MatchConfig  `yaml:"match" mapstructure:"match"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScrapeConfig configures the encyclopedia fetch stage.
type ScrapeConfig struct {
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	FirstClassPage  string `yaml:"first_class_page" mapstructure:"first_class_page"`
	SecondClassPage string `yaml:"second_class_page" mapstructure:"second_class_page"`
	ThirdClassPage  string `yaml:"third_class_page" mapstructure:"third_class_page"`

	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec
	MinDelayMS  int     `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMS  int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`

	// Limit caps the number of passenger pages fetched (0 = all).
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// ClassPages maps passenger class to its absolute listing URL.
func (s ScrapeConfig) ClassPages() map[int]string {
	return map[int]string{
		1: s.BaseURL + s.FirstClassPage,
		2: s.BaseURL + s.SecondClassPage,
		3: s.BaseURL + s.ThirdClassPage,
	}
}

// MinDelay returns the politeness delay lower bound.
func (s ScrapeConfig) MinDelay() time.Duration {
	return time.Duration(s.MinDelayMS) * time.Millisecond
}

// MaxDelay returns the politeness delay upper bound.
func (s ScrapeConfig) MaxDelay() time.Duration {
	return time.Duration(s.MaxDelayMS) * time.Millisecond
}

// ImportConfig locates the Kaggle input CSVs.
type ImportConfig struct {
	TrainPath string `yaml:"train_path" mapstructure:"train_path"`
	TestPath  string `yaml:"test_path" mapstructure:"test_path"`
}

// MatchConfig tunes the matching stage.
type MatchConfig struct {
	Threshold    float64 `yaml:"threshold" mapstructure:"threshold"`
	TiePolicy    string  `yaml:"tie_policy" mapstructure:"tie_policy"`
	GivenNameLen int     `yaml:"given_name_len" mapstructure:"given_name_len"`
	SurnameLen   int     `yaml:"surname_len" mapstructure:"surname_len"`
}

// ExportConfig locates the output files.
type ExportConfig struct {
	CSVPath  string `yaml:"csv_path" mapstructure:"csv_path"`
	XLSXPath string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TITANIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "titanic.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("scrape.base_url", "https://www.encyclopedia-titanica.org")
	v.SetDefault("scrape.first_class_page", "/titanic-first-class-passengers/")
	v.SetDefault("scrape.second_class_page", "/titanic-second-class-passengers/")
	v.SetDefault("scrape.third_class_page", "/titanic-third-class-passengers/")
	v.SetDefault("scrape.user_agent", "titanic-linkage/1.0 (research; contact via repository)")
	v.SetDefault("scrape.concurrency", 2)
	v.SetDefault("scrape.max_retries", 5)
	v.SetDefault("scrape.rate_limit", 1.0)
	v.SetDefault("scrape.min_delay_ms", 300)
	v.SetDefault("scrape.max_delay_ms", 1200)
	v.SetDefault("import.train_path", "data/train.csv")
	v.SetDefault("import.test_path", "data/test.csv")
	v.SetDefault("match.threshold", 80.0)
	v.SetDefault("match.tie_policy", "review")
	v.SetDefault("match.given_name_len", 4)
	v.SetDefault("match.surname_len", 7)
	v.SetDefault("export.csv_path", "out/reconciled.csv")
	v.SetDefault("export.xlsx_path", "out/reconciled.xlsx")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
