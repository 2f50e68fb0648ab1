package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults. CLI
// flags are not read here; cmd/pageforge applies them to the result.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("PAGEFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pageforge")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".pageforge"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.entry_urls", cfg.Engine.EntryURLs)
	v.SetDefault("engine.max_concurrent_tabs", cfg.Engine.MaxConcurrentTabs)
	v.SetDefault("engine.page_timeout", cfg.Engine.PageTimeout)
	v.SetDefault("engine.poll_interval", cfg.Engine.PollInterval)
	v.SetDefault("engine.detect_timeout", cfg.Engine.DetectTimeout)
	v.SetDefault("engine.output_dir", cfg.Engine.OutputDir)
	v.SetDefault("engine.upgrade_https", cfg.Engine.UpgradeHTTPS)
	v.SetDefault("engine.retry_failed_once", cfg.Engine.RetryFailedOnce)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.proxy_url", cfg.Browser.ProxyURL)
	v.SetDefault("browser.user_data", cfg.Browser.UserData)
	v.SetDefault("browser.binary", cfg.Browser.Binary)

	v.SetDefault("requests.block_patterns", cfg.Requests.BlockPatterns)
	v.SetDefault("requests.slow_request_threshold", cfg.Requests.SlowRequestThreshold)
	v.SetDefault("requests.failed_request_threshold", cfg.Requests.FailedRequestThreshold)

	v.SetDefault("links.selector", cfg.Links.Selector)
	v.SetDefault("links.url_patterns", cfg.Links.URLPatterns)
	v.SetDefault("links.max_depth", cfg.Links.MaxDepth)

	v.SetDefault("content.clean_selector", cfg.Content.CleanSelector)
	v.SetDefault("content.content_selector", cfg.Content.ContentSelector)

	v.SetDefault("sink.type", cfg.Sink.Type)
	v.SetDefault("sink.dsn", cfg.Sink.DSN)
	v.SetDefault("sink.db", cfg.Sink.DB)
	v.SetDefault("sink.path", cfg.Sink.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
