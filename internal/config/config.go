package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for pageforge, covering every item in
// the engine's configuration surface plus ambient logging/metrics/sink
// sections.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"   yaml:"engine"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Requests RequestsConfig `mapstructure:"requests" yaml:"requests"`
	Links    LinksConfig    `mapstructure:"links"    yaml:"links"`
	Content  ContentConfig  `mapstructure:"content"  yaml:"content"`
	Sink     SinkConfig     `mapstructure:"sink"     yaml:"sink"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// EngineConfig controls the core harvesting loop.
type EngineConfig struct {
	EntryURLs         []string      `mapstructure:"entry_urls"          yaml:"entry_urls"`
	MaxConcurrentTabs int           `mapstructure:"max_concurrent_tabs" yaml:"max_concurrent_tabs"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"        yaml:"page_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"       yaml:"poll_interval"`
	DetectTimeout     time.Duration `mapstructure:"detect_timeout"      yaml:"detect_timeout"`
	OutputDir         string        `mapstructure:"output_dir"          yaml:"output_dir"`
	UpgradeHTTPS      bool          `mapstructure:"upgrade_https"       yaml:"upgrade_https"`
	RetryFailedOnce   bool          `mapstructure:"retry_failed_once"   yaml:"retry_failed_once"`
}

// BrowserConfig controls the go-rod driver.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"   yaml:"headless"`
	Stealth   bool   `mapstructure:"stealth"    yaml:"stealth"`
	ProxyURL  string `mapstructure:"proxy_url"  yaml:"proxy_url"`
	UserData  string `mapstructure:"user_data"  yaml:"user_data"`
	Binary    string `mapstructure:"binary"     yaml:"binary"`
}

// RequestsConfig controls RequestMonitor (C4 priority 1).
type RequestsConfig struct {
	BlockPatterns           []string `mapstructure:"block_patterns"            yaml:"block_patterns"`
	SlowRequestThreshold    int      `mapstructure:"slow_request_threshold"    yaml:"slow_request_threshold"`
	FailedRequestThreshold  int      `mapstructure:"failed_request_threshold"  yaml:"failed_request_threshold"`
}

// LinksConfig controls LinksFinder (C4 priority 10).
type LinksConfig struct {
	Selector    string   `mapstructure:"selector"     yaml:"selector"`
	URLPatterns []string `mapstructure:"url_patterns" yaml:"url_patterns"`
	MaxDepth    int      `mapstructure:"max_depth"    yaml:"max_depth"`
}

// ContentConfig controls ElementCleaner and ContentFinder (C4 priority 20/30).
type ContentConfig struct {
	CleanSelector   string `mapstructure:"clean_selector"   yaml:"clean_selector"`
	ContentSelector string `mapstructure:"content_selector" yaml:"content_selector"`
}

// SinkConfig controls the optional lifecycle-event sink backend.
type SinkConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "null", "file", "mongo"
	DSN  string `mapstructure:"dsn"  yaml:"dsn"`
	DB   string `mapstructure:"db"   yaml:"db"`
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrentTabs: 4,
			PageTimeout:       30 * time.Second,
			PollInterval:      200 * time.Millisecond,
			DetectTimeout:     2 * time.Second,
			OutputDir:         "./output",
			UpgradeHTTPS:      true,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Requests: RequestsConfig{
			SlowRequestThreshold:   100,
			FailedRequestThreshold: 10,
		},
		Links: LinksConfig{
			Selector: "body",
			MaxDepth: 3,
		},
		Content: ContentConfig{
			CleanSelector:   "script, style, iframe, noscript",
			ContentSelector: "body",
		},
		Sink: SinkConfig{
			Type: "null",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
