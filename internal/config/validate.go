package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// Validate checks the configuration for invalid values, aggregating every
// violation it finds rather than stopping at the first.
func Validate(cfg *Config) error {
	var errs []string

	if len(cfg.Engine.EntryURLs) == 0 {
		errs = append(errs, "engine.entry_urls must contain at least one URL")
	}
	for _, raw := range cfg.Engine.EntryURLs {
		if err := ValidateURL(raw); err != nil {
			errs = append(errs, fmt.Sprintf("engine.entry_urls: %v", err))
		}
	}
	if cfg.Engine.MaxConcurrentTabs < 0 {
		errs = append(errs, fmt.Sprintf("engine.max_concurrent_tabs must be >= 0, got %d", cfg.Engine.MaxConcurrentTabs))
	}
	if cfg.Engine.PageTimeout <= 0 {
		errs = append(errs, "engine.page_timeout must be > 0")
	}
	if cfg.Engine.PollInterval <= 0 {
		errs = append(errs, "engine.poll_interval must be > 0")
	}
	if cfg.Engine.DetectTimeout <= 0 {
		errs = append(errs, "engine.detect_timeout must be > 0")
	}
	if cfg.Engine.OutputDir == "" {
		errs = append(errs, "engine.output_dir must not be empty")
	}

	if cfg.Requests.SlowRequestThreshold < 0 {
		errs = append(errs, "requests.slow_request_threshold must be >= 0")
	}
	if cfg.Requests.FailedRequestThreshold < 0 {
		errs = append(errs, "requests.failed_request_threshold must be >= 0")
	}
	for _, pattern := range cfg.Requests.BlockPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Sprintf("requests.block_patterns: invalid regex %q: %v", pattern, err))
		}
	}

	if cfg.Links.Selector == "" {
		errs = append(errs, "links.selector must not be empty")
	}
	if cfg.Links.MaxDepth < 0 {
		errs = append(errs, "links.max_depth must be >= 0")
	}
	for _, pattern := range cfg.Links.URLPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Sprintf("links.url_patterns: invalid regex %q: %v", pattern, err))
		}
	}

	validSinkTypes := map[string]bool{"null": true, "file": true, "mongo": true}
	if !validSinkTypes[cfg.Sink.Type] {
		errs = append(errs, fmt.Sprintf("sink.type %q is not supported (valid: null, file, mongo)", cfg.Sink.Type))
	}
	if cfg.Sink.Type == "mongo" && cfg.Sink.DSN == "" {
		errs = append(errs, "sink.dsn is required when sink.type is mongo")
	}
	if cfg.Sink.Type == "file" && cfg.Sink.Path == "" {
		errs = append(errs, "sink.path is required when sink.type is file")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level))
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Sprintf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format))
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port))
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// ValidationError aggregates every configuration violation Validate found.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%d configuration error(s):", len(e.Errors))
	for _, s := range e.Errors {
		msg += "\n  - " + s
	}
	return msg
}

// ValidateURL checks if a URL string is valid as an entry point.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q scheme must be http or https, got %q", rawURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q must have a host", rawURL)
	}
	return nil
}
