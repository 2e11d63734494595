package convert

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mdforge/observability"
)

// Config configures a Pipeline.
type Config struct {
	// MaxFileSize bounds ConvertFile's input (default: 100 MB). Convert
	// itself has no size limit — callers constrain input externally.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// RSCMaxScanBytes is set to 200,000 by defaults() when unset. The HTML
	// handler does not read it: its Tier 1 scan for React Server Components
	// element markers past the content anchor always uses the fixed
	// rscScanLimit of 200,000 bytes.
	RSCMaxScanBytes int `json:"rsc_max_scan_bytes" yaml:"rsc_max_scan_bytes"`

	// RemoveNoiseWithBluemonday runs a UGC-safe sanitize pass before every
	// HTML-to-Markdown conversion (HTML Tiers 2 and 3, EPUB chapters,
	// Wikipedia), to catch script/style/event-handler fragments the
	// fragment matcher missed. It is false in a zero Config;
	// LoadConfigFile sets it to true unless the file sets it.
	RemoveNoiseWithBluemonday bool `json:"remove_noise_with_bluemonday" yaml:"remove_noise_with_bluemonday"`

	// Logger is passed to the Logging and Recovery middleware that
	// RegisterConnectivity installs; the format handlers do not log.
	// Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Metrics, if set, receives call-duration and error counters for
	// every RegisterConnectivity-routed call. Nil disables metrics
	// recording (the default).
	Metrics *observability.MetricsManager `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.RSCMaxScanBytes <= 0 {
		c.RSCMaxScanBytes = 200_000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadConfigFile reads a YAML config file. RemoveNoiseWithBluemonday
// defaults to true unless the file explicitly sets it.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("convert: read config %s: %w", path, err)
	}
	cfg := &Config{RemoveNoiseWithBluemonday: true}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("convert: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}
