// Package config provides configuration types and defaults for tuicore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/tuicore/internal/log"
)

// BreakpointsConfig holds the width thresholds (in cells) that classify the
// viewport into the "sm", "md", "lg" and "xl" breakpoints.
type BreakpointsConfig struct {
	// SmMax is the maximum viewport width classified as "small".
	SmMax int `mapstructure:"sm_max" yaml:"sm_max"`
	// MdMax is the maximum viewport width classified as "medium".
	MdMax int `mapstructure:"md_max" yaml:"md_max"`
	// LgMax is the maximum viewport width classified as "large"; wider
	// viewports are classified as "xl".
	LgMax int `mapstructure:"lg_max" yaml:"lg_max"`
}

// DrawlistValidateConfig controls the drawlist builder's parameter
// validation and buffer reuse behavior.
type DrawlistValidateConfig struct {
	// Params enables sanity checking of opcode parameters (negative
	// fill_rect extents, oversized draw_text_slice payloads, draw_text_run
	// calls with no segments) before they are appended to the drawlist.
	// Clip push/pop balance is checked whether or not Params is set.
	Params bool `mapstructure:"params" yaml:"params"`

	// ReuseOutputBuffer lets the drawlist builder reuse its backing byte
	// slice across turns instead of allocating a fresh one each frame.
	ReuseOutputBuffer bool `mapstructure:"reuse_output_buffer" yaml:"reuse_output_buffer"`

	// EncodedStringCacheCap enables the builder's interning cache of
	// encoded string payloads when greater than 0; 0 disables the cache.
	// The value is not used as a limit on the number of cached entries.
	EncodedStringCacheCap int `mapstructure:"encoded_string_cache_cap" yaml:"encoded_string_cache_cap"`
}

// TracingConfig controls the turn tracer.
type TracingConfig struct {
	// Enabled controls whether turn/commit/layout/render spans are emitted.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Exporter selects the span export backend.
	// Options: "none", "stdout", "otlp"
	Exporter string `mapstructure:"exporter" yaml:"exporter"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`

	// SampleRate controls span sampling (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`

	// StorePath, when non-empty, additionally persists a compact per-turn
	// trace row to the SQLite tracestore at this path for golden-trace
	// regression comparisons and offline `trace replay`.
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
}

// Config holds all configuration options for the tuicore runtime.
type Config struct {
	// FPSCap is the configured frame-rate cap; 0 means uncapped. It is
	// validated, checked against the backend's advertised cap at start, and
	// converted to an interval by TurnBudget. The scheduler does not
	// throttle turns or renders by it.
	FPSCap int `mapstructure:"fps_cap"`

	// MaxEventBytes bounds the size of a single incoming event envelope
	// the parser will decode before rejecting it as PROTOCOL_ERROR.
	MaxEventBytes int `mapstructure:"max_event_bytes"`

	// MaxDrawlistBytes bounds the size of a single outgoing drawlist frame.
	MaxDrawlistBytes int `mapstructure:"max_drawlist_bytes"`

	// MaxFramesInFlight bounds how many submitted-but-not-yet-acked frames
	// the app allows (plus one extra for interactive input). When the bound
	// is reached, turns still drain the update queue and commit, and frame
	// submission waits for a frameDone ack.
	MaxFramesInFlight int `mapstructure:"max_frames_in_flight"`

	// UseV2Cursor is loaded, defaulted and written to the config file; no
	// runtime code reads it, so it has no effect on cursor emission.
	UseV2Cursor bool `mapstructure:"use_v2_cursor"`

	// DrawlistValidate controls drawlist builder validation/reuse knobs.
	DrawlistValidate DrawlistValidateConfig `mapstructure:"drawlist_validate"`

	// RootPadding is the number of cells reserved on every edge of the
	// root instance's layout rect before the view function's content is
	// measured.
	RootPadding int `mapstructure:"root_padding"`

	// Breakpoints configures the responsive width thresholds.
	Breakpoints BreakpointsConfig `mapstructure:"breakpoints"`

	// Tracing configures the turn tracer.
	Tracing TracingConfig `mapstructure:"tracing"`

	// OnRender is an inspector hook taking the encoded drawlist byte count.
	// The app pipeline does not call it.
	OnRender func(frameBytes int) `mapstructure:"-" yaml:"-"`

	// OnLayout is an inspector hook taking the number of rects the layout
	// engine recomputed. The app pipeline does not call it.
	OnLayout func(rectsComputed int) `mapstructure:"-" yaml:"-"`
}

// DefaultBreakpoints returns the default responsive width thresholds.
func DefaultBreakpoints() BreakpointsConfig {
	return BreakpointsConfig{
		SmMax: 79,
		MdMax: 119,
		LgMax: 239,
	}
}

// DefaultDrawlistValidate returns the default drawlist validation config.
func DefaultDrawlistValidate() DrawlistValidateConfig {
	return DrawlistValidateConfig{
		Params:                true,
		ReuseOutputBuffer:     true,
		EncodedStringCacheCap: 4096,
	}
}

// DefaultTracing returns the default tracing config.
func DefaultTracing() TracingConfig {
	return TracingConfig{
		Enabled:      false,
		Exporter:     "stdout",
		OTLPEndpoint: "localhost:4317",
		SampleRate:   1.0,
		StorePath:    "",
	}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		FPSCap:            60,
		MaxEventBytes:     64 * 1024,
		MaxDrawlistBytes:  4 * 1024 * 1024,
		MaxFramesInFlight: 2,
		UseV2Cursor:       true,
		DrawlistValidate:  DefaultDrawlistValidate(),
		RootPadding:       0,
		Breakpoints:       DefaultBreakpoints(),
		Tracing:           DefaultTracing(),
	}
}

// DefaultTraceStorePath returns the default path for the turn-trace SQLite
// store. Returns ~/.config/tuicore/trace.db or empty string if the home
// directory is unavailable.
func DefaultTraceStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tuicore", "trace.db")
}

// ValidateBreakpoints checks that breakpoint thresholds are monotonically
// increasing and positive.
func ValidateBreakpoints(b BreakpointsConfig) error {
	if b.SmMax <= 0 {
		return fmt.Errorf("breakpoints.sm_max must be positive, got %d", b.SmMax)
	}
	if b.MdMax <= b.SmMax {
		return fmt.Errorf("breakpoints.md_max (%d) must be greater than sm_max (%d)", b.MdMax, b.SmMax)
	}
	if b.LgMax <= b.MdMax {
		return fmt.Errorf("breakpoints.lg_max (%d) must be greater than md_max (%d)", b.LgMax, b.MdMax)
	}
	return nil
}

// ValidateDrawlistValidate checks the drawlist validation config.
func ValidateDrawlistValidate(d DrawlistValidateConfig) error {
	if d.EncodedStringCacheCap < 0 {
		return fmt.Errorf("drawlist_validate.encoded_string_cache_cap must be >= 0, got %d", d.EncodedStringCacheCap)
	}
	return nil
}

// ValidateTracing checks the tracing config.
func ValidateTracing(t TracingConfig) error {
	switch t.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if t.Enabled && t.Exporter == "otlp" && t.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

// Validate checks the full configuration for errors. Returns nil if every
// field is within its documented range.
func Validate(c Config) error {
	if c.FPSCap < 0 {
		return fmt.Errorf("fps_cap must be >= 0, got %d", c.FPSCap)
	}
	if c.MaxEventBytes <= 0 {
		return fmt.Errorf("max_event_bytes must be positive, got %d", c.MaxEventBytes)
	}
	if c.MaxDrawlistBytes <= 0 {
		return fmt.Errorf("max_drawlist_bytes must be positive, got %d", c.MaxDrawlistBytes)
	}
	if c.MaxFramesInFlight <= 0 {
		return fmt.Errorf("max_frames_in_flight must be positive, got %d", c.MaxFramesInFlight)
	}
	if c.RootPadding < 0 {
		return fmt.Errorf("root_padding must be >= 0, got %d", c.RootPadding)
	}
	if err := ValidateBreakpoints(c.Breakpoints); err != nil {
		return err
	}
	if err := ValidateDrawlistValidate(c.DrawlistValidate); err != nil {
		return err
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	return nil
}

// TurnBudget returns the minimum duration between committed turns implied
// by FPSCap. A zero FPSCap returns 0 (uncapped).
func (c Config) TurnBudget() time.Duration {
	if c.FPSCap <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.FPSCap)
}

// DefaultConfigTemplate returns the default config as a YAML string with
// comments, as written by WriteDefaultConfig.
func DefaultConfigTemplate() string {
	return `# tuicore runtime configuration

# Frame-rate cap, checked against the backend's capabilities. 0 = uncapped.
fps_cap: 60

# Size limits enforced by the event parser and drawlist builder.
max_event_bytes: 65536
max_drawlist_bytes: 4194304

# How many submitted-but-unacked frames are allowed in flight before frame
# submission waits for an ack.
max_frames_in_flight: 2

# Loaded into the config; not read by the runtime.
use_v2_cursor: true

drawlist_validate:
  params: true
  reuse_output_buffer: true
  encoded_string_cache_cap: 4096

# Cells of padding reserved on every edge of the root instance.
root_padding: 0

# Responsive width thresholds, in cells.
breakpoints:
  sm_max: 79
  md_max: 119
  lg_max: 239

# Turn tracer (otel spans + optional SQLite persistence for trace replay).
tracing:
  enabled: false
  exporter: stdout   # none, stdout, or otlp
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  # store_path: ~/.config/tuicore/trace.db
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}
