// Package cmd is the tuicore CLI entry point.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	viperlib "github.com/spf13/viper"

	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE any
	// Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	debugFlag bool

	viper = viperlib.New()
)

var rootCmd = &cobra.Command{
	Use:     "tuicore",
	Short:   "Core runtime for declarative terminal UIs",
	Long:    `tuicore drives the reconcile/layout/render turn loop behind a declarative terminal UI: pass it a view function and it owns the app loop, event routing, and drawing.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/tuicore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug mode with logging (also: TUICORE_DEBUG=1)")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("fps_cap", defaults.FPSCap)
	viper.SetDefault("max_event_bytes", defaults.MaxEventBytes)
	viper.SetDefault("max_drawlist_bytes", defaults.MaxDrawlistBytes)
	viper.SetDefault("max_frames_in_flight", defaults.MaxFramesInFlight)
	viper.SetDefault("use_v2_cursor", defaults.UseV2Cursor)
	viper.SetDefault("root_padding", defaults.RootPadding)
	viper.SetDefault("breakpoints.sm_max", defaults.Breakpoints.SmMax)
	viper.SetDefault("breakpoints.md_max", defaults.Breakpoints.MdMax)
	viper.SetDefault("breakpoints.lg_max", defaults.Breakpoints.LgMax)
	viper.SetDefault("drawlist_validate.params", defaults.DrawlistValidate.Params)
	viper.SetDefault("drawlist_validate.reuse_output_buffer", defaults.DrawlistValidate.ReuseOutputBuffer)
	viper.SetDefault("drawlist_validate.encoded_string_cache_cap", defaults.DrawlistValidate.EncodedStringCacheCap)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if _, err := os.Stat(".tuicore/config.yaml"); err == nil {
			viper.SetConfigFile(".tuicore/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "tuicore"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viperlib.ConfigFileNotFoundError
		if errors.As(err, &configNotFound) {
			defaultPath := ".tuicore/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
				log.Info(log.CatConfig, "config loaded", "path", defaultPath)
			}
		}
	} else {
		log.Info(log.CatConfig, "config loaded", "path", viper.ConfigFileUsed())
	}

	_ = viper.Unmarshal(&cfg)
}

// debugEnabled reports whether debug logging should be wired up, via flag
// or environment variable.
func debugEnabled() bool {
	return os.Getenv("TUICORE_DEBUG") != "" || debugFlag
}

func initDebugLogging(component string) (func(), error) {
	if !debugEnabled() {
		return func() {}, nil
	}
	logPath := os.Getenv("TUICORE_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.InitWithTeaLog(logPath, component)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "tuicore starting", "version", version, "debug", true, "log_path", logPath)
	return cleanup, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
