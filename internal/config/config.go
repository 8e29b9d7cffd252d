// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Tabs    TabsConfig    `mapstructure:"tabs" yaml:"tabs"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how a controllable browser is acquired and kept.
type BrowserConfig struct {
	// DebugPort is the CDP remote debugging port, both for probing an
	// externally running browser and for launching our own.
	DebugPort int `mapstructure:"debug_port" yaml:"debug_port"`
	// Persistent keeps a launched browser running across CloseBrowser calls
	// unless the close is forced.
	Persistent bool `mapstructure:"persistent" yaml:"persistent"`
	Headless   bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath overrides the Chrome/Chromium binary location. Empty means
	// chromedp's default lookup.
	ExecPath    string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args        []string `mapstructure:"args" yaml:"args"`
	// AttachTimeout bounds the debug-port HTTP probe.
	AttachTimeout time.Duration `mapstructure:"attach_timeout" yaml:"attach_timeout"`
	// LivenessTimeout bounds the trivial-evaluate liveness check.
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout" yaml:"liveness_timeout"`
}

// TabStrategy selects the new-tab-vs-reuse policy.
type TabStrategy string

const (
	StrategyAlwaysReuse TabStrategy = "always_reuse"
	StrategySmart       TabStrategy = "smart"
	StrategyAlwaysNew   TabStrategy = "always_new"
)

// TabsConfig controls per-session tab management.
type TabsConfig struct {
	Strategy TabStrategy `mapstructure:"strategy" yaml:"strategy"`
	// WorkspaceDomains lists hosts treated as heavy stateful workspaces.
	// Switching between two distinct entries isolates into a new tab under
	// the smart strategy.
	WorkspaceDomains  []string      `mapstructure:"workspace_domains" yaml:"workspace_domains"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Should not happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "helmsman")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Browser --
	v.SetDefault("browser.debug_port", 9222)
	v.SetDefault("browser.persistent", false)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.attach_timeout", "1s")
	v.SetDefault("browser.liveness_timeout", "2s")

	// -- Tabs --
	v.SetDefault("tabs.strategy", string(StrategySmart))
	v.SetDefault("tabs.workspace_domains", []string{
		"mail.google.com",
		"docs.google.com",
		"drive.google.com",
		"calendar.google.com",
		"app.slack.com",
		"www.notion.so",
		"www.figma.com",
		"github.com",
		"linear.app",
	})
	v.SetDefault("tabs.navigation_timeout", "30s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.DebugPort <= 0 || c.Browser.DebugPort > 65535 {
		return fmt.Errorf("browser.debug_port must be a valid TCP port, got %d", c.Browser.DebugPort)
	}
	if c.Browser.AttachTimeout <= 0 {
		return fmt.Errorf("browser.attach_timeout must be a positive duration")
	}
	if c.Browser.LivenessTimeout <= 0 {
		return fmt.Errorf("browser.liveness_timeout must be a positive duration")
	}
	switch c.Tabs.Strategy {
	case StrategyAlwaysReuse, StrategySmart, StrategyAlwaysNew:
	default:
		return fmt.Errorf("tabs.strategy must be one of always_reuse, smart, always_new; got %q", c.Tabs.Strategy)
	}
	if c.Tabs.NavigationTimeout <= 0 {
		return fmt.Errorf("tabs.navigation_timeout must be a positive duration")
	}
	return nil
}
