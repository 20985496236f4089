// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the compositor configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Seat      SeatConfig      `mapstructure:"seat"`
	Input     InputConfig     `mapstructure:"input"`
	Outputs   []OutputConfig  `mapstructure:"outputs"`
	Barriers  []BarrierConfig `mapstructure:"barriers"`
	Trace     TraceConfig     `mapstructure:"trace"`
	Emergency EmergencyConfig `mapstructure:"emergency"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains Wayland socket settings
type ServerConfig struct {
	SocketName      string `mapstructure:"socket_name"`       // Name under $XDG_RUNTIME_DIR
	FrameIntervalMs int    `mapstructure:"frame_interval_ms"` // Frame clock period
}

// SeatConfig contains seat identity and initial pointer placement
type SeatConfig struct {
	Name     string `mapstructure:"name"`
	PointerX int    `mapstructure:"pointer_x"` // Initial pointer position
	PointerY int    `mapstructure:"pointer_y"`
}

// InputConfig contains translator settings
type InputConfig struct {
	RepeatEnabled    bool     `mapstructure:"repeat_enabled"`
	RepeatDelayMs    int      `mapstructure:"repeat_delay_ms"`
	RepeatIntervalMs int      `mapstructure:"repeat_interval_ms"`
	ScrollStep       float64  `mapstructure:"scroll_step"`  // Native units per discrete step
	Acceleration     float64  `mapstructure:"acceleration"` // Relative motion multiplier
	DeviceGlob       string   `mapstructure:"device_glob"`
	GrabDevices      bool     `mapstructure:"grab_devices"` // EVIOCGRAB opened devices
	IgnoreDevices    []string `mapstructure:"ignore_devices"`
}

// OutputConfig describes one monitor in layout coordinates
type OutputConfig struct {
	Name   string `mapstructure:"name"`
	X      int    `mapstructure:"x"`
	Y      int    `mapstructure:"y"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// BarrierConfig describes a horizontal or vertical pointer barrier
type BarrierConfig struct {
	X1 int `mapstructure:"x1"`
	Y1 int `mapstructure:"y1"`
	X2 int `mapstructure:"x2"`
	Y2 int `mapstructure:"y2"`
}

// TraceConfig contains the event trace socket settings
type TraceConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SocketPath string `mapstructure:"socket_path"`
}

// EmergencyConfig controls the escape hatches that drop compositor grabs
type EmergencyConfig struct {
	TriggerFile    string `mapstructure:"trigger_file"`     // Releasing when this file appears
	GrabTimeoutSec int    `mapstructure:"grab_timeout_sec"` // Idle modal or popup grab limit, 0 disables
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Server: ServerConfig{
			SocketName:      "wayland-1",
			FrameIntervalMs: 16,
		},
		Seat: SeatConfig{
			Name:     "seat0",
			PointerX: 16,
			PointerY: 16,
		},
		Input: InputConfig{
			RepeatEnabled:    true,
			RepeatDelayMs:    250,
			RepeatIntervalMs: 33,
			ScrollStep:       10.0,
			Acceleration:     1.0,
			DeviceGlob:       "/dev/input/event*",
			GrabDevices:      false,
			IgnoreDevices:    []string{},
		},
		Outputs: []OutputConfig{
			{Name: "virtual-1", X: 0, Y: 0, Width: 1920, Height: 1080},
		},
		Barriers: []BarrierConfig{},
		Trace: TraceConfig{
			Enabled:    true,
			SocketPath: "",
		},
		Emergency: EmergencyConfig{
			TriggerFile:    "/tmp/waycore-release",
			GrabTimeoutSec: 30,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config
	mu  sync.RWMutex

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waycore")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			viper.AddConfigPath(filepath.Join(xdg, "waycore"))
		}
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "waycore"))
		}
		viper.AddConfigPath("/etc/waycore")
		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("server.socket_name", DefaultConfig.Server.SocketName)
	viper.SetDefault("server.frame_interval_ms", DefaultConfig.Server.FrameIntervalMs)

	viper.SetDefault("seat.name", DefaultConfig.Seat.Name)
	viper.SetDefault("seat.pointer_x", DefaultConfig.Seat.PointerX)
	viper.SetDefault("seat.pointer_y", DefaultConfig.Seat.PointerY)

	viper.SetDefault("input.repeat_enabled", DefaultConfig.Input.RepeatEnabled)
	viper.SetDefault("input.repeat_delay_ms", DefaultConfig.Input.RepeatDelayMs)
	viper.SetDefault("input.repeat_interval_ms", DefaultConfig.Input.RepeatIntervalMs)
	viper.SetDefault("input.scroll_step", DefaultConfig.Input.ScrollStep)
	viper.SetDefault("input.acceleration", DefaultConfig.Input.Acceleration)
	viper.SetDefault("input.device_glob", DefaultConfig.Input.DeviceGlob)
	viper.SetDefault("input.grab_devices", DefaultConfig.Input.GrabDevices)
	viper.SetDefault("input.ignore_devices", DefaultConfig.Input.IgnoreDevices)

	viper.SetDefault("outputs", DefaultConfig.Outputs)
	viper.SetDefault("barriers", DefaultConfig.Barriers)

	viper.SetDefault("trace.enabled", DefaultConfig.Trace.Enabled)
	viper.SetDefault("trace.socket_path", DefaultConfig.Trace.SocketPath)

	viper.SetDefault("emergency.trigger_file", DefaultConfig.Emergency.TriggerFile)
	viper.SetDefault("emergency.grab_timeout_sec", DefaultConfig.Emergency.GrabTimeoutSec)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		// An explicit path that does not exist yet is created by Save.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return reload()
}

func reload() error {
	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// Validate rejects values the translator cannot work with
func (c *Config) Validate() error {
	if c.Input.RepeatDelayMs <= 0 || c.Input.RepeatIntervalMs <= 0 {
		return fmt.Errorf("%w: repeat delay and interval must be positive", ErrInvalidConfig)
	}
	if c.Input.ScrollStep <= 0 {
		return fmt.Errorf("%w: scroll_step must be positive", ErrInvalidConfig)
	}
	if c.Emergency.GrabTimeoutSec < 0 {
		return fmt.Errorf("%w: grab_timeout_sec cannot be negative", ErrInvalidConfig)
	}
	for _, o := range c.Outputs {
		if o.Width <= 0 || o.Height <= 0 {
			return fmt.Errorf("%w: output %q has empty geometry", ErrInvalidConfig, o.Name)
		}
	}
	for _, b := range c.Barriers {
		if b.X1 != b.X2 && b.Y1 != b.Y2 {
			return fmt.Errorf("%w: barrier (%d,%d)-(%d,%d) must be horizontal or vertical",
				ErrInvalidConfig, b.X1, b.Y1, b.X2, b.Y2)
		}
	}
	return nil
}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Watch re-reads the file on change and hands the new config to fn.
// Invalid edits are reported through onError and the previous config stays active.
func Watch(fn func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := reload(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		fn(Get())
	})
	viper.WatchConfig()
}

// Get returns the current configuration
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	mu.Lock()
	cfg = c
	mu.Unlock()
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "waycore", "waycore.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/waycore/waycore.toml"
	}

	return filepath.Join(home, ".config", "waycore", "waycore.toml")
}

// UpdateInput replaces the input section and persists it
func UpdateInput(in InputConfig) error {
	viper.Set("input", in)
	mu.Lock()
	if cfg != nil {
		cfg.Input = in
	}
	mu.Unlock()
	return Save()
}

// TraceSocketPath resolves the trace socket, defaulting into $XDG_RUNTIME_DIR
func (c *Config) TraceSocketPath() string {
	if c.Trace.SocketPath != "" {
		return c.Trace.SocketPath
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "waycore-"+c.Server.SocketName+".trace")
}
