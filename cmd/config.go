package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/logger"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage waycore configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		logger.Info("Current Configuration:")
		logger.Infof("Config file: %s\n", config.GetConfigPath())

		logger.Info("[Server]")
		logger.Infof("  Socket: %s", cfg.Server.SocketName)
		logger.Infof("  Frame Interval: %d ms", cfg.Server.FrameIntervalMs)

		logger.Info("\n[Seat]")
		logger.Infof("  Name: %s", cfg.Seat.Name)
		logger.Infof("  Initial Pointer: %d,%d", cfg.Seat.PointerX, cfg.Seat.PointerY)

		logger.Info("\n[Input]")
		logger.Infof("  Key Repeat: %v (delay %d ms, interval %d ms)", cfg.Input.RepeatEnabled, cfg.Input.RepeatDelayMs, cfg.Input.RepeatIntervalMs)
		logger.Infof("  Scroll Step: %.2f", cfg.Input.ScrollStep)
		logger.Infof("  Acceleration: %.2f", cfg.Input.Acceleration)
		logger.Infof("  Devices: %s", cfg.Input.DeviceGlob)
		logger.Infof("  Grab Devices: %v", cfg.Input.GrabDevices)
		if len(cfg.Input.IgnoreDevices) > 0 {
			logger.Info("  Ignored:")
			for _, d := range cfg.Input.IgnoreDevices {
				logger.Infof("    - %s", d)
			}
		}

		logger.Info("\n[Outputs]")
		for _, o := range cfg.Outputs {
			logger.Infof("  %s: %dx%d+%d+%d", o.Name, o.Width, o.Height, o.X, o.Y)
		}
		if len(cfg.Barriers) > 0 {
			logger.Info("\n[Barriers]")
			for _, b := range cfg.Barriers {
				logger.Infof("  (%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
			}
		}

		logger.Info("\n[Trace]")
		logger.Infof("  Enabled: %v", cfg.Trace.Enabled)
		logger.Infof("  Socket: %s", cfg.TraceSocketPath())

		logger.Info("\n[Emergency]")
		logger.Infof("  Trigger File: %s", cfg.Emergency.TriggerFile)
		logger.Infof("  Grab Timeout: %d seconds", cfg.Emergency.GrabTimeoutSec)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			logger.Infof("Configuration file already exists at: %s", configPath)
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			if err := askBasics(); err != nil {
				return err
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		logger.Info("\nYou can now:")
		logger.Info("  - Edit the configuration file directly")
		logger.Info("  - Use 'waycore config ignore' to skip input devices")
		logger.Info("  - Use 'waycore config show' to view current settings")
		return nil
	},
}

// askBasics prompts for the settings people usually change first and
// stores the answers in viper for the following Save.
func askBasics() error {
	cfg := config.Get()
	socket := cfg.Server.SocketName
	delay := strconv.Itoa(cfg.Input.RepeatDelayMs)
	interval := strconv.Itoa(cfg.Input.RepeatIntervalMs)
	grab := cfg.Input.GrabDevices

	positive := func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("enter a positive number of milliseconds")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Socket name").
				Description("Created under $XDG_RUNTIME_DIR; clients connect with WAYLAND_DISPLAY set to it").
				Value(&socket),
			huh.NewInput().
				Title("Key repeat delay (ms)").
				Validate(positive).
				Value(&delay),
			huh.NewInput().
				Title("Key repeat interval (ms)").
				Validate(positive).
				Value(&interval),
			huh.NewConfirm().
				Title("Grab input devices exclusively?").
				Description("Other programs stop seeing the keyboard and mouse while waycore runs").
				Value(&grab),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	d, _ := strconv.Atoi(strings.TrimSpace(delay))
	i, _ := strconv.Atoi(strings.TrimSpace(interval))
	viper.Set("server.socket_name", strings.TrimSpace(socket))
	viper.Set("input.repeat_delay_ms", d)
	viper.Set("input.repeat_interval_ms", i)
	viper.Set("input.grab_devices", grab)
	return nil
}

var configIgnoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Choose input devices the compositor should not open",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		found, err := input.ScanDevices(cfg.Input.DeviceGlob)
		if err != nil {
			return err
		}

		var options []huh.Option[string]
		for _, d := range found {
			if d.Err != nil || !d.Handled {
				continue
			}
			label := fmt.Sprintf("%s (%s, %s)", d.Name, d.Type, d.Path)
			options = append(options, huh.NewOption(label, d.Name).Selected(slices.Contains(cfg.Input.IgnoreDevices, d.Name)))
		}
		if len(options) == 0 {
			return fmt.Errorf("no readable input devices found")
		}

		var selected []string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewMultiSelect[string]().
					Title("Ignore Devices").
					Description("Selected devices are left alone by the compositor").
					Options(options...).
					Value(&selected),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("device selection cancelled: %w", err)
		}

		in := cfg.Input
		in.IgnoreDevices = selected
		if err := config.UpdateInput(in); err != nil {
			return err
		}
		logger.Infof("Ignoring %d device(s)", len(selected))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configIgnoreCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
	configInitCmd.Flags().BoolP("interactive", "i", false, "Ask for the common settings")

	rootCmd.AddCommand(configCmd)
}
