package cmd

import (
	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "waycore",
		Short: "waycore - a small Wayland compositor core",
		Long: `waycore is a Wayland compositor core: surfaces with double-buffered
commits, a pointer focus and grab router, and a native evdev input
translator. It keeps a scene of what would be drawn without drawing it.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

// Execute runs the root command
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ~/.config/waycore/waycore.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// initConfig loads the config before any subcommand runs. The log level
// flag wins over the config file, which wins over LOG_LEVEL.
func initConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		config.SetConfigPath(configFile)
	}
	if err := config.Init(); err != nil {
		return err
	}
	switch {
	case logLevel != "":
		logger.SetLevel(logLevel)
	case config.Get().Logging.LogLevel != "":
		logger.SetLevel(config.Get().Logging.LogLevel)
	}
	return nil
}
