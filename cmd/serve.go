package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/waycore/internal/compositor"
	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/logger"
	"github.com/spf13/cobra"
)

var (
	serveSocket    string
	serveNoDevices bool
	serveNoTrace   bool
	serveGrab      bool
	serveNoWatch   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the compositor",
	Long: `Listen on a Wayland socket and route native input to client surfaces.

Keyboard and pointer devices are read from evdev, which normally needs
membership in the input group. Use --no-devices to run without them,
for example when only probing the protocol side.

If a grab gets stuck, run 'waycore release' from another terminal or
send SIGUSR1 to the compositor.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveSocket, "socket", "s", "", "Socket name or absolute path (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoDevices, "no-devices", false, "Do not open evdev devices")
	serveCmd.Flags().BoolVar(&serveNoTrace, "no-trace", false, "Do not expose the trace socket")
	serveCmd.Flags().BoolVar(&serveGrab, "grab", false, "Grab devices exclusively (EVIOCGRAB)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload the config file on change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := *config.Get()
	if serveSocket != "" {
		cfg.Server.SocketName = serveSocket
	}
	if serveGrab {
		cfg.Input.GrabDevices = true
	}

	comp, err := compositor.New(&cfg, compositor.Options{
		NoDevices: serveNoDevices,
		NoTrace:   serveNoTrace,
	})
	if err != nil {
		return err
	}
	if !serveNoWatch {
		comp.WatchConfig()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting waycore on %s", cfg.Server.SocketName)
	if err := comp.Run(ctx); err != nil {
		return err
	}
	logger.Info("Compositor stopped")
	return nil
}
