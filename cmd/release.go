package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/bnema/waycore/internal/config"
	"github.com/spf13/cobra"
)

var releasePid int

// releaseCmd represents the release command
var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Drop any compositor grab and device grab",
	Long: `End a stuck modal or popup grab and release exclusively grabbed
input devices of a running compositor.

By default this touches the configured trigger file, which works even
when the compositor runs as another user. With --pid the compositor is
sent SIGUSR1 instead. Handy for a window manager keybinding.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if releasePid > 0 {
			if err := syscall.Kill(releasePid, syscall.SIGUSR1); err != nil {
				return fmt.Errorf("failed to signal %d: %w", releasePid, err)
			}
			fmt.Printf("Sent SIGUSR1 to %d\n", releasePid)
			return nil
		}

		path := config.Get().Emergency.TriggerFile
		if path == "" {
			return fmt.Errorf("no emergency.trigger_file configured; use --pid")
		}
		if err := os.WriteFile(path, nil, 0600); err != nil {
			return fmt.Errorf("failed to create trigger file: %w", err)
		}
		fmt.Printf("Release requested via %s\n", path)
		return nil
	},
}

func init() {
	releaseCmd.Flags().IntVarP(&releasePid, "pid", "p", 0, "Signal this compositor process instead of using the trigger file")
	rootCmd.AddCommand(releaseCmd)
}
