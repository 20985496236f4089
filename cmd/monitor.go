package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/ipc"
	"github.com/bnema/waycore/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var monitorSocket string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch input and focus changes of a running compositor",
	Long: `Connect to the trace socket of a running compositor and show its
input events, focus changes and device hotplug live.

Keys: f cycles the filter, space pauses, c clears, q quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := monitorSocket
		if path == "" {
			path = config.Get().TraceSocketPath()
		}

		client, err := ipc.Dial(path, 2*time.Second)
		if err != nil {
			return fmt.Errorf("is the compositor running with trace enabled? %w", err)
		}
		defer client.Close()

		p := tea.NewProgram(ui.NewMonitorModel(client, path), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("monitor UI failed: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorSocket, "trace-socket", "", "Trace socket path (default from config)")
	rootCmd.AddCommand(monitorCmd)
}
