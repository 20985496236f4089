package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/waycore/internal/ui"
	"github.com/bnema/waycore/internal/wayland"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [display]",
	Short: "Connect to a Wayland display and list what it offers",
	Long: `Connect as an ordinary Wayland client, list the advertised globals and
read the seat capabilities and shm formats. Without an argument the
display comes from $WAYLAND_DISPLAY.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		display := ""
		if len(args) == 1 {
			display = args[0]
		}

		report, err := wayland.Probe(display)
		if err != nil {
			fmt.Println(ui.FormatResult(false, "connect", err.Error()))
			return err
		}

		fmt.Println(ui.FormatResult(true, "connect", fmt.Sprintf("%s (roundtrip %s)", report.Socket, report.Roundtrip)))
		fmt.Println()

		rows := make([][]string, 0, len(report.Globals))
		for _, g := range report.Globals {
			rows = append(rows, []string{strconv.FormatUint(uint64(g.Name), 10), g.Interface, strconv.FormatUint(uint64(g.Version), 10)})
		}
		fmt.Println(ui.FormatTable([]string{"Name", "Interface", "Version"}, rows))
		fmt.Println()

		if s := report.Seat; s != nil {
			var caps []string
			if s.HasPointer {
				caps = append(caps, "pointer")
			}
			if s.HasKeyboard {
				caps = append(caps, "keyboard")
			}
			if s.HasTouch {
				caps = append(caps, "touch")
			}
			fmt.Println(ui.FormatResult(true, "seat", fmt.Sprintf("%s [%s]", s.Name, strings.Join(caps, ", "))))
		} else {
			fmt.Println(ui.FormatResult(false, "seat", "no wl_seat advertised"))
		}

		if len(report.ShmFormats) > 0 {
			formats := make([]string, len(report.ShmFormats))
			for i, f := range report.ShmFormats {
				formats[i] = shmFormatName(f)
			}
			fmt.Println(ui.FormatResult(true, "shm", strings.Join(formats, ", ")))
		} else {
			fmt.Println(ui.FormatResult(false, "shm", "no formats"))
		}
		return nil
	},
}

func shmFormatName(f uint32) string {
	switch f {
	case 0:
		return "argb8888"
	case 1:
		return "xrgb8888"
	}
	return fmt.Sprintf("0x%08x", f)
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
