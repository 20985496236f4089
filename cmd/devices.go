package cmd

import (
	"fmt"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/ui"
	"github.com/spf13/cobra"
)

var devicesAll bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List input devices the compositor would read",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		found, err := input.ScanDevices(cfg.Input.DeviceGlob)
		if err != nil {
			return err
		}

		var rows [][]string
		denied := 0
		for _, d := range found {
			if d.Err != nil {
				denied++
				if devicesAll {
					rows = append(rows, []string{d.Path, "-", "-", ui.ErrorStyle.Render(d.Err.Error())})
				}
				continue
			}
			status := ui.SuccessStyle.Render("used")
			switch {
			case isIgnored(d.Name, cfg.Input.IgnoreDevices):
				status = ui.MutedStyle.Render("ignored")
			case !d.Handled:
				if !devicesAll {
					continue
				}
				status = ui.MutedStyle.Render("unsupported")
			}
			typ := d.Type.String()
			if !d.Handled {
				typ = "-"
			}
			rows = append(rows, []string{d.Path, d.Name, typ, status})
		}

		if len(rows) == 0 {
			fmt.Println("No input devices found")
		} else {
			fmt.Println(ui.FormatTable([]string{"Path", "Name", "Type", "Status"}, rows))
		}
		if denied > 0 && !devicesAll {
			fmt.Println()
			fmt.Println(ui.WarningStyle.Render(fmt.Sprintf("%d device(s) could not be opened; check membership in the input group", denied)))
		}
		return nil
	},
}

func isIgnored(name string, patterns []string) bool {
	_, ok := input.IgnoredBy(name, patterns)
	return ok
}

func init() {
	devicesCmd.Flags().BoolVarP(&devicesAll, "all", "a", false, "Include unsupported and unreadable devices")
	rootCmd.AddCommand(devicesCmd)
}
