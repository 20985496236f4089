package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bnema/waycore/internal/input"
	"github.com/spf13/cobra"
)

var injectSettle time.Duration

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Send synthetic input through a uinput device",
	Long: `Create a virtual mouse and keyboard with uinput and send events
through them. A running compositor picks the devices up through
hotplug and routes the events like real hardware, which makes this
useful for exercising focus and grabs by hand.

Needs write access to /dev/uinput.`,
}

func withInjector(fn func(*input.Injector) error) error {
	inj, err := input.NewInjector("waycore-inject")
	if err != nil {
		return err
	}
	defer inj.Close()

	// The compositor only sees the device after hotplug.
	time.Sleep(injectSettle)
	if err := fn(inj); err != nil {
		return err
	}
	time.Sleep(injectSettle / 5)
	return nil
}

var injectClickCmd = &cobra.Command{
	Use:   "click [button]",
	Short: "Click a button: 1 left, 2 middle, 3 right",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		button := uint32(1)
		if len(args) == 1 {
			n, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid button %q", args[0])
			}
			button = uint32(n)
		}
		return withInjector(func(in *input.Injector) error { return in.Click(button) })
	},
}

var injectScrollCmd = &cobra.Command{
	Use:   "scroll <up|down|left|right> [steps]",
	Short: "Scroll the wheel",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var dir input.ScrollDirection
		switch args[0] {
		case "up":
			dir = input.ScrollUp
		case "down":
			dir = input.ScrollDown
		case "left":
			dir = input.ScrollLeft
		case "right":
			dir = input.ScrollRight
		default:
			return fmt.Errorf("invalid direction %q", args[0])
		}
		steps := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return withInjector(func(in *input.Injector) error { return in.Scroll(dir, steps) })
	},
}

var injectKeyCmd = &cobra.Command{
	Use:   "key <code>",
	Short: "Press and release a linux key code (e.g. 30 for KEY_A)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid key code %q", args[0])
		}
		code := uint32(n)
		return withInjector(func(in *input.Injector) error {
			if err := in.Key(code, true); err != nil {
				return err
			}
			return in.Key(code, false)
		})
	},
}

var injectMoveCmd = &cobra.Command{
	Use:   "move <dx> <dy>",
	Short: "Move the pointer by a relative amount",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dx, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid dx %q", args[0])
		}
		dy, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid dy %q", args[1])
		}
		return withInjector(func(in *input.Injector) error { return in.Move(int32(dx), int32(dy)) })
	},
}

func init() {
	injectCmd.PersistentFlags().DurationVar(&injectSettle, "settle", 500*time.Millisecond, "Wait after creating the devices before sending")
	injectCmd.AddCommand(injectClickCmd, injectScrollCmd, injectKeyCmd, injectMoveCmd)
	rootCmd.AddCommand(injectCmd)
}
