package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/config"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/fanctl"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/wmi"
)

var setCmd = &cobra.Command{
	Use:   "set {cpu|mem} <duty>",
	Short: "One-shot fan duty write",
	Long: `Set one fan's duty cycle directly through the firmware interface and
exit. Duty is a percentage 0-100; values above 100 are clamped to 100.

Talks to the hardware itself (needs root and acpi_call), not to a running
daemon.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func parseChannel(s string) (fanctl.Channel, error) {
	switch s {
	case "cpu", "fan1":
		return fanctl.ChannelCPU, nil
	case "mem", "memory", "fan2":
		return fanctl.ChannelMemory, nil
	default:
		return 0, fmt.Errorf("unknown fan %q (want cpu or mem)", s)
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	duty, err := fanctl.ParseDuty(args[1])
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	dev, err := wmi.Open(cfg.WMI.CallPath, cfg.WMI.Method)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctl := fanctl.NewController()
	ctl.Bind(dev)
	if err := ctl.SetFanDuty(context.Background(), ch, duty); err != nil {
		return err
	}

	fmt.Printf("%s fan duty set to %d%%\n", ch, duty)
	return nil
}
