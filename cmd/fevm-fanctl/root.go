package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fevm-fanctl",
	Short: "Fan control for the FEVM FA880 PRO mainboard",
	Long: `fevm-fanctl drives the CPU and memory fans of the FEVM FA880 PRO
through the board's vendor ACPI-WMI SetFanControl method.

The firmware interface is write-only: duty cycles (0-100%) can be set but not
read back. Requires the acpi_call kernel module (/proc/acpi/call) and root.

Run "fevm-fanctl daemon" for the long-running service (presence polling, HTTP
control endpoints, optional temperature-driven fan curves), or "fevm-fanctl
set" for a one-shot duty write.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/fevm-fanctl.yaml", "Path to YAML config")
}
