package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/config"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the running daemon's status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Daemon address (defaults to web.listen from the config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		addr = cfg.Web.Listen
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}
