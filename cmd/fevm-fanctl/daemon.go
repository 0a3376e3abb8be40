package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/config"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/fanctl"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/fancurve"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/hwmon"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/sensors/spd5118"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/smbus"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/web"
	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/wmi"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the fan control service",
	Long: `Run the long-running fan control service: binds to the firmware
interface as it appears, serves the HTTP control endpoints, and (when enabled
in the config) drives both fans from temperature curves.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("fevm-fanctl starting (wmi guid %s)", wmi.GUID)

	ctl := fanctl.NewController()
	watcher, err := fanctl.NewWatcher(ctl, cfg.WMI.Poll,
		func() (wmi.Device, error) { return wmi.Open(cfg.WMI.CallPath, cfg.WMI.Method) },
		func() bool {
			_, err := os.Stat(cfg.WMI.CallPath)
			return err == nil
		},
	)
	if err != nil {
		return err
	}
	watcher.Start(ctx)
	defer watcher.Close()

	var handler http.Handler
	if cfg.Curve.Enable {
		svc, err := startCurveService(ctx, cfg.Curve, ctl)
		if err != nil {
			return err
		}
		defer svc.Close()
		handler = web.Handler(ctl, svc)
	} else {
		handler = web.Handler(ctl, nil)
	}

	err = web.Serve(ctx, cfg.Web.Listen, handler)
	log.Printf("fevm-fanctl stopping")
	return err
}

func startCurveService(ctx context.Context, cfg config.CurveConfig, ctl *fanctl.Controller) (*fancurve.Service, error) {
	cpuCurve, err := fancurve.NewCurve(cfg.CPU)
	if err != nil {
		return nil, fmt.Errorf("curve.cpu: %w", err)
	}
	memCurve, err := fancurve.NewCurve(cfg.Mem)
	if err != nil {
		return nil, fmt.Errorf("curve.mem: %w", err)
	}

	fallback := cfg.MemFallbackToCPU == nil || *cfg.MemFallbackToCPU

	cpuSensors := cfg.CPUSensors
	readCPU := func() (float64, error) { return hwmon.ReadTempC(cpuSensors) }
	readMem := memReader(cfg)

	svc := fancurve.New(fancurve.Config{
		Poll:             cfg.Poll,
		MinDuty:          cfg.MinDuty,
		MaxDuty:          cfg.MaxDuty,
		FailsafeDuty:     cfg.FailsafeDuty,
		MemFallbackToCPU: fallback,
		CPUCurve:         cpuCurve,
		MemCurve:         memCurve,
	}, ctl, readCPU, readMem)

	svc.Start(ctx)
	log.Printf("fancurve: enabled (poll=%s min=%d max=%d failsafe=%d)",
		cfg.Poll, cfg.MinDuty, cfg.MaxDuty, cfg.FailsafeDuty)
	return svc, nil
}

// memReader builds the memory temperature source: hwmon first, with an
// optional direct SPD5118 SMBus fallback for systems without the hwmon
// driver. Returns nil when neither source is configured.
func memReader(cfg config.CurveConfig) fancurve.TempReader {
	var spd *spd5118.Device
	if cfg.SPD5118.Enable {
		addr := cfg.SPD5118.Addr
		if addr == 0 {
			addr = spd5118.AddrDefault
		}
		conn, err := smbus.Open(cfg.SPD5118.Bus, addr)
		if err != nil {
			log.Printf("fancurve: spd5118 bus open failed, hwmon only: %v", err)
		} else if dev, err := spd5118.New(conn); err != nil {
			log.Printf("fancurve: spd5118 probe failed, hwmon only: %v", err)
			_ = conn.Close()
		} else {
			spd = dev
		}
	}

	memSensors := cfg.MemSensors
	if len(memSensors) == 0 && spd == nil {
		return nil
	}
	return func() (float64, error) {
		t, err := hwmon.ReadTempC(memSensors)
		if err == nil {
			return t, nil
		}
		if spd != nil {
			return spd.TempC()
		}
		return 0, err
	}
}
