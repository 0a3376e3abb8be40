package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/wmi"
)

type Config struct {
	WMI   WMIConfig   `yaml:"wmi"`
	Web   WebConfig   `yaml:"web"`
	Curve CurveConfig `yaml:"curve"`
}

type WMIConfig struct {
	// CallPath is the acpi_call interface file.
	CallPath string `yaml:"call_path"`
	// Method is the ACPI control method mapped for the FEVM WMI block.
	Method string `yaml:"method"`
	// Poll is how often interface presence is re-checked.
	Poll time.Duration `yaml:"poll"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type CurveConfig struct {
	Enable bool          `yaml:"enable"`
	Poll   time.Duration `yaml:"poll"`

	MinDuty      int `yaml:"min_duty"`
	MaxDuty      int `yaml:"max_duty"`
	FailsafeDuty int `yaml:"failsafe_duty"`

	CPUSensors []string `yaml:"cpu_sensors"`
	MemSensors []string `yaml:"mem_sensors"`
	// MemFallbackToCPU drives the memory fan from the CPU temperature when no
	// memory sensor is found. Defaults to true.
	MemFallbackToCPU *bool `yaml:"mem_fallback_to_cpu"`

	// CPU/Mem are curve points as [temp_c, duty] pairs with strictly
	// increasing temperatures.
	CPU [][]float64 `yaml:"cpu"`
	Mem [][]float64 `yaml:"mem"`

	SPD5118 SPD5118Config `yaml:"spd5118"`
}

// SPD5118Config enables direct SMBus readout of the DDR5 SPD hub temperature
// sensor, for systems without the spd5118 hwmon driver.
type SPD5118Config struct {
	Enable bool   `yaml:"enable"`
	Bus    string `yaml:"bus"`
	Addr   uint16 `yaml:"addr"`
}

// Default returns the built-in configuration. It matches the defaults the
// original fan-curve daemons shipped with.
func Default() Config {
	fallback := true
	return Config{
		WMI: WMIConfig{
			CallPath: wmi.DefaultCallPath,
			Method:   wmi.DefaultControlMethod,
			Poll:     2 * time.Second,
		},
		Web: WebConfig{
			Listen: "127.0.0.1:8642",
		},
		Curve: CurveConfig{
			Enable:           false,
			Poll:             1 * time.Second,
			MinDuty:          20,
			MaxDuty:          100,
			FailsafeDuty:     70,
			CPUSensors:       []string{"k10temp"},
			MemSensors:       []string{"spd5118"},
			MemFallbackToCPU: &fallback,
			CPU:              [][]float64{{40, 20}, {55, 35}, {65, 55}, {75, 75}, {85, 100}},
			Mem:              [][]float64{{35, 20}, {50, 40}, {60, 60}, {70, 80}, {80, 100}},
			SPD5118: SPD5118Config{
				Bus:  "/dev/i2c-0",
				Addr: 0x50,
			},
		},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing file is
// not an error; the daemon runs with defaults, like the original userspace
// tools did.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.WMI.CallPath == "" {
		cfg.WMI.CallPath = wmi.DefaultCallPath
	}
	if cfg.WMI.Method == "" {
		cfg.WMI.Method = wmi.DefaultControlMethod
	}
	if cfg.WMI.Poll <= 0 {
		cfg.WMI.Poll = 2 * time.Second
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8642"
	}
	if cfg.Curve.Poll <= 0 {
		cfg.Curve.Poll = 1 * time.Second
	}

	if cfg.Curve.MinDuty < 0 || cfg.Curve.MinDuty > 100 {
		return Config{}, fmt.Errorf("curve.min_duty must be in [0,100]")
	}
	if cfg.Curve.MaxDuty < 0 || cfg.Curve.MaxDuty > 100 {
		return Config{}, fmt.Errorf("curve.max_duty must be in [0,100]")
	}
	if cfg.Curve.MinDuty > cfg.Curve.MaxDuty {
		return Config{}, fmt.Errorf("curve.min_duty must not exceed curve.max_duty")
	}
	if cfg.Curve.FailsafeDuty < 0 || cfg.Curve.FailsafeDuty > 100 {
		return Config{}, fmt.Errorf("curve.failsafe_duty must be in [0,100]")
	}
	for _, p := range append(append([][]float64{}, cfg.Curve.CPU...), cfg.Curve.Mem...) {
		if len(p) != 2 {
			return Config{}, fmt.Errorf("curve points must be [temp_c, duty] pairs")
		}
	}
	if cfg.Curve.SPD5118.Enable && cfg.Curve.SPD5118.Bus == "" {
		return Config{}, fmt.Errorf("curve.spd5118.bus is required when curve.spd5118.enable is true")
	}

	return cfg, nil
}
