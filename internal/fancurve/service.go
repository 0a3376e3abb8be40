package fancurve

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/fanctl"
)

// FanWriter is what the curve loop needs from the firmware controller.
type FanWriter interface {
	SetFanDuty(ctx context.Context, ch fanctl.Channel, duty int) error
}

// TempReader reads one temperature source in degrees Celsius.
type TempReader func() (float64, error)

type Config struct {
	Poll time.Duration

	MinDuty      int
	MaxDuty      int
	FailsafeDuty int

	// MemFallbackToCPU drives the memory fan from the CPU temperature when no
	// memory reading is available.
	MemFallbackToCPU bool

	CPUCurve Curve
	MemCurve Curve
}

type Snapshot struct {
	Enabled bool `json:"enabled"`

	CPUValid bool    `json:"cpu_valid"`
	CPUTempC float64 `json:"cpu_temp_c"`
	CPUDuty  int     `json:"cpu_duty"`

	MemValid bool    `json:"mem_valid"`
	MemTempC float64 `json:"mem_temp_c"`
	MemDuty  int     `json:"mem_duty"`

	LastUpdateAt time.Time `json:"last_update_utc,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Service periodically evaluates the fan curves against live temperatures and
// writes both channels through the controller. It is policy layered on top of
// the firmware mechanism; the controller stays usable for direct writes while
// the service runs (last writer wins).
type Service struct {
	cfg Config
	ctl FanWriter

	readCPU TempReader
	readMem TempReader // nil when no memory source is configured

	mu   sync.RWMutex
	snap Snapshot

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, ctl FanWriter, readCPU, readMem TempReader) *Service {
	if cfg.Poll <= 0 {
		cfg.Poll = 1 * time.Second
	}
	if cfg.MaxDuty <= 0 {
		cfg.MaxDuty = 100
	}
	return &Service{
		cfg:     cfg,
		ctl:     ctl,
		readCPU: readCPU,
		readMem: readMem,
		stopCh:  make(chan struct{}),
	}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) setState(update func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.snap)
	s.snap.LastUpdateAt = time.Now().UTC()
}

// Start runs the curve loop in the background until the context is canceled
// or Close is called.
func (s *Service) Start(ctx context.Context) {
	s.setState(func(sn *Snapshot) { sn.Enabled = true })

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.cfg.Poll)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-t.C:
				s.tick(ctx)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Close()
	}()
}

// Close stops the loop and parks both fans at the failsafe duty, like the
// original curve daemons did on exit, so a dead policy loop never strands the
// fans at a low duty.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()

	ctx := context.Background()
	_ = s.ctl.SetFanDuty(ctx, fanctl.ChannelCPU, s.cfg.FailsafeDuty)
	_ = s.ctl.SetFanDuty(ctx, fanctl.ChannelMemory, s.cfg.FailsafeDuty)
	s.setState(func(sn *Snapshot) { sn.Enabled = false })
}

func (s *Service) tick(ctx context.Context) {
	cpuC, err := s.readCPU()
	if err != nil {
		// Fail safe: no CPU reading means we cannot trust any policy output.
		log.Printf("fancurve: cpu temp read failed: %v", err)
		s.setState(func(sn *Snapshot) {
			sn.CPUValid = false
			sn.LastError = err.Error()
			sn.CPUDuty = s.cfg.FailsafeDuty
			sn.MemDuty = s.cfg.FailsafeDuty
		})
		s.write(ctx, fanctl.ChannelCPU, s.cfg.FailsafeDuty)
		s.write(ctx, fanctl.ChannelMemory, s.cfg.FailsafeDuty)
		return
	}

	cpuDuty := s.mapDuty(s.cfg.CPUCurve.Duty(cpuC))

	memC, memValid := s.memTemp(cpuC)
	var memDuty int
	if memValid {
		memDuty = s.mapDuty(s.cfg.MemCurve.Duty(memC))
	} else {
		memDuty = s.cfg.FailsafeDuty
	}

	s.write(ctx, fanctl.ChannelCPU, cpuDuty)
	s.write(ctx, fanctl.ChannelMemory, memDuty)

	s.setState(func(sn *Snapshot) {
		sn.CPUValid = true
		sn.CPUTempC = cpuC
		sn.CPUDuty = cpuDuty
		sn.MemValid = memValid
		sn.MemTempC = memC
		sn.MemDuty = memDuty
		sn.LastError = ""
	})
}

// memTemp resolves the memory-side temperature, falling back to the CPU
// reading when configured.
func (s *Service) memTemp(cpuC float64) (float64, bool) {
	if s.readMem != nil {
		t, err := s.readMem()
		if err == nil {
			return t, true
		}
		log.Printf("fancurve: mem temp read failed: %v", err)
	}
	if s.cfg.MemFallbackToCPU {
		return cpuC, true
	}
	return 0, false
}

func (s *Service) mapDuty(duty int) int {
	if duty < s.cfg.MinDuty {
		return s.cfg.MinDuty
	}
	if duty > s.cfg.MaxDuty {
		return s.cfg.MaxDuty
	}
	return duty
}

func (s *Service) write(ctx context.Context, ch fanctl.Channel, duty int) {
	if err := s.ctl.SetFanDuty(ctx, ch, duty); err != nil {
		// ErrNotBound while the interface is away is routine; keep polling.
		s.setState(func(sn *Snapshot) { sn.LastError = err.Error() })
	}
}
