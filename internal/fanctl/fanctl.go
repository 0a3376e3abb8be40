package fanctl

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/wmi"
)

// Channel selects one of the two firmware-controlled fans. The numbering is
// fixed by the firmware and not extensible.
type Channel uint8

const (
	// ChannelCPU is the CPU fan header.
	ChannelCPU Channel = 1
	// ChannelMemory is the memory fan header.
	ChannelMemory Channel = 2
)

func (c Channel) String() string {
	switch c {
	case ChannelCPU:
		return "cpu"
	case ChannelMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// encodeRequest builds the 2-byte SetFanControl input, [fan_number, fan_duty].
// Duty must already be clamped by the caller.
func encodeRequest(ch Channel, duty uint8) [2]byte {
	return [2]byte{byte(ch), duty}
}

// clampDuty forces a duty percentage into [0,100].
func clampDuty(duty int) int {
	if duty < 0 {
		return 0
	}
	if duty > 100 {
		return 100
	}
	return duty
}

// decodeStatus extracts the firmware status code from a method result.
//
// The firmware answers with either a scalar integer (low 8 bits are the
// status) or a buffer whose first byte is the status; both mean the same
// thing. ok=false reports a shape we do not recognize, including an empty
// buffer.
func decodeStatus(obj *wmi.Object) (status uint8, ok bool) {
	switch obj.Type {
	case wmi.TypeInteger:
		return uint8(obj.Integer), true
	case wmi.TypeBuffer:
		if len(obj.Buffer) >= 1 {
			return obj.Buffer[0], true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Snapshot is the controller state as exposed to the status API.
type Snapshot struct {
	Bound bool `json:"bound"`

	CPUDutyValid bool `json:"cpu_duty_valid"`
	CPUDuty      int  `json:"cpu_duty"`

	MemoryDutyValid bool `json:"memory_duty_valid"`
	MemoryDuty      int  `json:"memory_duty"`

	// DecodeAnomalies counts results whose shape we could not decode. Those
	// calls are still reported as successful (see SetFanDuty), so this is the
	// only place the condition stays visible.
	DecodeAnomalies uint64 `json:"decode_anomalies,omitempty"`

	LastUpdateAt time.Time `json:"last_update_utc,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Controller owns the binding to the firmware interface and issues
// SetFanControl calls against it.
//
// Bind and Unbind are driven by whatever manages device lifecycle (normally a
// Watcher); SetFanDuty is driven by users. All three serialize on one mutex,
// so an unbind racing an in-flight call either waits for it or makes the next
// call fail with ErrNotBound — a retracted handle is never used.
type Controller struct {
	mu  sync.Mutex // guards dev, held across the whole firmware round trip
	dev wmi.Device

	snapMu sync.RWMutex
	snap   Snapshot
}

func NewController() *Controller {
	return &Controller{}
}

// Bind installs a freshly opened device handle, replacing any previous one.
// The previous handle (if any) is returned so the caller can close it; a
// lifecycle event may deliver a new handle without an observed unbind first.
func (c *Controller) Bind(dev wmi.Device) (prev wmi.Device) {
	c.mu.Lock()
	prev = c.dev
	c.dev = dev
	c.mu.Unlock()

	c.setState(func(s *Snapshot) { s.Bound = dev != nil })
	return prev
}

// Unbind retracts the current handle and returns it for closing.
func (c *Controller) Unbind() (prev wmi.Device) {
	c.mu.Lock()
	prev = c.dev
	c.dev = nil
	c.mu.Unlock()

	c.setState(func(s *Snapshot) { s.Bound = false })
	return prev
}

// Bound reports whether a firmware handle is currently installed.
func (c *Controller) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev != nil
}

func (c *Controller) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

func (c *Controller) setState(update func(*Snapshot)) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	update(&c.snap)
	c.snap.LastUpdateAt = time.Now().UTC()
}

// SetFanDuty issues one synchronous SetFanControl call. Duty outside [0,100]
// is clamped (the control surface clamps first; this is a safety net).
//
// Error taxonomy: ErrNotBound while no handle is installed, ErrCallFailed
// (wrapped) for transport failures, ErrNoResult when the firmware returned no
// output container, *FirmwareError for a nonzero status. A result of an
// unrecognized shape is logged and counted but the call still reports success;
// that matches the firmware's observed behavior on some BIOS revisions and
// changing it would make those boards look permanently broken.
func (c *Controller) SetFanDuty(ctx context.Context, ch Channel, duty int) error {
	duty = clampDuty(duty)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		c.setState(func(s *Snapshot) { s.LastError = ErrNotBound.Error() })
		return ErrNotBound
	}

	req := encodeRequest(ch, uint8(duty))
	log.Printf("fanctl: SetFanControl(fan=%s duty=%d)", ch, duty)

	obj, err := c.dev.Evaluate(ctx, wmi.MethodSetFanControl, req[:])
	if err != nil {
		log.Printf("fanctl: call failed: %v", err)
		c.setState(func(s *Snapshot) { s.LastError = err.Error() })
		return fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	if obj == nil {
		log.Printf("fanctl: no output from SetFanControl")
		c.setState(func(s *Snapshot) { s.LastError = ErrNoResult.Error() })
		return ErrNoResult
	}

	status, ok := decodeStatus(obj)
	if !ok {
		log.Printf("fanctl: unexpected SetFanControl result shape: %s", obj)
		c.recordDuty(ch, duty, true)
		return nil
	}
	if status != 0 {
		log.Printf("fanctl: SetFanControl failed with status %d", status)
		ferr := &FirmwareError{Status: status}
		c.setState(func(s *Snapshot) { s.LastError = ferr.Error() })
		return ferr
	}

	log.Printf("fanctl: SetFanControl result: status=0")
	c.recordDuty(ch, duty, false)
	return nil
}

func (c *Controller) recordDuty(ch Channel, duty int, anomaly bool) {
	c.setState(func(s *Snapshot) {
		switch ch {
		case ChannelCPU:
			s.CPUDuty = duty
			s.CPUDutyValid = true
		case ChannelMemory:
			s.MemoryDuty = duty
			s.MemoryDutyValid = true
		}
		if anomaly {
			s.DecodeAnomalies++
		}
		s.LastError = ""
	})
}
