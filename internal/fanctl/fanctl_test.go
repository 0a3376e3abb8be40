package fanctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/wmi"
)

type fakeDevice struct {
	mu     sync.Mutex
	calls  [][]byte
	method uint32

	obj *wmi.Object
	err error

	closed atomic.Int64
}

func (d *fakeDevice) Evaluate(_ context.Context, method uint32, input []byte) (*wmi.Object, error) {
	d.mu.Lock()
	d.method = method
	d.calls = append(d.calls, append([]byte(nil), input...))
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.obj, nil
}

func (d *fakeDevice) Close() error {
	d.closed.Add(1)
	return nil
}

func (d *fakeDevice) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDevice) lastCall(t *testing.T) []byte {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		t.Fatalf("no calls recorded")
	}
	return d.calls[len(d.calls)-1]
}

func TestEncodeRequest(t *testing.T) {
	cases := []struct {
		ch   Channel
		duty uint8
		want [2]byte
	}{
		{ChannelCPU, 0, [2]byte{1, 0}},
		{ChannelCPU, 75, [2]byte{1, 75}},
		{ChannelCPU, 100, [2]byte{1, 100}},
		{ChannelMemory, 0, [2]byte{2, 0}},
		{ChannelMemory, 30, [2]byte{2, 30}},
		{ChannelMemory, 100, [2]byte{2, 100}},
	}
	for _, tc := range cases {
		if got := encodeRequest(tc.ch, tc.duty); got != tc.want {
			t.Errorf("encodeRequest(%s, %d)=%v want %v", tc.ch, tc.duty, got, tc.want)
		}
	}
}

func TestClampDuty(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0},
		{50, 50},
		{100, 100},
		{101, 100},
		{255, 100},
		{1000, 100},
		{-1, 0},
	}
	for _, tc := range cases {
		if got := clampDuty(tc.in); got != tc.want {
			t.Errorf("clampDuty(%d)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestDecodeStatus(t *testing.T) {
	cases := []struct {
		name   string
		obj    *wmi.Object
		status uint8
		ok     bool
	}{
		{"integer zero", wmi.IntegerObject(0), 0, true},
		{"integer nonzero", wmi.IntegerObject(7), 7, true},
		{"integer wide truncates", wmi.IntegerObject(0x107), 7, true},
		{"buffer zero", wmi.BufferObject([]byte{0x00, 0xAA}), 0, true},
		{"buffer nonzero", wmi.BufferObject([]byte{0x02}), 2, true},
		{"empty buffer", wmi.BufferObject(nil), 0, false},
		{"other", &wmi.Object{Type: wmi.TypeOther}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, ok := decodeStatus(tc.obj)
			if status != tc.status || ok != tc.ok {
				t.Fatalf("decodeStatus()=(%d,%v) want (%d,%v)", status, ok, tc.status, tc.ok)
			}
		})
	}
}

func TestSetFanDuty_NotBound(t *testing.T) {
	ctl := NewController()
	err := ctl.SetFanDuty(context.Background(), ChannelCPU, 10)
	if !errors.Is(err, ErrNotBound) {
		t.Fatalf("err=%v want ErrNotBound", err)
	}
}

func TestSetFanDuty_NotBoundAfterUnbind_NoCall(t *testing.T) {
	fake := &fakeDevice{obj: wmi.IntegerObject(0)}
	ctl := NewController()
	ctl.Bind(fake)
	ctl.Unbind()

	err := ctl.SetFanDuty(context.Background(), ChannelCPU, 10)
	if !errors.Is(err, ErrNotBound) {
		t.Fatalf("err=%v want ErrNotBound", err)
	}
	if n := fake.callCount(); n != 0 {
		t.Fatalf("calls=%d want 0", n)
	}
}

func TestSetFanDuty_Success(t *testing.T) {
	fake := &fakeDevice{obj: wmi.IntegerObject(0)}
	ctl := NewController()
	ctl.Bind(fake)

	if err := ctl.SetFanDuty(context.Background(), ChannelCPU, 75); err != nil {
		t.Fatalf("SetFanDuty: %v", err)
	}
	if got := fake.lastCall(t); got[0] != 1 || got[1] != 75 || len(got) != 2 {
		t.Fatalf("payload=%v want [1 75]", got)
	}
	if fake.method != wmi.MethodSetFanControl {
		t.Fatalf("method=%d want %d", fake.method, wmi.MethodSetFanControl)
	}

	snap := ctl.Snapshot()
	if !snap.CPUDutyValid || snap.CPUDuty != 75 {
		t.Fatalf("snapshot cpu duty=%v/%d want 75", snap.CPUDutyValid, snap.CPUDuty)
	}
}

func TestSetFanDuty_MemoryChannel(t *testing.T) {
	fake := &fakeDevice{obj: wmi.BufferObject([]byte{0x00})}
	ctl := NewController()
	ctl.Bind(fake)

	if err := ctl.SetFanDuty(context.Background(), ChannelMemory, 30); err != nil {
		t.Fatalf("SetFanDuty: %v", err)
	}
	if got := fake.lastCall(t); got[0] != 2 || got[1] != 30 {
		t.Fatalf("payload=%v want [2 30]", got)
	}
}

func TestSetFanDuty_ClampsBeforeEncode(t *testing.T) {
	fake := &fakeDevice{obj: wmi.IntegerObject(0)}
	ctl := NewController()
	ctl.Bind(fake)

	if err := ctl.SetFanDuty(context.Background(), ChannelCPU, 150); err != nil {
		t.Fatalf("SetFanDuty: %v", err)
	}
	if got := fake.lastCall(t); got[1] != 100 {
		t.Fatalf("duty byte=%d want 100", got[1])
	}
}

func TestSetFanDuty_FirmwareRejected(t *testing.T) {
	fake := &fakeDevice{obj: wmi.IntegerObject(7)}
	ctl := NewController()
	ctl.Bind(fake)

	err := ctl.SetFanDuty(context.Background(), ChannelCPU, 50)
	var ferr *FirmwareError
	if !errors.As(err, &ferr) {
		t.Fatalf("err=%v want *FirmwareError", err)
	}
	if ferr.Status != 7 {
		t.Fatalf("status=%d want 7", ferr.Status)
	}
}

func TestSetFanDuty_CallFailed(t *testing.T) {
	fake := &fakeDevice{err: fmt.Errorf("boom")}
	ctl := NewController()
	ctl.Bind(fake)

	err := ctl.SetFanDuty(context.Background(), ChannelCPU, 50)
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("err=%v want ErrCallFailed", err)
	}
}

func TestSetFanDuty_NoResult(t *testing.T) {
	fake := &fakeDevice{} // obj nil, err nil
	ctl := NewController()
	ctl.Bind(fake)

	err := ctl.SetFanDuty(context.Background(), ChannelCPU, 50)
	if !errors.Is(err, ErrNoResult) {
		t.Fatalf("err=%v want ErrNoResult", err)
	}
	if errors.Is(err, ErrCallFailed) {
		t.Fatalf("ErrNoResult must stay distinct from ErrCallFailed")
	}
}

func TestSetFanDuty_UnrecognizedShapeStillSucceeds(t *testing.T) {
	fake := &fakeDevice{obj: wmi.BufferObject(nil)}
	ctl := NewController()
	ctl.Bind(fake)

	if err := ctl.SetFanDuty(context.Background(), ChannelCPU, 40); err != nil {
		t.Fatalf("SetFanDuty: %v", err)
	}
	snap := ctl.Snapshot()
	if snap.DecodeAnomalies != 1 {
		t.Fatalf("decode_anomalies=%d want 1", snap.DecodeAnomalies)
	}
}

func TestBind_ReplacesHandle(t *testing.T) {
	a := &fakeDevice{obj: wmi.IntegerObject(0)}
	b := &fakeDevice{obj: wmi.IntegerObject(0)}
	ctl := NewController()

	if prev := ctl.Bind(a); prev != nil {
		t.Fatalf("prev=%v want nil", prev)
	}
	if prev := ctl.Bind(b); prev != a {
		t.Fatalf("prev=%v want first handle", prev)
	}

	if err := ctl.SetFanDuty(context.Background(), ChannelCPU, 10); err != nil {
		t.Fatalf("SetFanDuty: %v", err)
	}
	if a.callCount() != 0 || b.callCount() != 1 {
		t.Fatalf("calls a=%d b=%d want 0/1", a.callCount(), b.callCount())
	}
}

// Exercised under -race: an unbind racing in-flight calls must never let a
// call run against a retracted handle, only complete or fail with ErrNotBound.
func TestUnbindRace(t *testing.T) {
	fake := &fakeDevice{obj: wmi.IntegerObject(0)}
	ctl := NewController()
	ctl.Bind(fake)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			ctl.Unbind()
			ctl.Bind(fake)
		}
		ctl.Unbind()
	}()

	for i := 0; i < 200; i++ {
		err := ctl.SetFanDuty(context.Background(), ChannelMemory, i%101)
		if err != nil && !errors.Is(err, ErrNotBound) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	<-done
}
