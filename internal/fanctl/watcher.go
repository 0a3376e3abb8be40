package fanctl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ocean-sudo/fevm-fa880-pro-fancontrol/internal/wmi"
)

// Watcher drives the controller's binding lifecycle.
//
// The ACPI-WMI interface has no hotplug notification we can subscribe to from
// userspace, so presence is polled: while unbound we try to open the
// interface, while bound we re-check presence and retract the handle when it
// goes away. The watcher is the only caller of Bind/Unbind and the only owner
// of handle Close.
type Watcher struct {
	ctl      *Controller
	interval time.Duration

	openFn  func() (wmi.Device, error)
	probeFn func() bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher builds a watcher. open creates a handle when the interface is
// present (returning wmi.ErrUnavailable while it is not); probe reports
// continued presence of an already bound interface.
func NewWatcher(ctl *Controller, interval time.Duration, open func() (wmi.Device, error), probe func() bool) (*Watcher, error) {
	if ctl == nil {
		return nil, fmt.Errorf("fanctl: watcher needs a controller")
	}
	if open == nil || probe == nil {
		return nil, fmt.Errorf("fanctl: watcher needs open and probe functions")
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{
		ctl:      ctl,
		interval: interval,
		openFn:   open,
		probeFn:  probe,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start makes one immediate bind attempt, then keeps polling in the
// background until the context is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.tick()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-t.C:
				w.tick()
			}
		}
	}()
}

func (w *Watcher) tick() {
	if w.ctl.Bound() {
		if !w.probeFn() {
			log.Printf("fanctl: wmi interface removed")
			if prev := w.ctl.Unbind(); prev != nil {
				_ = prev.Close()
			}
		}
		return
	}

	dev, err := w.openFn()
	if err != nil {
		if !errors.Is(err, wmi.ErrUnavailable) {
			log.Printf("fanctl: wmi open failed: %v", err)
		}
		return
	}
	log.Printf("fanctl: wmi interface bound")
	if prev := w.ctl.Bind(dev); prev != nil {
		_ = prev.Close()
	}
}

// Close stops polling and retracts any live binding.
func (w *Watcher) Close() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()

	if prev := w.ctl.Unbind(); prev != nil {
		_ = prev.Close()
	}
}
