package timer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Config mirrors spec §4.2/§6's compile-time timer configuration, kept as a
// plain nil-safe struct per teacher's BatcherConfig/ChannelConfig
// convention (longpoll.ChannelConfig, microbatch.BatcherConfig): zero
// fields fall back to documented defaults.
type Config struct {
	// FrequencyHz is the tick rate. Defaults to 1000 (spec §6 DEFAULT_TIMER_HZ).
	FrequencyHz uint32

	// Vector is the interrupt vector number this timer is programmed
	// against. Advisory only on the Software backend - kept so the driver's
	// configuration surface matches the spec's documented ABI.
	Vector uint8
}

const defaultFrequencyHz = 1000

// ErrNotAvailable is returned by Calibrate when the calibrated reference clock
// is unusable, causing the kernel to fall back to cooperative-only
// scheduling (spec §4.6 "Timer interrupt delivery failure").
var ErrNotAvailable = errors.New("timer: hardware reference clock not available")

// ErrAlreadyRunning is returned by Start on a driver that is already ticking.
var ErrAlreadyRunning = errors.New("timer: already running")

// ErrNotRunning is returned by Stop on a driver that isn't ticking.
var ErrNotRunning = errors.New("timer: not running")

// Driver is the periodic preemption-tick timer. On the Software backend the
// "hardware" it calibrates against is the Go runtime's own monotonic clock;
// CurrentCount/CountsToNanos/NanosToCounts are still meaningful because
// "counts" are ticks, not raw nanoseconds, so callers doing quantum math in
// ticks (as the reference implementation's x86_64 TSC-tick driver does) see
// the same shape of API.
type Driver struct {
	cfg Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	tickCount atomic.Uint64
}

// NewDriver constructs a Driver from cfg (which may be the zero Config, in
// which case FrequencyHz defaults to 1000 Hz).
func NewDriver(cfg Config) *Driver {
	if cfg.FrequencyHz == 0 {
		cfg.FrequencyHz = defaultFrequencyHz
	}
	return &Driver{cfg: cfg}
}

// Calibrate validates the configured frequency against the reference clock.
// Real hardware compares a programmable counter to a known-good oscillator;
// here it is a sanity check that the requested frequency is representable,
// returning ErrNotAvailable otherwise so Kernel.Init can fall back to
// cooperative-only mode per spec §4.6.
func (d *Driver) Calibrate() error {
	if d.cfg.FrequencyHz == 0 || d.cfg.FrequencyHz > uint32(time.Second/time.Nanosecond) {
		return ErrNotAvailable
	}
	return nil
}

// Start begins periodic ticking. onTick is invoked once per tick from a
// dedicated goroutine, bracketed by the ack/EOI pair spec §4.2 requires of
// the platform ISR wrapper: acknowledge, increment the tick counter,
// invoke the handler, signal end-of-interrupt.
func (d *Driver) Start(onTick func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrAlreadyRunning
	}

	interval := time.Second / time.Duration(d.cfg.FrequencyHz)
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.running = true

	go func() {
		defer close(d.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-d.stopCh:
				return
			case <-ticker.C:
				d.ack()
				d.tickCount.Add(1)
				if onTick != nil {
					onTick()
				}
				d.eoi()
			}
		}
	}()

	return nil
}

// ack acknowledges the (simulated) hardware interrupt. No-op on Software;
// named so the ISR bracket spec §4.2 documents is visible at the call site.
func (d *Driver) ack() {}

// eoi signals end-of-interrupt to the (simulated) interrupt controller.
func (d *Driver) eoi() {}

// Stop halts periodic ticking and waits for the tick goroutine to exit.
func (d *Driver) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotRunning
	}
	stopCh, doneCh := d.stopCh, d.doneCh
	d.running = false
	d.mu.Unlock()

	close(stopCh)
	<-doneCh
	return nil
}

// SetOneshot arms a single tick after duration, independent of periodic
// ticking. JoinHandle.JoinTimeout does not use it; it runs its own
// time.Timer.
func (d *Driver) SetOneshot(duration time.Duration, onFire func()) (stop func()) {
	t := time.AfterFunc(duration, func() {
		d.tickCount.Add(1)
		if onFire != nil {
			onFire()
		}
	})
	return func() { t.Stop() }
}

// CurrentCount returns the raw tick counter (spec §4.2).
func (d *Driver) CurrentCount() uint64 {
	return d.tickCount.Load()
}

// CountsToNanos converts a number of ticks to nanoseconds using the
// configured frequency.
func (d *Driver) CountsToNanos(counts uint64) uint64 {
	return counts * (uint64(time.Second) / uint64(d.cfg.FrequencyHz))
}

// NanosToCounts converts a nanosecond duration to an equivalent tick count.
func (d *Driver) NanosToCounts(nanos uint64) uint64 {
	return nanos / (uint64(time.Second) / uint64(d.cfg.FrequencyHz))
}

// FrequencyHz returns the configured tick rate.
func (d *Driver) FrequencyHz() uint32 {
	return d.cfg.FrequencyHz
}
