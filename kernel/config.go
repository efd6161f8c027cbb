package kernel

import (
	"runtime"
	"sync"

	"github.com/BurntSushi/toml"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

// defaultMaxThreads mirrors spec §6's MAX_THREADS default.
const defaultMaxThreads = 32

// defaultTimerHz mirrors spec §6's DEFAULT_TIMER_HZ default.
const defaultTimerHz = 1000

// Config is the kernel's compile-time configuration surface (spec §6),
// kept as a plain nil-safe struct: a zero Config applies every documented
// default.
type Config struct {
	// CPUCount is the number of per-CPU scheduler slots to create. Zero
	// defaults to the host's effective processor count (cgroup-aware, via
	// go.uber.org/automaxprocs).
	CPUCount int

	// MaxThreads bounds live (not-yet-Finished) threads, spec §6 MAX_THREADS.
	MaxThreads int

	// TimerHz is the preemption tick frequency, spec §6 DEFAULT_TIMER_HZ.
	TimerHz uint32

	// StackSizeClass is the default size class Spawn allocates when the
	// caller does not override it via a SpawnOption.
	StackSizeClass stackpool.SizeClass

	// MemLimitBytes caps the stack pool's total carved bytes. Zero means
	// auto-detect from the environment (see stackpool.NewPoolFromEnvironment).
	MemLimitBytes uint64
}

var setMaxProcsOnce sync.Once

func (c Config) withDefaults() Config {
	setMaxProcsOnce.Do(func() {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	})
	if c.CPUCount <= 0 {
		c.CPUCount = runtime.GOMAXPROCS(0)
	}
	if c.MaxThreads <= 0 {
		c.MaxThreads = defaultMaxThreads
	}
	if c.TimerHz == 0 {
		c.TimerHz = defaultTimerHz
	}
	return c
}

func (c Config) pool() *stackpool.Pool {
	if c.MemLimitBytes != 0 {
		return stackpool.NewPool(c.MemLimitBytes)
	}
	return stackpool.NewPoolFromEnvironment()
}

// fileConfig is the on-disk shape LoadConfig decodes, kept separate from
// Config so the TOML tags don't leak onto the programmatic API.
type fileConfig struct {
	CPUCount       int    `toml:"cpu_count"`
	MaxThreads     int    `toml:"max_threads"`
	TimerHz        uint32 `toml:"timer_hz"`
	StackSizeClass string `toml:"stack_size_class"`
	MemLimitBytes  uint64 `toml:"mem_limit_bytes"`
}

// LoadConfig reads a TOML file into a Config, additive to the compiled-in
// defaults (SPEC_FULL.md's file-based configuration supplement over spec
// §6's const-only surface). Unset fields remain zero and pick up
// withDefaults' fallbacks at Init time.
func LoadConfig(path string) (Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return Config{}, err
	}

	cfg := Config{
		CPUCount:      fc.CPUCount,
		MaxThreads:    fc.MaxThreads,
		TimerHz:       fc.TimerHz,
		MemLimitBytes: fc.MemLimitBytes,
	}
	switch fc.StackSizeClass {
	case "medium":
		cfg.StackSizeClass = stackpool.Medium
	case "large":
		cfg.StackSizeClass = stackpool.Large
	case "small", "":
		cfg.StackSizeClass = stackpool.Small
	}
	return cfg, nil
}
