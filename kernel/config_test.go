package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NathanVRyver/preemptive-threads/stackpool"
)

func TestLoadConfig_DecodesFileIntoConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	contents := `
cpu_count = 4
max_threads = 64
timer_hz = 2000
stack_size_class = "large"
mem_limit_bytes = 1048576
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := Config{
		CPUCount:       4,
		MaxThreads:     64,
		TimerHz:        2000,
		StackSizeClass: stackpool.Large,
		MemLimitBytes:  1048576,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadConfig result mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_MissingStackClassDefaultsToSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	contents := `
cpu_count = 1
max_threads = 8
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := Config{
		CPUCount:       1,
		MaxThreads:     8,
		StackSizeClass: stackpool.Small,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("LoadConfig result mismatch (-want +got):\n%s", diff)
	}
}
