// Command kdemo is a minimal illustrative embedder of the kernel package:
// it is not a benchmark harness (spec's explicit Non-goals), just a
// walkthrough of Init/Spawn/Join/Shutdown worth reading alongside the
// package doc comments.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/NathanVRyver/preemptive-threads/arch"
	"github.com/NathanVRyver/preemptive-threads/kernel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kdemo:", err)
		os.Exit(1)
	}
}

func run() error {
	k := kernel.NewKernel(arch.NewSoftware())
	if err := k.Init(kernel.Config{CPUCount: 2}); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	fmt.Fprintf(os.Stderr, "kdemo: initialized, timer available = %v\n", k.TimerAvailable())

	worker, err := k.Spawn(func(ctx *kernel.ThreadContext) {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(os.Stderr, "kdemo: worker tick %d\n", i)
			ctx.Yield()
		}
		ctx.Exit("worker done")
	}, 10, kernel.WithName("worker"))
	if err != nil {
		return fmt.Errorf("spawn worker: %w", err)
	}

	watcher, err := k.Spawn(func(ctx *kernel.ThreadContext) {
		fmt.Fprintln(os.Stderr, "kdemo: watcher running")
		ctx.Exit(nil)
	}, 200, kernel.WithName("watcher"))
	if err != nil {
		return fmt.Errorf("spawn watcher: %w", err)
	}

	result, err := worker.Join()
	if err != nil {
		return fmt.Errorf("join worker: %w", err)
	}
	fmt.Fprintf(os.Stderr, "kdemo: worker returned %v\n", result)

	if _, err := watcher.Join(); err != nil {
		return fmt.Errorf("join watcher: %w", err)
	}

	stats := k.Stats()
	fmt.Fprintf(os.Stderr, "kdemo: stats = %+v\n", stats)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := k.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Fprintln(os.Stderr, "kdemo: shutdown complete")
	return nil
}
