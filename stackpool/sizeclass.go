package stackpool

// SizeClass buckets stack allocations, spec §4.3/§6.
type SizeClass int

const (
	// Small is the 16 KiB size class, the default for Kernel.Spawn.
	Small SizeClass = iota
	// Medium is the 64 KiB size class.
	Medium
	// Large is the 256 KiB size class.
	Large
	// Custom indicates a non-standard size chosen via ThreadBuilder.StackSize;
	// custom allocations are carved one at a time and never pooled.
	Custom
)

// Bytes returns the fixed size, in bytes, of the standard size classes.
// Calling it on Custom panics - custom sizes are carried on the Stack
// itself, not looked up from a table.
func (c SizeClass) Bytes() int {
	switch c {
	case Small:
		return 16 * 1024
	case Medium:
		return 64 * 1024
	case Large:
		return 256 * 1024
	default:
		panic("stackpool: size class: Bytes called on Custom")
	}
}

func (c SizeClass) String() string {
	switch c {
	case Small:
		return "Small"
	case Medium:
		return "Medium"
	case Large:
		return "Large"
	case Custom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// ForSize returns the smallest standard size class that can hold size
// bytes, or Custom if size exceeds Large.
func ForSize(size int) SizeClass {
	switch {
	case size <= Small.Bytes():
		return Small
	case size <= Medium.Bytes():
		return Medium
	case size <= Large.Bytes():
		return Large
	default:
		return Custom
	}
}
