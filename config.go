// Package clbench configuration constants
package clbench

import (
	"fmt"
	"strconv"
	"strings"
)

// Reference benchmark configuration
const (
	// Square matrix edge used by the reference run
	DefaultMatrixSize = 1024

	// Work-group edge length for the tiled variants
	DefaultTileSize = 16

	// Output rows computed by one work-item of the register-blocked variant
	DefaultWorkPerThread = 8

	// Absolute tolerance for sequential vs parallel comparison
	DefaultTolerance = 0.001
)

// Device limits of the CPU compute device
const (
	// Maximum work-items per work-group
	MaxWorkGroupSize = 1024

	// Group-local memory per work-group in bytes (typical L1 data cache)
	LocalMemSize = 32 * 1024

	// Alignment of device buffer allocations in bytes
	BufferAlignment = 64

	// Largest single buffer allocation in bytes
	MaxMemAllocSize = 1 << 30

	// Global memory reported when the platform cannot tell
	defaultSystemMemory = 16 * 1024 * 1024 * 1024
)

// Config describes one benchmark run. It is built once when the run starts
// and handed to every component that needs it.
type Config struct {
	RowA int // rows of A and C
	ColA int // columns of A, rows of B
	ColB int // columns of B and C

	TileSize      int // TS build option
	WorkPerThread int // WPT build option

	Tolerance float32

	// Seed for the input matrices. Zero picks a time-based seed.
	Seed uint64
}

// DefaultConfig returns the reference configuration: 1024x1024 matrices,
// TS=16, WPT=8, tolerance 0.001.
func DefaultConfig() Config {
	return Config{
		RowA:          DefaultMatrixSize,
		ColA:          DefaultMatrixSize,
		ColB:          DefaultMatrixSize,
		TileSize:      DefaultTileSize,
		WorkPerThread: DefaultWorkPerThread,
		Tolerance:     DefaultTolerance,
	}
}

// Validate checks dimensions and the tiling parameters against the device
// limits.
func (c Config) Validate() error {
	if c.RowA <= 0 || c.ColA <= 0 || c.ColB <= 0 {
		return NewInvalidArgError("Config", fmt.Sprintf("matrix dimensions must be positive, got %dx%d * %dx%d",
			c.RowA, c.ColA, c.ColA, c.ColB))
	}
	if c.TileSize <= 0 {
		return NewInvalidArgError("Config", fmt.Sprintf("tile size must be positive, got %d", c.TileSize))
	}
	if c.WorkPerThread <= 0 {
		return NewInvalidArgError("Config", fmt.Sprintf("work per thread must be positive, got %d", c.WorkPerThread))
	}
	if c.TileSize%c.WorkPerThread != 0 {
		return NewInvalidArgError("Config", fmt.Sprintf("tile size %d is not a multiple of work per thread %d",
			c.TileSize, c.WorkPerThread))
	}
	if c.TileSize*c.TileSize > MaxWorkGroupSize {
		return NewInvalidArgError("Config", fmt.Sprintf("tile size %d exceeds the maximum work-group size %d",
			c.TileSize, MaxWorkGroupSize))
	}
	// Two TSxTS float tiles live in local memory at once
	if 2*c.TileSize*c.TileSize*4 > LocalMemSize {
		return NewInvalidArgError("Config", fmt.Sprintf("tile size %d needs more than %d bytes of local memory",
			c.TileSize, LocalMemSize))
	}
	if c.Tolerance < 0 {
		return NewInvalidArgError("Config", "tolerance must not be negative")
	}
	return nil
}

// BuildOptions formats the compile-time constants passed to the program
// build, e.g. "-D TS=16 -D WPT=8".
func (c Config) BuildOptions() string {
	var sb strings.Builder
	sb.WriteString("-D TS=")
	sb.WriteString(strconv.Itoa(c.TileSize))
	sb.WriteString(" -D WPT=")
	sb.WriteString(strconv.Itoa(c.WorkPerThread))
	return sb.String()
}

// FLOPs returns the floating point operation count of one C = A*B.
func (c Config) FLOPs() float64 {
	return 2 * float64(c.RowA) * float64(c.ColA) * float64(c.ColB)
}
