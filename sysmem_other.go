//go:build !linux

package clbench

// systemMemory returns a fixed estimate where no syscall is wired up.
func systemMemory() uint64 {
	return defaultSystemMemory
}
