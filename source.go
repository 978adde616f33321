package clbench

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed kernels/matmul.cl
var matmulSource string

// DefaultKernelSource returns the built-in source of the four matmul
// kernels.
func DefaultKernelSource() string {
	return matmulSource
}

// LoadKernelSource reads kernel source from path.
func LoadKernelSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", NewResourceError("LoadKernelSource", fmt.Sprintf("cannot read kernel source %s", path), err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", NewResourceError("LoadKernelSource", fmt.Sprintf("kernel source %s is empty", path), nil)
	}
	return string(data), nil
}
