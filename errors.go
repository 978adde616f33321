// Package clbench structured error types
package clbench

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Kernel source or other input resource missing or unreadable
	ErrTypeResource ErrorType = iota
	// Device API call failed
	ErrTypeDevice
	// Program build failed
	ErrTypeCompile
	// Invalid argument errors
	ErrTypeInvalidArg
	// Kernel execution errors
	ErrTypeExecution
	// Device memory errors
	ErrTypeMemory
)

// Error represents a structured error with context. Location is the
// file:line of the call that observed the failure, when known.
type Error struct {
	Type     ErrorType
	Op       string // Operation that failed
	Message  string // Human-readable message
	Err      error  // Underlying error if any
	Location string
}

// Error implements the error interface
func (e *Error) Error() string {
	var prefix string
	if e.Location != "" {
		prefix = "[" + e.Location + "] "
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s error in %s: %s (caused by: %v)",
			prefix, e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s%s error in %s: %s",
		prefix, e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeResource:
		return "Resource"
	case ErrTypeDevice:
		return "Device"
	case ErrTypeCompile:
		return "Compile"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeMemory:
		return "Memory"
	default:
		return "Unknown"
	}
}

// BuildError is returned by Program.Build. Log holds the complete build log.
type BuildError struct {
	Options string
	Log     string
}

func (e *BuildError) Error() string {
	if e.Options == "" {
		return "program build failure"
	}
	return fmt.Sprintf("program build failure (options %q)", e.Options)
}

// Common error constructors

// NewResourceError creates an error for a missing or unreadable resource
func NewResourceError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeResource,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewDeviceError creates a device API error
func NewDeviceError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeDevice,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewCompileError creates a program build error
func NewCompileError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeCompile,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// deviceCall tags a failed device API call with its operation name and the
// location of the caller. A nil err yields nil. Build failures pass through
// unchanged so the log stays reachable with errors.As.
func deviceCall(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BuildError
	if errors.As(err, &be) {
		return err
	}
	loc := ""
	if _, file, line, ok := runtime.Caller(1); ok {
		loc = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return &Error{
		Type:     ErrTypeDevice,
		Op:       op,
		Message:  "device call failed",
		Err:      err,
		Location: loc,
	}
}

// Common pre-defined errors

var (
	// ErrDeviceNotFound indicates no compute-capable device is available
	ErrDeviceNotFound = NewDeviceError("GetDeviceIDs", "no compute device available", nil)

	// ErrReleased indicates use of an object after Release
	ErrReleased = NewInvalidArgError("Release", "object already released")

	// ErrInvalidBufferSize indicates a zero, negative or non-float32-sized buffer
	ErrInvalidBufferSize = NewInvalidArgError("CreateBuffer", "size must be a positive multiple of 4 bytes")

	// ErrOutOfMemory indicates the device memory limit was reached
	ErrOutOfMemory = NewMemoryError("CreateBuffer", "out of device memory", nil)

	// ErrDoubleFree indicates a buffer was released twice
	ErrDoubleFree = NewMemoryError("ReleaseMemObject", "double free detected", nil)

	// ErrInvalidKernelName indicates the program has no such entry point
	ErrInvalidKernelName = NewInvalidArgError("CreateKernel", "no kernel with that name in program")

	// ErrProgramNotBuilt indicates a kernel was requested from an unbuilt program
	ErrProgramNotBuilt = NewInvalidArgError("CreateKernel", "program has not been built successfully")

	// ErrInvalidArgIndex indicates SetArg with an out-of-range index
	ErrInvalidArgIndex = NewInvalidArgError("SetKernelArg", "argument index out of range")

	// ErrArgsNotSet indicates a dispatch with unset kernel arguments
	ErrArgsNotSet = NewInvalidArgError("EnqueueNDRangeKernel", "kernel arguments not set")

	// ErrInvalidWorkGroupSize indicates a geometry the kernel or device cannot run
	ErrInvalidWorkGroupSize = NewInvalidArgError("EnqueueNDRangeKernel", "invalid work-group size")

	// ErrDimensionMismatch indicates operands whose shapes do not compose
	ErrDimensionMismatch = NewInvalidArgError("MatMul", "matrix dimensions do not match")
)

// IsResourceError checks if an error is a resource error
func IsResourceError(err error) bool {
	return hasType(err, ErrTypeResource)
}

// IsDeviceError checks if an error is a device API error
func IsDeviceError(err error) bool {
	return hasType(err, ErrTypeDevice)
}

// IsCompileError checks if an error is a program build error
func IsCompileError(err error) bool {
	return hasType(err, ErrTypeCompile)
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	return hasType(err, ErrTypeInvalidArg)
}

// IsExecutionError checks if an error is an execution error
func IsExecutionError(err error) bool {
	return hasType(err, ErrTypeExecution)
}

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	return hasType(err, ErrTypeMemory)
}

// IsBuildError checks if an error carries a program build failure
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// hasType reports whether any *Error in err's chain has type t.
func hasType(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}
