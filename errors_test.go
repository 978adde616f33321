package clbench

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Memory Error",
			err:      ErrOutOfMemory,
			wantType: ErrTypeMemory,
			wantOp:   "CreateBuffer",
			wantMsg:  "out of device memory",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Buffer Size",
			err:      ErrInvalidBufferSize,
			wantType: ErrTypeInvalidArg,
			wantOp:   "CreateBuffer",
			wantMsg:  "size must be a positive multiple of 4 bytes",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "No Device Error",
			err:      ErrDeviceNotFound,
			wantType: ErrTypeDevice,
			wantOp:   "GetDeviceIDs",
			wantMsg:  "no compute device available",
			checkFn:  IsDeviceError,
		},
		{
			name:     "Unknown Kernel",
			err:      ErrInvalidKernelName,
			wantType: ErrTypeInvalidArg,
			wantOp:   "CreateKernel",
			wantMsg:  "no kernel with that name in program",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Double Free",
			err:      ErrDoubleFree,
			wantType: ErrTypeMemory,
			wantOp:   "ReleaseMemObject",
			wantMsg:  "double free detected",
			checkFn:  IsMemoryError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := tt.err.(*Error)
			if !ok {
				t.Fatalf("Expected *Error, got %T", tt.err)
			}
			if e.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", e.Type, tt.wantType)
			}
			if e.Op != tt.wantOp {
				t.Errorf("Op = %v, want %v", e.Op, tt.wantOp)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", e.Message, tt.wantMsg)
			}
			if !tt.checkFn(tt.err) {
				t.Errorf("Type check function returned false")
			}
			if tt.err.Error() == "" {
				t.Error("Error string is empty")
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	baseErr := errors.New("base error")
	wrappedErr := NewExecutionError("Test", "wrapped error", baseErr)

	e, ok := wrappedErr.(*Error)
	if !ok {
		t.Fatal("Expected *Error")
	}
	if e.Unwrap() != baseErr {
		t.Errorf("Unwrap() = %v, want %v", e.Unwrap(), baseErr)
	}
	if !errors.Is(wrappedErr, baseErr) {
		t.Error("errors.Is() should return true for wrapped error")
	}
	if !strings.Contains(wrappedErr.Error(), "caused by: base error") {
		t.Errorf("Error() = %q, want cause in message", wrappedErr.Error())
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{ErrTypeResource, "Resource"},
		{ErrTypeDevice, "Device"},
		{ErrTypeCompile, "Compile"},
		{ErrTypeInvalidArg, "InvalidArgument"},
		{ErrTypeExecution, "Execution"},
		{ErrTypeMemory, "Memory"},
		{ErrorType(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeviceCall(t *testing.T) {
	if deviceCall("Noop", nil) != nil {
		t.Fatal("deviceCall(nil) should be nil")
	}

	err := deviceCall("CreateBuffer", ErrOutOfMemory)
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if e.Type != ErrTypeDevice || e.Op != "CreateBuffer" {
		t.Errorf("got %v error in %s, want Device error in CreateBuffer", e.Type, e.Op)
	}
	if !strings.HasPrefix(e.Location, "errors_test.go:") {
		t.Errorf("Location = %q, want the caller's file:line", e.Location)
	}
	if !errors.Is(err, ErrOutOfMemory) || !IsMemoryError(err) {
		t.Error("device error should keep its cause in the chain")
	}
}

func TestDeviceCallKeepsBuildLog(t *testing.T) {
	build := NewCompileError("BuildProgram", "1 error(s) generated",
		&BuildError{Options: "-D TS=16", Log: "<source>:1:1: error: boom\n"})
	err := deviceCall("BuildProgram", fmt.Errorf("variant 2: %w", build))

	if !IsCompileError(err) {
		t.Error("build failure should stay a compile error")
	}
	if IsDeviceError(err) {
		t.Error("build failure should not be re-tagged as a device error")
	}
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatal("errors.As should find the *BuildError")
	}
	if be.Log == "" {
		t.Error("build log is empty")
	}
}
