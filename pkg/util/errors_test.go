package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("org_name", "2 organizations named \"acme\"")

	msg := err.Error()
	if !strings.Contains(msg, "org_name") {
		t.Errorf("Error message should contain setting: %s", msg)
	}
	if !strings.Contains(msg, "acme") {
		t.Errorf("Error message should contain details: %s", msg)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ConfigError should unwrap to ErrInvalidConfig")
	}

	bare := NewConfigError("org_id", "")
	if strings.HasSuffix(bare.Error(), ")") {
		t.Errorf("Error message should not have empty details: %s", bare.Error())
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name    string
		matches int
		want    string
	}{
		{"zero matches", 0, "not found"},
		{"ambiguous", 2, "2 inventory records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNotFoundError("sw1", "123456", tt.matches)
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error() = %q, want substring %q", err.Error(), tt.want)
			}
			if !errors.Is(err, ErrDeviceNotFound) {
				t.Errorf("NotFoundError should unwrap to ErrDeviceNotFound")
			}
		})
	}
}

func TestUnreachableError(t *testing.T) {
	err := NewUnreachableError("ap1", "Q2XX-AAAA-BBBB", "failed")
	if !strings.Contains(err.Error(), "Q2XX-AAAA-BBBB") {
		t.Errorf("Error message should contain serial: %s", err.Error())
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("UnreachableError should unwrap to ErrUnreachable")
	}
	if errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UnreachableError must be distinct from ErrDeviceNotFound")
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := &ValidationError{Errors: []string{"field is required"}}
		if !strings.Contains(err.Error(), "field is required") {
			t.Errorf("Error message should contain the error: %s", err.Error())
		}
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("ValidationError should unwrap to ErrValidationFailed")
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := &ValidationError{Errors: []string{"error1", "error2"}}
		msg := err.Error()
		if !strings.Contains(msg, "error1") || !strings.Contains(msg, "error2") {
			t.Errorf("Missing errors in: %s", msg)
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	v := &ValidationBuilder{}
	if v.HasErrors() {
		t.Error("New builder should have no errors")
	}
	if v.Build() != nil {
		t.Error("Build() on empty builder should return nil")
	}

	v.Add(true, "should not appear")
	v.Add(false, "device name required")
	v.AddErrorf("collection %d has no kind", 3)

	if !v.HasErrors() {
		t.Fatal("Builder should have errors")
	}
	err := v.Build()
	if !strings.Contains(err.Error(), "device name required") {
		t.Errorf("Missing message in: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "collection 3 has no kind") {
		t.Errorf("Missing formatted message in: %s", err.Error())
	}
	if strings.Contains(err.Error(), "should not appear") {
		t.Errorf("Satisfied condition leaked into: %s", err.Error())
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrInvalidConfig,
		ErrDeviceNotFound,
		ErrUnreachable,
		ErrNotReady,
		ErrUnsupportedPayload,
		ErrValidationFailed,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"ConfigError", NewConfigError("org_id", ""), ErrInvalidConfig},
		{"NotFoundError", NewNotFoundError("d", "o", 0), ErrDeviceNotFound},
		{"UnreachableError", NewUnreachableError("d", "s", "timeout"), ErrUnreachable},
		{"StateError", NewStateError("d", "execute", "uninitialized"), ErrNotReady},
		{"PayloadError", NewPayloadError("switch.getDeviceSwitchPortsStatuses", "cdp only"), ErrUnsupportedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("setup: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("%s should wrap %v", tt.name, tt.sentinel)
			}
		})
	}
}
