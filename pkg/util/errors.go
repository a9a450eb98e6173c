// Package util provides logging, common error types, and VLAN/interface helpers.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used to classify validation failures
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrUnreachable        = errors.New("device unreachable")
	ErrNotReady           = errors.New("session not ready")
	ErrUnsupportedPayload = errors.New("unsupported payload")
	ErrValidationFailed   = errors.New("validation failed")
)

// ConfigError reports a missing or unresolvable plugin setting.
type ConfigError struct {
	Setting string
	Details string
}

func (e *ConfigError) Error() string {
	msg := "configuration error: " + e.Setting
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a configuration error
func NewConfigError(setting, details string) *ConfigError {
	return &ConfigError{Setting: setting, Details: details}
}

// NotFoundError reports a device that could not be located in the
// organization inventory, or that matched ambiguously.
type NotFoundError struct {
	Device  string
	Org     string
	Matches int
}

func (e *NotFoundError) Error() string {
	if e.Matches > 1 {
		return fmt.Sprintf("device %s: %d inventory records match in organization %s", e.Device, e.Matches, e.Org)
	}
	return fmt.Sprintf("device %s not found in organization %s", e.Device, e.Org)
}

func (e *NotFoundError) Unwrap() error {
	return ErrDeviceNotFound
}

// NewNotFoundError creates a device-not-found error
func NewNotFoundError(device, org string, matches int) *NotFoundError {
	return &NotFoundError{Device: device, Org: org, Matches: matches}
}

// UnreachableError reports a device whose reachability probe did not complete.
type UnreachableError struct {
	Device string
	Serial string
	Status string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("device %s (%s) unreachable: probe status %q", e.Device, e.Serial, e.Status)
}

func (e *UnreachableError) Unwrap() error {
	return ErrUnreachable
}

// NewUnreachableError creates an unreachable-device error
func NewUnreachableError(device, serial, status string) *UnreachableError {
	return &UnreachableError{Device: device, Serial: serial, Status: status}
}

// StateError reports a lifecycle method called from the wrong state.
type StateError struct {
	Device    string
	Operation string
	State     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s on %s: session is %s", e.Operation, e.Device, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrNotReady
}

// NewStateError creates a lifecycle state error
func NewStateError(device, operation, state string) *StateError {
	return &StateError{Device: device, Operation: operation, State: state}
}

// PayloadError reports an API payload that cannot be measured safely.
type PayloadError struct {
	Operation string
	Details   string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("unsupported payload from %s: %s", e.Operation, e.Details)
}

func (e *PayloadError) Unwrap() error {
	return ErrUnsupportedPayload
}

// NewPayloadError creates an unsupported-payload error
func NewPayloadError(operation, details string) *PayloadError {
	return &PayloadError{Operation: operation, Details: details}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
