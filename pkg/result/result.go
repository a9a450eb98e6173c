// Package result defines the check result taxonomy returned by every check
// handler, and the comparators shared between the handler families.
package result

import (
	"fmt"
	"sort"
)

// Kind tags a Result variant.
type Kind string

const (
	KindPass               Kind = "pass"
	KindFailFieldMismatch  Kind = "fail-field-mismatch"
	KindFailMissingMembers Kind = "fail-missing-members"
	KindFailExtraMembers   Kind = "fail-extra-members"
	KindFailNoExists       Kind = "fail-no-exists"
	KindInfo               Kind = "info"
	KindSkip               Kind = "skip"
)

// Kinds lists every variant in report order.
var Kinds = []Kind{
	KindPass,
	KindFailFieldMismatch,
	KindFailMissingMembers,
	KindFailExtraMembers,
	KindFailNoExists,
	KindInfo,
	KindSkip,
}

// IsFailure reports whether k is one of the Fail* variants.
func (k Kind) IsFailure() bool {
	switch k {
	case KindFailFieldMismatch, KindFailMissingMembers, KindFailExtraMembers, KindFailNoExists:
		return true
	}
	return false
}

// Ref ties a result back to the device and check it resolves.
type Ref struct {
	Device    string
	CheckType string
	CheckID   string
}

// For builds a Ref.
func For(device, checkType, checkID string) Ref {
	return Ref{Device: device, CheckType: checkType, CheckID: checkID}
}

// Result is one finding. Which of the optional fields are set depends on Kind.
// Results are built once by the constructors below and never mutated.
type Result struct {
	Kind        Kind   `json:"kind"`
	Device      string `json:"device"`
	CheckType   string `json:"check_type,omitempty"`
	CheckID     string `json:"check_id,omitempty"`
	Field       string `json:"field,omitempty"`
	Expected    any    `json:"expected,omitempty"`
	Measurement any    `json:"measurement,omitempty"`
	Missing     any    `json:"missing,omitempty"`
	Extras      any    `json:"extras,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (r Result) String() string {
	s := fmt.Sprintf("%s %s/%s", r.Kind, r.Device, r.CheckType)
	if r.CheckID != "" {
		s += "[" + r.CheckID + "]"
	}
	if r.Field != "" {
		s += " " + r.Field
	}
	if r.Message != "" {
		s += ": " + r.Message
	}
	return s
}

func newResult(kind Kind, ref Ref) Result {
	return Result{Kind: kind, Device: ref.Device, CheckType: ref.CheckType, CheckID: ref.CheckID}
}

// Pass records a successful check.
func Pass(ref Ref, field string, measurement any) Result {
	r := newResult(KindPass, ref)
	r.Field = field
	r.Measurement = measurement
	return r
}

// FieldMismatch records a measured value that differs from the design.
func FieldMismatch(ref Ref, field string, expected, measurement any) Result {
	r := newResult(KindFailFieldMismatch, ref)
	r.Field = field
	r.Expected = expected
	r.Measurement = measurement
	return r
}

// MissingMembers records expected set members absent from the device.
func MissingMembers(ref Ref, field string, expected, missing any) Result {
	r := newResult(KindFailMissingMembers, ref)
	r.Field = field
	r.Expected = expected
	r.Missing = missing
	return r
}

// ExtraMembers records set members found on the device but not in the design.
func ExtraMembers(ref Ref, field string, expected, extras any) Result {
	r := newResult(KindFailExtraMembers, ref)
	r.Field = field
	r.Expected = expected
	r.Extras = extras
	return r
}

// NoExists records a check whose identifier has no measured counterpart.
func NoExists(ref Ref, field string) Result {
	r := newResult(KindFailNoExists, ref)
	r.Field = field
	return r
}

// NoExistsWithReason is NoExists carrying the raw measurement and an explanation.
func NoExistsWithReason(ref Ref, measurement any, message string) Result {
	r := newResult(KindFailNoExists, ref)
	r.Measurement = measurement
	r.Message = message
	return r
}

// Info records state for the operator without affecting success.
func Info(ref Ref, field string, measurement any) Result {
	r := newResult(KindInfo, ref)
	r.Field = field
	r.Measurement = measurement
	return r
}

// Skip records that a collection was not evaluated.
func Skip(ref Ref, message string) Result {
	r := newResult(KindSkip, ref)
	r.Message = message
	return r
}

// Results is the ordered output of one collection.
type Results []Result

// AnyFailures reports whether any result is a Fail* variant.
func (rs Results) AnyFailures() bool {
	for _, r := range rs {
		if r.Kind.IsFailure() {
			return true
		}
	}
	return false
}

// Failures returns only the Fail* results.
func (rs Results) Failures() Results {
	var out Results
	for _, r := range rs {
		if r.Kind.IsFailure() {
			out = append(out, r)
		}
	}
	return out
}

// Counts tallies results per kind.
func (rs Results) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, r := range rs {
		counts[r.Kind]++
	}
	return counts
}

// ForCheck returns the results that resolve the given check id.
func (rs Results) ForCheck(checkID string) Results {
	var out Results
	for _, r := range rs {
		if r.CheckID == checkID {
			out = append(out, r)
		}
	}
	return out
}

// SortByDevice orders results by device, keeping per-device order stable.
func (rs Results) SortByDevice() {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Device < rs[j].Device })
}
