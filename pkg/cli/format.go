// Package cli provides shared formatting helpers for the netcam-meraki CLI.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/newtron-network/netcam-meraki/pkg/result"
	"github.com/newtron-network/netcam-meraki/pkg/util"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}

// DotPad pads name with dots to the given width.
// Example: DotPad("sw01", 30) → "sw01 ........................."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// KindLabel returns the display label for a result kind, colored by outcome.
func KindLabel(k result.Kind) string {
	switch {
	case k == result.KindPass:
		return Green("PASS")
	case k.IsFailure():
		return Red("FAIL")
	case k == result.KindSkip:
		return Yellow("SKIP")
	default:
		return Dim("INFO")
	}
}

// Detail renders the kind-specific payload of r on one line.
func Detail(r result.Result) string {
	switch r.Kind {
	case result.KindFailFieldMismatch:
		return fmt.Sprintf("expected %s, measured %s", value(r.Expected), value(r.Measurement))
	case result.KindFailMissingMembers:
		return "missing " + value(r.Missing)
	case result.KindFailExtraMembers:
		return "unexpected " + value(r.Extras)
	case result.KindFailNoExists:
		if r.Message != "" {
			return r.Message
		}
		return "not found"
	case result.KindSkip:
		return r.Message
	}
	if r.Measurement == nil {
		return r.Message
	}
	return value(r.Measurement)
}

// value renders VLAN id sets in range notation ("10,20-22").
func value(v any) string {
	ids, ok := v.([]int)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	if len(ids) == 0 {
		return "none"
	}
	return util.CompactRange(ids)
}
