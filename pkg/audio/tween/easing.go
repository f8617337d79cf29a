// ABOUTME: Easing curves for tweened parameters
// ABOUTME: Maps linear progress in [0, 1] to eased progress
package tween

import (
	"fmt"
	"math"
	"strings"
)

// EasingKind selects the shape of an easing curve
type EasingKind int

const (
	Linear EasingKind = iota
	InPow
	OutPow
	InOutPow
)

// Easing describes how a tween moves from its start value to its target.
// The zero value is linear.
type Easing struct {
	Kind  EasingKind
	Power float64
}

// Apply maps x in [0, 1] onto the curve
func (e Easing) Apply(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	power := e.Power
	if power <= 0 {
		power = 2
	}
	switch e.Kind {
	case InPow:
		return math.Pow(x, power)
	case OutPow:
		return 1 - math.Pow(1-x, power)
	case InOutPow:
		x *= 2
		if x < 1 {
			return math.Pow(x, power) / 2
		}
		return 1 - math.Pow(2-x, power)/2
	default:
		return x
	}
}

// String returns the name used in configuration files
func (e Easing) String() string {
	switch e.Kind {
	case InPow:
		return fmt.Sprintf("in-pow-%g", e.Power)
	case OutPow:
		return fmt.Sprintf("out-pow-%g", e.Power)
	case InOutPow:
		return fmt.Sprintf("in-out-pow-%g", e.Power)
	default:
		return "linear"
	}
}

// ParseEasing parses names such as "linear", "in-pow-2" or "in-out-pow-3"
func ParseEasing(name string) (Easing, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "linear" {
		return Easing{}, nil
	}

	prefixes := []struct {
		prefix string
		kind   EasingKind
	}{
		{"in-out-pow-", InOutPow},
		{"in-pow-", InPow},
		{"out-pow-", OutPow},
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(name, p.prefix) {
			continue
		}
		var power float64
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, p.prefix), "%g", &power); err != nil || power <= 0 {
			return Easing{}, fmt.Errorf("invalid easing power in %q", name)
		}
		return Easing{Kind: p.kind, Power: power}, nil
	}

	return Easing{}, fmt.Errorf("unknown easing: %s", name)
}
