package safety

import (
	"fmt"
	"strings"
)

// Risk is the totally ordered risk taxonomy. Combining findings takes the
// maximum.
type Risk int

// Risk levels, lowest first.
const (
	RiskLow Risk = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{"low", "medium", "high", "critical"}

func (r Risk) String() string {
	if r < RiskLow || r > RiskCritical {
		return fmt.Sprintf("risk(%d)", int(r))
	}
	return riskNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Risk) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Risk) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range riskNames {
		if n == name {
			*r = Risk(i)
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", name)
}

// MaxRisk returns the highest of the given levels, RiskLow for none.
func MaxRisk(levels ...Risk) Risk {
	out := RiskLow
	for _, l := range levels {
		if l > out {
			out = l
		}
	}
	return out
}
