package safety

import "fmt"

// Verdict is the outcome of a safety check. BlockedReason is set iff
// Allowed is false.
type Verdict struct {
	Allowed       bool     `json:"allowed"`
	Risk          Risk     `json:"risk"`
	Warnings      []string `json:"warnings,omitempty"`
	BlockedReason string   `json:"blocked_reason,omitempty"`
}

func block(risk Risk, format string, args ...any) Verdict {
	return Verdict{Risk: risk, BlockedReason: fmt.Sprintf(format, args...)}
}

// findings accumulates non-blocking warnings for one check.
type findings struct {
	risk     Risk
	warnings []string
}

func (f *findings) warn(risk Risk, format string, args ...any) {
	f.risk = MaxRisk(f.risk, risk)
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

func (f *findings) merge(v Verdict) {
	f.risk = MaxRisk(f.risk, v.Risk)
	f.warnings = append(f.warnings, v.Warnings...)
}

func (f *findings) verdict() Verdict {
	return Verdict{Allowed: true, Risk: f.risk, Warnings: f.warnings}
}
