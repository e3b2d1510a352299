// Package config provides configuration loading and management for screenpilot.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/capture"
	"github.com/metalagman/screenpilot/internal/executor"
	"github.com/metalagman/screenpilot/internal/planner"
	"github.com/metalagman/screenpilot/internal/safety"
	"github.com/metalagman/screenpilot/internal/screen"
)

// Dir is the per-project state directory.
const Dir = ".screenpilot"

// Automation drivers.
const (
	DriverXdotool = "xdotool"
	DriverDryRun  = "dryrun"
)

// Config is the root configuration.
type Config struct {
	LLM      planner.Config `json:"llm"      mapstructure:"llm"      yaml:"llm"`
	Capture  CaptureConfig  `json:"capture"  mapstructure:"capture"  yaml:"capture"`
	OCR      OCRConfig      `json:"ocr"      mapstructure:"ocr"      yaml:"ocr"`
	Security SecurityConfig `json:"security" mapstructure:"security" yaml:"security"`
	Screen   screen.Size    `json:"screen"   mapstructure:"screen"   yaml:"screen"`
	Executor ExecutorConfig `json:"executor" mapstructure:"executor" yaml:"executor"`
	Audit    AuditConfig    `json:"audit"    mapstructure:"audit"    yaml:"audit"`
}

// CaptureConfig selects the screenshot command.
type CaptureConfig struct {
	Command string `json:"command" mapstructure:"command" yaml:"command"`
	Dir     string `json:"dir"     mapstructure:"dir"     yaml:"dir"`
}

// OCRConfig selects the OCR engine.
type OCRConfig struct {
	Binary    string `json:"binary"    mapstructure:"binary"    yaml:"binary"`
	Languages string `json:"languages" mapstructure:"languages" yaml:"languages"`
}

// SecurityConfig holds the safety evaluator limits.
type SecurityConfig struct {
	AllowedActions       []string `json:"allowed_actions"        mapstructure:"allowed_actions"        yaml:"allowed_actions"`
	MaxExecutionTime     float64  `json:"max_execution_time"     mapstructure:"max_execution_time"     yaml:"max_execution_time"`
	WaitWarnSeconds      float64  `json:"wait_warn_seconds"      mapstructure:"wait_warn_seconds"      yaml:"wait_warn_seconds"`
	MaxActionsPerMinute  int      `json:"max_actions_per_minute" mapstructure:"max_actions_per_minute" yaml:"max_actions_per_minute"`
	MaxInstructionLength int      `json:"max_instruction_length" mapstructure:"max_instruction_length" yaml:"max_instruction_length"`
	MaxTextLength        int      `json:"max_text_length"        mapstructure:"max_text_length"        yaml:"max_text_length"`
	MaxBatchActions      int      `json:"max_batch_actions"      mapstructure:"max_batch_actions"      yaml:"max_batch_actions"`
	DragWarnDistance     float64  `json:"drag_warn_distance"     mapstructure:"drag_warn_distance"     yaml:"drag_warn_distance"`
}

// ExecutorConfig holds the executor pacing and driver choice.
type ExecutorConfig struct {
	Driver             string  `json:"driver"               mapstructure:"driver"               yaml:"driver"`
	XdotoolPath        string  `json:"xdotool_path"         mapstructure:"xdotool_path"         yaml:"xdotool_path,omitempty"`
	SafetyMode         bool    `json:"safety_mode"          mapstructure:"safety_mode"          yaml:"safety_mode"`
	TypeIntervalMS     int     `json:"type_interval_ms"     mapstructure:"type_interval_ms"     yaml:"type_interval_ms"`
	DragDurationMS     int     `json:"drag_duration_ms"     mapstructure:"drag_duration_ms"     yaml:"drag_duration_ms"`
	MaxWaitSeconds     float64 `json:"max_wait_seconds"     mapstructure:"max_wait_seconds"     yaml:"max_wait_seconds"`
	MaxDurationSamples int     `json:"max_duration_samples" mapstructure:"max_duration_samples" yaml:"max_duration_samples"`
}

// AuditConfig controls the SQLite audit store and its retention.
type AuditConfig struct {
	Enabled  bool   `json:"enabled"   mapstructure:"enabled"   yaml:"enabled"`
	DBPath   string `json:"db_path"   mapstructure:"db_path"   yaml:"db_path"`
	KeepLast int    `json:"keep_last" mapstructure:"keep_last" yaml:"keep_last"`
	KeepDays int    `json:"keep_days" mapstructure:"keep_days" yaml:"keep_days"`
}

// Default returns the configuration written by "config init".
func Default() Config {
	sc := safety.DefaultConfig()
	ec := executor.DefaultConfig(screen.Size{Width: 1920, Height: 1080})
	allowed := make([]string, 0, len(sc.AllowedKinds))
	for _, k := range sc.AllowedKinds {
		allowed = append(allowed, string(k))
	}
	return Config{
		LLM: planner.Config{
			DefaultProvider: planner.TypeOllama,
			Timeout:         60 * time.Second,
			Providers: map[string]planner.ProviderConfig{
				planner.TypeOllama: {Type: planner.TypeOllama, Model: "llama3.2", BaseURL: "http://localhost:11434/v1"},
				planner.TypeOpenAI: {Type: planner.TypeOpenAI, Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
				planner.TypeGemini: {Type: planner.TypeGemini, Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY"},
			},
		},
		Capture: CaptureConfig{
			Command: capture.DefaultCommand,
			Dir:     filepath.Join(Dir, "screenshots"),
		},
		OCR: OCRConfig{Binary: "tesseract", Languages: "eng+chi_sim"},
		Security: SecurityConfig{
			AllowedActions:       allowed,
			MaxExecutionTime:     sc.MaxWaitSeconds,
			WaitWarnSeconds:      sc.WaitWarnSeconds,
			MaxActionsPerMinute:  sc.MaxActionsPerMinute,
			MaxInstructionLength: sc.MaxInstructionLength,
			MaxTextLength:        sc.MaxTextLength,
			MaxBatchActions:      sc.MaxBatchActions,
			DragWarnDistance:     sc.DragWarnDistance,
		},
		Screen: ec.Bounds,
		Executor: ExecutorConfig{
			Driver:             DriverXdotool,
			SafetyMode:         ec.SafetyMode,
			TypeIntervalMS:     int(ec.TypeInterval / time.Millisecond),
			DragDurationMS:     int(ec.DragDuration / time.Millisecond),
			MaxWaitSeconds:     ec.MaxWaitSeconds,
			MaxDurationSamples: ec.MaxDurationSamples,
		},
		Audit: AuditConfig{Enabled: true, DBPath: filepath.Join(Dir, "audit.db"), KeepDays: 30},
	}
}

// SafetyConfig converts the security section. The screen size becomes
// the initial bounds.
func (c Config) SafetyConfig() (safety.Config, error) {
	sc := safety.DefaultConfig()
	if len(c.Security.AllowedActions) > 0 {
		kinds := make([]action.Kind, 0, len(c.Security.AllowedActions))
		for _, name := range c.Security.AllowedActions {
			k, ok := action.ParseKind(name)
			if !ok {
				return safety.Config{}, fmt.Errorf("security.allowed_actions: unknown action %q", name)
			}
			kinds = append(kinds, k)
		}
		sc.AllowedKinds = kinds
	}
	setPositive(&sc.MaxWaitSeconds, c.Security.MaxExecutionTime)
	setPositive(&sc.WaitWarnSeconds, c.Security.WaitWarnSeconds)
	setPositive(&sc.MaxActionsPerMinute, c.Security.MaxActionsPerMinute)
	setPositive(&sc.MaxInstructionLength, c.Security.MaxInstructionLength)
	setPositive(&sc.MaxTextLength, c.Security.MaxTextLength)
	setPositive(&sc.MaxBatchActions, c.Security.MaxBatchActions)
	setPositive(&sc.DragWarnDistance, c.Security.DragWarnDistance)
	if c.Screen.Width > 0 && c.Screen.Height > 0 {
		sc.Bounds = c.Screen
	}
	return sc, nil
}

// ExecutorConfig converts the executor section for the given screen size.
func (c Config) ExecutorConfig(bounds screen.Size) executor.Config {
	ec := executor.DefaultConfig(bounds)
	ec.SafetyMode = c.Executor.SafetyMode
	if c.Executor.TypeIntervalMS > 0 {
		ec.TypeInterval = time.Duration(c.Executor.TypeIntervalMS) * time.Millisecond
	}
	if c.Executor.DragDurationMS > 0 {
		ec.DragDuration = time.Duration(c.Executor.DragDurationMS) * time.Millisecond
	}
	setPositive(&ec.MaxWaitSeconds, c.Executor.MaxWaitSeconds)
	setPositive(&ec.MaxDurationSamples, c.Executor.MaxDurationSamples)
	setPositive(&ec.MaxTextLength, c.Security.MaxTextLength)
	return ec
}

func setPositive[T int | float64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}
