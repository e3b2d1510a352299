package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var settingsSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("compile config schema: %v", err))
	}
	return s
}()

// SchemaError lists the settings that do not match the config schema, one
// "field: problem" entry each, sorted.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// ValidateSettings checks raw settings (as read by viper, before defaults are
// merged) against the embedded config schema.
func ValidateSettings(settings map[string]any) error {
	result, err := settingsSchema.Validate(gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.Field()+": "+re.Description())
	}
	sort.Strings(problems)
	return &SchemaError{Problems: problems}
}
