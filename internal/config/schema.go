package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// ErrSchema is returned when the config file has unknown keys or mistyped values.
var ErrSchema = errors.New("config file does not match the schema")

// validateFile checks the raw config file against the embedded JSON schema.
// Ranges and enumerations are left to Validate.
func validateFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var doc any

	err = yaml.Unmarshal(raw, &doc)
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s: %s", ErrSchema, path, strings.Join(problems, "; "))
}
