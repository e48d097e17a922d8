// Package input loads and validates property records for training and scoring.
package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/propensity/schema"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a property file.
type Format string

// Supported property file formats.
const (
	JSONFormat Format = "json"
	YAMLFormat Format = "yaml"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so messages match the input file
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// envelope is the alternative top-level shape {"properties": [...]}.
type envelope struct {
	Properties []schema.PropertyOpportunity `json:"properties" yaml:"properties"`
}

// FormatOf picks the format from a file extension. Unknown extensions are JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLFormat
	default:
		return JSONFormat
	}
}

// LoadProperties reads and validates the property file at path. "-" reads JSON from stdin.
func LoadProperties(path string) ([]schema.PropertyOpportunity, error) {
	if path == "" {
		return nil, errors.New("an input file is required. Use --input")
	}
	if path == "-" {
		return ReadProperties(os.Stdin, JSONFormat)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = file.Close() }()

	props, err := ReadProperties(file, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return props, nil
}

// ReadProperties decodes a list of properties, either a bare array or an
// object with a "properties" array, and validates every record.
func ReadProperties(r io.Reader, format Format) ([]schema.PropertyOpportunity, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var props []schema.PropertyOpportunity
	switch format {
	case YAMLFormat:
		props, err = decodeYAML(data)
	default:
		props, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(props); err != nil {
		return nil, err
	}
	return props, nil
}

func decodeJSON(data []byte) ([]schema.PropertyOpportunity, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to parse JSON input: %w", err)
		}
		return env.Properties, nil
	}
	var props []schema.PropertyOpportunity
	if err := json.Unmarshal(trimmed, &props); err != nil {
		return nil, fmt.Errorf("failed to parse JSON input: %w", err)
	}
	return props, nil
}

func decodeYAML(data []byte) ([]schema.PropertyOpportunity, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML input: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.MappingNode {
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, fmt.Errorf("failed to parse YAML input: %w", err)
		}
		return env.Properties, nil
	}
	var props []schema.PropertyOpportunity
	if err := root.Decode(&props); err != nil {
		return nil, fmt.Errorf("failed to parse YAML input: %w", err)
	}
	return props, nil
}

// ValidationError collects every problem found in a batch of records.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	const shown = 10
	msg := fmt.Sprintf("%d invalid field(s) in input", len(e.Problems))
	for i, p := range e.Problems {
		if i == shown {
			msg += fmt.Sprintf("\n  ... and %d more", len(e.Problems)-shown)
			break
		}
		msg += "\n  " + p
	}
	return msg
}

// Validate checks struct constraints of every record plus unique IDs.
// ZIP+4 codes are shortened to five digits in place first.
func Validate(props []schema.PropertyOpportunity) error {
	var problems []string
	seen := make(map[string]int, len(props))

	for i := range props {
		p := &props[i]
		p.Zip = schema.ZipCode(p.Zip)
		if err := validate.Struct(p); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return err
			}
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("properties[%d] (%s): %s", i, p.ID, describe(fe)))
			}
		}
		if p.ID == "" {
			continue
		}
		if first, dup := seen[p.ID]; dup {
			problems = append(problems, fmt.Sprintf("properties[%d] (%s): id duplicates properties[%d]", i, p.ID, first))
			continue
		}
		seen[p.ID] = i
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// describe turns a field error into a readable sentence.
func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
