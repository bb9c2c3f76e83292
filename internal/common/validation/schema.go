package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Messages flattens the errors to "field: message" strings.
func (r *ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return out
}

// SchemaValidator validates Go values against a compiled JSON schema.
type SchemaValidator struct {
	name   string
	schema *gojsonschema.Schema
}

func NewSchemaValidator(name, schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &SchemaValidator{name: name, schema: schema}, nil
}

func (v *SchemaValidator) Name() string { return v.name }

// Validate checks doc, which is marshalled to JSON first. The error is only
// set when doc could not be loaded at all.
func (v *SchemaValidator) Validate(doc interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate against %s schema: %w", v.name, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// NewRecordValidator validates harvested metadata records.
func NewRecordValidator() (*SchemaValidator, error) {
	return NewSchemaValidator("record", RecordSchema)
}

// NewHarvestInputValidator validates the variables of a harvest job.
func NewHarvestInputValidator() (*SchemaValidator, error) {
	return NewSchemaValidator("harvest-input", HarvestInputSchema)
}
