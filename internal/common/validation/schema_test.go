package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() map[string]interface{} {
	return map[string]interface{}{
		"identifier":      map[string]interface{}{"value": "http://rest/DSD_x?GEO=DE", "identifierType": "URL"},
		"titles":          []interface{}{map[string]interface{}{"value": "GDP (GEO: Germany)"}},
		"publisher":       "Eurostat",
		"publicationYear": 2019,
		"resourceType":    map[string]interface{}{"value": "Statistical Data", "resourceTypeGeneral": "Dataset"},
		"provenance":      map[string]interface{}{"dataflowId": "nama_10_gdp", "structureId": "DSD_x", "dimensions": map[string]interface{}{"GEO": "DE"}},
	}
}

func TestRecordValidator(t *testing.T) {
	v, err := NewRecordValidator()
	require.NoError(t, err)
	assert.Equal(t, "record", v.Name())

	tests := []struct {
		name      string
		mutate    func(m map[string]interface{})
		wantValid bool
		wantField string
	}{
		{name: "valid record", mutate: func(map[string]interface{}) {}, wantValid: true},
		{
			name:      "missing publisher",
			mutate:    func(m map[string]interface{}) { delete(m, "publisher") },
			wantField: "(root)",
		},
		{
			name:      "no titles",
			mutate:    func(m map[string]interface{}) { m["titles"] = []interface{}{} },
			wantField: "titles",
		},
		{
			name: "identifier is not a URL",
			mutate: func(m map[string]interface{}) {
				m["identifier"] = map[string]interface{}{"value": "DSD_x", "identifierType": "URL"}
			},
			wantField: "identifier.value",
		},
		{
			name:      "year out of range",
			mutate:    func(m map[string]interface{}) { m["publicationYear"] = 19 },
			wantField: "publicationYear",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validRecord()
			tt.mutate(doc)

			result, err := v.Validate(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantField, result.Errors[0].Field)
				assert.NotEmpty(t, result.Messages()[0])
			}
		})
	}
}

func TestHarvestInputValidator(t *testing.T) {
	v, err := NewHarvestInputValidator()
	require.NoError(t, err)

	result, err := v.Validate(map[string]interface{}{"force": true})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = v.Validate(map[string]interface{}{"force": "yes"})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "force", result.Errors[0].Field)
	assert.Equal(t, "invalid_type", result.Errors[0].Code)
}

func TestNewSchemaValidator_InvalidSchema(t *testing.T) {
	_, err := NewSchemaValidator("broken", `{"type": 12}`)
	assert.Error(t, err)
}
