package config

import (
	"strings"
	"testing"
)

func TestValidateConfigAcceptsEmpty(t *testing.T) {
	// Every key has a default, so an empty object is a valid config.
	result := ValidateConfig(map[string]interface{}{})
	if !result.Valid {
		t.Errorf("empty config should validate, got %v", result.Errors)
	}
}

func TestValidateConfigRejectsUnknownKey(t *testing.T) {
	result := ValidateConfig(map[string]interface{}{
		"dataRoot":  "data",
		"dataRooot": "typo",
	})
	if result.Valid {
		t.Fatal("unknown key should be rejected")
	}
}

func TestValidateConfigRejectsBadTypes(t *testing.T) {
	tests := []struct {
		name string
		data map[string]interface{}
	}{
		{
			name: "sampleSize as string",
			data: map[string]interface{}{"sampleSize": "ten"},
		},
		{
			name: "sampleSize zero",
			data: map[string]interface{}{"sampleSize": float64(0)},
		},
		{
			name: "decompressor empty array",
			data: map[string]interface{}{"decompressor": []interface{}{}},
		},
		{
			name: "negative timeout",
			data: map[string]interface{}{"stepTimeoutMs": float64(-1)},
		},
		{
			name: "cacheEnabled as string",
			data: map[string]interface{}{"cacheEnabled": "yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateConfig(tt.data)
			if result.Valid {
				t.Errorf("expected validation errors for %v", tt.data)
			}
		})
	}
}

func TestValidationErrorPaths(t *testing.T) {
	result := ValidateConfig(map[string]interface{}{
		"compressor": []interface{}{"pigz", float64(9)},
	})
	if result.Valid {
		t.Fatal("expected validation errors")
	}

	found := false
	for _, e := range result.Errors {
		if strings.HasPrefix(e.Path, "/compressor") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error rooted at /compressor, got %v", result.Errors)
	}
}

func TestGetEmbeddedSchema(t *testing.T) {
	schema := GetEmbeddedSchema()
	if len(schema) == 0 {
		t.Fatal("embedded schema should not be empty")
	}
	if !strings.Contains(string(schema), "dataRoot") {
		t.Error("embedded schema should describe dataRoot")
	}
}
