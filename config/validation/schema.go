package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// providersSchemaURL is the location the schema is registered under. It is
// never fetched.
const providersSchemaURL = "https://provsync.local/schema/providers.json"

// ProvidersSchema is the JSON Schema every persisted providers blob must
// satisfy after migration
const ProvidersSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["defaultProviderId", "providers"],
  "properties": {
    "defaultProviderId": {"type": "string"},
    "providers": {
      "type": "array",
      "items": {"$ref": "#/$defs/provider"}
    }
  },
  "$defs": {
    "provider": {
      "type": "object",
      "required": ["id", "name", "type", "isDefault"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "name": {"type": "string", "minLength": 1},
        "type": {
          "enum": ["native", "openai", "openai_compatible", "anthropic",
                   "google_gemini", "ollama", "openrouter", "custom"]
        },
        "isDefault": {"type": "boolean"},
        "isBuiltIn": {"type": "boolean"},
        "baseUrl": {"type": "string"},
        "apiKey": {"type": "string"},
        "modelId": {"type": "string"},
        "capabilities": {
          "type": "object",
          "properties": {
            "supportsImages": {"type": "boolean"}
          }
        },
        "modelConfig": {
          "type": "object",
          "properties": {
            "contextWindow": {"type": "integer", "minimum": 1},
            "temperature": {"type": "number", "minimum": 0, "maximum": 2}
          }
        },
        "createdAt": {"type": "string"},
        "updatedAt": {"type": "string"}
      }
    }
  }
}`

// SchemaValidator validates raw providers blobs against ProvidersSchema
type SchemaValidator struct {
	schema *jsonschema.Schema
}

var (
	defaultSchemaOnce sync.Once
	defaultSchema     *SchemaValidator
	defaultSchemaErr  error
)

// NewSchemaValidator compiles ProvidersSchema
func NewSchemaValidator() (*SchemaValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(ProvidersSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse providers schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(providersSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to register providers schema: %w", err)
	}

	schema, err := compiler.Compile(providersSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile providers schema: %w", err)
	}

	return &SchemaValidator{schema: schema}, nil
}

// DefaultSchemaValidator returns a process-wide compiled validator
func DefaultSchemaValidator() (*SchemaValidator, error) {
	defaultSchemaOnce.Do(func() {
		defaultSchema, defaultSchemaErr = NewSchemaValidator()
	})
	return defaultSchema, defaultSchemaErr
}

// Validate checks a raw JSON document against the schema
func (sv *SchemaValidator) Validate(raw string) error {
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sv.schema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
