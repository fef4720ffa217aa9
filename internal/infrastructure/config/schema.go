package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "timezone": {"type": "string"},
    "store": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"type": "string", "enum": ["sqlite", "postgres"]},
        "dsn": {"type": "string"}
      }
    },
    "delivery": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_attempts": {"type": "integer", "minimum": 1, "maximum": 10},
        "initial_delay": {"type": "string"},
        "dead_letter_file": {"type": "string"}
      }
    },
    "remote_sync": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "url": {"type": "string", "pattern": "^https?://"},
        "token": {"type": "string"},
        "timeout": {"type": "string"}
      }
    },
    "server": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "addr": {"type": "string", "minLength": 1},
        "refresh_interval": {"type": "string"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(configSchema)

// validateDocument checks a decoded YAML document against configSchema.
func validateDocument(doc map[string]interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("config schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
