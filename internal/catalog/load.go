package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "ai-receptionist/internal/common/errors"
)

// businessSchema is the structural contract for business_data.json.
// Validation failures keep the process alive with an empty catalog;
// the error is surfaced only for logging.
const businessSchema = `{
  "type": "object",
  "required": ["business_name", "menu_sections"],
  "properties": {
    "business_name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "hours": {"type": "object", "additionalProperties": {"type": "string"}},
    "menu_sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "items"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "price"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "price": {"type": "number", "minimum": 0},
                "description": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    },
    "faq": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "answer"],
        "properties": {
          "question": {"type": "string"},
          "answer": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// Load reads and validates the business catalog. On any failure it
// returns an empty Business alongside the error so callers can degrade
// to "no item matched" behavior instead of crashing.
func Load(path string) (*Business, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Business{}, stderrors.NewCatalogLoadFailedError(err)
	}

	schemaLoader := gojsonschema.NewStringLoader(businessSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &Business{}, stderrors.NewCatalogLoadFailedError(err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return &Business{}, stderrors.NewCatalogSchemaInvalidError(strings.Join(details, "; "))
	}

	var biz Business
	if err := json.Unmarshal(data, &biz); err != nil {
		return &Business{}, stderrors.NewCatalogLoadFailedError(fmt.Errorf("decode: %w", err))
	}

	return &biz, nil
}
