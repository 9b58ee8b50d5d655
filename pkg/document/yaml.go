package document

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cogflow/internal/domain"
	"cogflow/internal/platform"
)

// Template builds an empty document with defaults filled (spec §4.6
// "create a template document"), exposed here for callers who only need the
// DTO, not the full facade.
func Template(id, name, author string) domain.Document {
	return platform.Template(id, name, author)
}

// FromYAML parses a YAML-encoded document, converting it through JSON so
// struct tags and types line up exactly the way they do for the `.form`
// JSON format (spec §6 "Document file format").
func FromYAML(data []byte) (domain.Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Document{}, fmt.Errorf("parse yaml: %w", err)
	}

	jsonCompatible := convertMapKeys(raw)
	jsonBytes, err := json.Marshal(jsonCompatible)
	if err != nil {
		return domain.Document{}, fmt.Errorf("convert yaml to json: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// LoadYAMLFile reads and parses a YAML document file.
func LoadYAMLFile(path string) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read file: %w", err)
	}
	return FromYAML(data)
}

// ToYAML renders a document as YAML, for callers that prefer to author
// `.form` files by hand.
func ToYAML(doc domain.Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// convertMapKeys recursively converts map[string]interface{} (gopkg.in/yaml.v3
// already yields string keys, unlike yaml.v2's map[interface{}]interface{},
// but nested documents may still carry non-string map keys from anchors) to
// a structure encoding/json can marshal without error.
func convertMapKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = convertMapKeys(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = convertMapKeys(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertMapKeys(item)
		}
		return out
	default:
		return val
	}
}
