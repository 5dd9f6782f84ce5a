// Package handoff validates the JSON artifacts passed between pipeline
// stages against embedded JSON Schemas before they are decoded.
package handoff

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/immisense/advisor/agent/contract"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type Schema string

const (
	SchemaProfile        Schema = "profile"
	SchemaRequirements   Schema = "requirements"
	SchemaScore          Schema = "score"
	SchemaRecommendation Schema = "recommendation"
)

var (
	compileOnce sync.Once
	compiled    map[Schema]*gojsonschema.Schema
	compileErr  error
)

func load() (map[Schema]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Schema]*gojsonschema.Schema, 4)
		for _, name := range []Schema{SchemaProfile, SchemaRequirements, SchemaScore, SchemaRecommendation} {
			raw, err := schemaFS.ReadFile("schemas/" + string(name) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Normalize strips one surrounding Markdown code fence and requires what is
// left to be a single JSON object. Any other prose is a schema violation.
func Normalize(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		inner, ok := stripFence(text)
		if !ok {
			return nil, fmt.Errorf("%w: unterminated code fence", contractx.ErrSchemaViolation)
		}
		text = strings.TrimSpace(inner)
	}

	if text == "" {
		return nil, fmt.Errorf("%w: empty response", contractx.ErrSchemaViolation)
	}
	if text[0] != '{' {
		return nil, fmt.Errorf("%w: response is not a JSON object", contractx.ErrSchemaViolation)
	}

	data := []byte(text)
	dec := json.NewDecoder(bytes.NewReader(data))
	var obj map[string]json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", contractx.ErrSchemaViolation, err)
	}
	if off := int(dec.InputOffset()); strings.TrimSpace(text[off:]) != "" {
		return nil, fmt.Errorf("%w: trailing content after JSON object", contractx.ErrSchemaViolation)
	}
	return data, nil
}

func stripFence(text string) (string, bool) {
	body := strings.TrimPrefix(text, "```")
	header, rest, ok := strings.Cut(body, "\n")
	if !ok {
		return "", false
	}
	if lang := strings.TrimSpace(header); lang != "" && !strings.EqualFold(lang, "json") {
		return "", false
	}
	rest = strings.TrimRight(rest, " \t\r\n")
	inner, ok := strings.CutSuffix(rest, "```")
	if !ok || strings.Contains(inner, "```") {
		return "", false
	}
	return inner, true
}

// Validate checks data against the named schema.
func Validate(name Schema, data []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("%w: unknown schema %q", contractx.ErrValidation, name)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s: %s", contractx.ErrSchemaViolation, name, strings.Join(errs, "; "))
	}
	return nil
}

// Decode normalizes raw model output, validates it and decodes it into T.
func Decode[T any](name Schema, raw string) (T, error) {
	var out T
	data, err := Normalize(raw)
	if err != nil {
		return out, err
	}
	if err := Validate(name, data); err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: decode %s: %v", contractx.ErrSchemaViolation, name, err)
	}
	return out, nil
}
