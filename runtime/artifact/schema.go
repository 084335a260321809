package artifact

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaSource holds the JSON Schema text for each round, matching the
// "explicit schema" every mode-strategy prompt ends with (§4.4). Schemas are
// intentionally permissive on array element shape (additionalProperties true)
// since the required-key check and per-field clamping in extractor.go do the
// rest; the schema's job is to catch gross type mismatches (e.g. a string
// where an array was required), not to fully pin down the document.
var schemaSource = map[Round]string{
	RoundIndependent: `{
		"type": "object",
		"properties": {
			"position": {"type": "string"},
			"key_points": {"type": "array"},
			"rationale": {"type": "string"},
			"confidence": {"type": "number"},
			"prose_excerpt": {"type": "string"}
		}
	}`,
	RoundSynthesis: `{
		"type": "object",
		"properties": {
			"consensus_points": {"type": "array"},
			"tensions": {"type": "array"},
			"priority_order": {"type": "array"}
		}
	}`,
	RoundCrossExam: `{
		"type": "object",
		"properties": {
			"challenges": {"type": "array"},
			"rebuttals": {"type": "array"},
			"unresolved": {"type": "array"}
		}
	}`,
	RoundVerdict: `{
		"type": "object",
		"properties": {
			"recommendation": {"type": "string"},
			"confidence": {"type": "number"},
			"evidence": {"type": "array"},
			"dissent": {"type": "array"}
		}
	}`,
}

var (
	compileOnce sync.Once
	compiled    map[Round]*jsonschema.Schema
	compileErr  error
)

func compiledSchemas() (map[Round]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[Round]*jsonschema.Schema, len(schemaSource))
		for round, src := range schemaSource {
			var doc any
			if err := json.Unmarshal([]byte(src), &doc); err != nil {
				compileErr = err
				return
			}
			c := jsonschema.NewCompiler()
			url := fmt.Sprintf("round%d.json", round)
			if err := c.AddResource(url, doc); err != nil {
				compileErr = err
				return
			}
			sch, err := c.Compile(url)
			if err != nil {
				compileErr = err
				return
			}
			compiled[round] = sch
		}
	})
	return compiled, compileErr
}

// ValidateSchema validates raw against round's documented JSON Schema. A
// schema compilation failure (a defect in schemaSource, not caller input) is
// treated as a validation failure rather than a panic.
func ValidateSchema(round Round, raw json.RawMessage) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return fmt.Errorf("artifact: schema compilation: %w", err)
	}
	sch, ok := schemas[round]
	if !ok {
		return fmt.Errorf("artifact: no schema for round %d", round)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("artifact: re-decode for validation: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("artifact: schema validation: %w", err)
	}
	return nil
}
