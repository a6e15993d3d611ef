package interview

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionListSchema accepts what models usually return for a question
// batch: an array of objects that at least carry question text.
const questionListSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["question"],
		"properties": {
			"id": {"type": ["integer", "number", "string"]},
			"question": {"type": "string", "minLength": 1},
			"type": {"type": ["string", "null"]},
			"difficulty": {"type": ["string", "null"]},
			"hint": {"type": ["string", "null"]}
		}
	}
}`

// evaluationSchema only pins the container types. Scores may be numbers or
// numeric strings and text fields may come back as lists of lines.
const evaluationSchema = `{
	"type": "object",
	"properties": {
		"scores": {"type": "object"},
		"feedback": {"type": ["string", "array", "null"]},
		"examples_or_corrections": {"type": ["string", "array", "null"]},
		"resources": {"type": ["array", "string", "null"]}
	}
}`

var (
	questionValidator   = mustCompile("questions", questionListSchema)
	evaluationValidator = mustCompile("evaluation", evaluationSchema)
)

func mustCompile(name, def string) *jsonschema.Schema {
	s, err := compileSchema(name, def)
	if err != nil {
		panic(err)
	}
	return s
}

func compileSchema(name, def string) (*jsonschema.Schema, error) {
	var parsed any
	if err := json.Unmarshal([]byte(def), &parsed); err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", name, err)
	}
	return compiled, nil
}
