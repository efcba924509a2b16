package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Shape names the output form a capability is expected to produce.
type Shape string

const (
	// ShapeNarrative expects free text; no structured parse is attempted.
	ShapeNarrative Shape = "narrative"
	// ShapeSummary expects {"summary": "..."}.
	ShapeSummary Shape = "summary"
)

type structuredShape struct {
	// primary receives the salvaged text when the parse succeeds without it.
	primary string
	fields  []string
	schema  *jsonschema.Schema
}

var structuredShapes = map[Shape]structuredShape{
	ShapeSummary: {
		primary: "summary",
		fields:  []string{"summary"},
		schema:  mustCompileSchema(summarySchema, "summary.schema.json"),
	},
}

const summarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["summary"],
  "properties": {
    "summary": {"type": "string", "pattern": "\\S"}
  }
}`

// Structured reports whether the shape expects structured output.
func (s Shape) Structured() bool {
	_, ok := structuredShapes[s]
	return ok
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}
