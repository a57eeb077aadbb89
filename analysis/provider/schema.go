package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// GenerateSchema reflects T into a JSON schema accepted by strict structured outputs: every
// object closed and every property required.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(fmt.Sprintf("provider: schema for %T: %v", v, err))
	}
	delete(schemaObj, "$schema")
	delete(schemaObj, "$id")
	closeObjects(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// closeObjects walks every subschema reachable from node and makes each object strict: no
// additional properties and all properties required, in sorted order.
func closeObjects(node map[string]any) {
	props, _ := node["properties"].(map[string]any)
	if node["type"] == "object" {
		node["additionalProperties"] = false
		if len(props) > 0 {
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			node["required"] = names
		}
	}
	for _, child := range props {
		if sub, ok := child.(map[string]any); ok {
			closeObjects(sub)
		}
	}
	for _, key := range []string{"items", "additionalProperties"} {
		if sub, ok := node[key].(map[string]any); ok {
			closeObjects(sub)
		}
	}
}

// ValidateDocument checks a decoded JSON document against schema.
func ValidateDocument(schema map[string]any, doc any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate model output: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}
	return fmt.Errorf("model output does not match schema: %s", strings.Join(msgs, "; "))
}
