package toolexecutor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var parameterTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"object":  true,
	"array":   true,
}

func (def ToolDefinition) validate() error {
	switch {
	case def.Name == "":
		return errors.New("tool name cannot be empty")
	case def.Description == "":
		return errors.New("tool description cannot be empty")
	case def.Handler == nil:
		return errors.New("tool handler cannot be nil")
	}

	seen := make(map[string]bool, len(def.Parameters))
	for _, param := range def.Parameters {
		switch {
		case param.Name == "":
			return errors.New("parameter name cannot be empty")
		case seen[param.Name]:
			return fmt.Errorf("duplicate parameter %s", param.Name)
		case param.Description == "":
			return fmt.Errorf("parameter description cannot be empty for %s", param.Name)
		case !parameterTypes[param.Type]:
			return fmt.Errorf("invalid parameter type %q for %s", param.Type, param.Name)
		case param.Loose && param.Required:
			return fmt.Errorf("parameter %s cannot be both loose and required", param.Name)
		}
		seen[param.Name] = true
	}
	return nil
}

// compileSchema builds the JSON Schema arguments are checked against. Unknown
// arguments are rejected; loose parameters carry no type constraint.
func compileSchema(params []ToolParameter) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{}, len(params))
	required := []string{}

	for _, param := range params {
		prop := map[string]interface{}{"description": param.Description}
		if !param.Loose {
			prop["type"] = param.Type
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	doc := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}

func checkParams(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("validation errors: %s", strings.Join(problems, "; "))
}
