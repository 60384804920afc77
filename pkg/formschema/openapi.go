package formschema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var requestMediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// ImportedOperation is the part of an OpenAPI operation a form can reuse.
type ImportedOperation struct {
	ID     string
	Method string
	Path   string
	Fields map[string]FieldConfig
}

// FieldNames returns the imported field names in sorted order.
func (op ImportedOperation) FieldNames() []string {
	names := make([]string, 0, len(op.Fields))
	for name := range op.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// importOpenAPI seeds form.Fields from the request body of the configured
// operation. Fields declared in the schema file win over imported ones.
func importOpenAPI(ctx context.Context, fsys fs.FS, form *Form) error {
	cfg := form.OpenAPI
	if strings.TrimSpace(cfg.Document) == "" || strings.TrimSpace(cfg.Operation) == "" {
		return fmt.Errorf("formschema: form %q (file %s) openapi import needs document and operation", form.ID, form.Source)
	}

	docPath := path.Join(path.Dir(form.Source), cfg.Document)
	raw, err := fs.ReadFile(fsys, docPath)
	if err != nil {
		return fmt.Errorf("formschema: form %q: read openapi %s: %w", form.ID, docPath, err)
	}

	op, err := ImportOpenAPI(ctx, raw, cfg.Operation)
	if err != nil {
		return fmt.Errorf("formschema: form %q: %w", form.ID, err)
	}

	for name, base := range op.Fields {
		if over, ok := form.Fields[name]; ok {
			form.Fields[name] = mergeFieldConfig(base, over)
			continue
		}
		form.Fields[name] = base
	}
	if form.Form.Endpoint == "" {
		form.Form.Endpoint = op.Path
	}
	return nil
}

// ImportOpenAPI loads an OpenAPI document and converts the top level
// properties of operationID's request body into field configs.
func ImportOpenAPI(ctx context.Context, raw []byte, operationID string) (ImportedOperation, error) {
	if err := ctx.Err(); err != nil {
		return ImportedOperation{}, err
	}
	if len(raw) == 0 {
		return ImportedOperation{}, errors.New("openapi: document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return ImportedOperation{}, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return ImportedOperation{}, fmt.Errorf("openapi: validate: %w", err)
	}

	out, operation := findOperation(doc, operationID)
	if operation == nil {
		return ImportedOperation{}, fmt.Errorf("openapi: operation %q not found", operationID)
	}

	schema := requestSchema(operation.RequestBody)
	if schema == nil {
		return ImportedOperation{}, fmt.Errorf("openapi: operation %q has no request body schema", operationID)
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	out.Fields = make(map[string]FieldConfig, len(schema.Properties))
	for name, prop := range schema.Properties {
		if prop == nil || prop.Value == nil {
			continue
		}
		out.Fields[name] = fieldFromSchema(prop.Value, required[name])
	}
	return out, nil
}

func findOperation(doc *openapi3.T, operationID string) (ImportedOperation, *openapi3.Operation) {
	if doc.Paths == nil {
		return ImportedOperation{}, nil
	}
	for route, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range item.Operations() {
			if operation != nil && operation.OperationID == operationID {
				return ImportedOperation{ID: operationID, Method: strings.ToUpper(method), Path: route}, operation
			}
		}
	}
	return ImportedOperation{}, nil
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range requestMediaTypes {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func fieldFromSchema(src *openapi3.Schema, required bool) FieldConfig {
	cfg := FieldConfig{
		Kind:  kindFromSchema(src),
		Label: src.Title,
		Help:  src.Description,
	}
	if required {
		cfg.Required = &required
	}
	if src.Default != nil {
		cfg.Default = fmt.Sprint(src.Default)
	}
	for _, value := range src.Enum {
		text := fmt.Sprint(value)
		cfg.Choices = append(cfg.Choices, ChoiceConfig{Value: text, Label: text})
	}
	if labels, ok := src.Extensions["x-enum-labels"].([]any); ok {
		for idx := range cfg.Choices {
			if idx < len(labels) {
				cfg.Choices[idx].Label = fmt.Sprint(labels[idx])
			}
		}
	}

	if src.Pattern != "" {
		cfg.Constraints = append(cfg.Constraints, ConstraintConfig{Kind: "pattern", Value: src.Pattern})
	}
	if src.Min != nil {
		cfg.Constraints = append(cfg.Constraints, ConstraintConfig{Kind: "min", Value: formatFloat(*src.Min)})
	}
	if src.Max != nil {
		cfg.Constraints = append(cfg.Constraints, ConstraintConfig{Kind: "max", Value: formatFloat(*src.Max)})
	}
	if src.MinLength != 0 {
		cfg.Constraints = append(cfg.Constraints, ConstraintConfig{Kind: "minLength", Value: strconv.FormatUint(src.MinLength, 10)})
	}
	if src.MaxLength != nil {
		cfg.Constraints = append(cfg.Constraints, ConstraintConfig{Kind: "maxLength", Value: strconv.FormatUint(*src.MaxLength, 10)})
	}
	return cfg
}

func kindFromSchema(src *openapi3.Schema) string {
	if len(src.Enum) > 0 {
		return "select"
	}
	var typ string
	if src.Type != nil {
		if values := src.Type.Slice(); len(values) > 0 {
			typ = values[0]
		}
	}
	switch typ {
	case "integer", "number":
		return "number"
	case "boolean":
		return "yesno"
	}
	switch src.Format {
	case "date":
		return "date"
	case "email":
		return "email"
	}
	return "text"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
