package formschema

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFS walks fsys and parses every JSON/YAML form schema file. When fsys is
// nil or holds no schema files the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	return LoadFSContext(context.Background(), fsys)
}

// LoadFSContext is LoadFS with a context used for OpenAPI imports.
func LoadFSContext(ctx context.Context, fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Form)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("formschema: read %s: %w", name, err)
		}

		doc, err := parseDocument(data, name)
		if err != nil {
			return err
		}
		if len(doc.Forms) == 0 {
			// OpenAPI documents and other data files live next to schemas.
			return nil
		}

		for rawID, raw := range doc.Forms {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("formschema: file %s defines an empty form id", name)
			}
			if _, exists := store.forms[id]; exists {
				return fmt.Errorf("formschema: duplicate form %q (file %s)", id, name)
			}

			form, err := normaliseForm(raw, id, name, doc.Choices)
			if err != nil {
				return err
			}
			if form.OpenAPI != nil {
				if err := importOpenAPI(ctx, fsys, &form); err != nil {
					return err
				}
			}
			store.forms[id] = form
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

type documentFile struct {
	Choices map[string][]ChoiceConfig `json:"choices" yaml:"choices"`
	Forms   map[string]formFile       `json:"forms" yaml:"forms"`
}

type formFile struct {
	Form          FormConfig             `json:"form" yaml:"form"`
	OpenAPI       *OpenAPIConfig         `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	Steps         []StepConfig           `json:"steps" yaml:"steps"`
	Groups        map[string]GroupConfig `json:"groups" yaml:"groups"`
	Fields        map[string]FieldConfig `json:"fields" yaml:"fields"`
	Rules         []RuleConfig           `json:"rules" yaml:"rules"`
	DateSequences []SequenceConfig       `json:"dateSequences" yaml:"dateSequences"`
	Dependents    []DependentConfig      `json:"dependents" yaml:"dependents"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formschema: file %s is empty", source)
	}

	if strings.EqualFold(path.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("formschema: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("formschema: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseForm(raw formFile, id, source string, choiceSets map[string][]ChoiceConfig) (Form, error) {
	form := Form{
		ID:            id,
		Source:        source,
		Form:          raw.Form,
		Steps:         make([]StepConfig, 0, len(raw.Steps)),
		Groups:        make(map[string]GroupConfig, len(raw.Groups)),
		Fields:        make(map[string]FieldConfig, len(raw.Fields)),
		Rules:         slices.Clone(raw.Rules),
		DateSequences: slices.Clone(raw.DateSequences),
		Dependents:    slices.Clone(raw.Dependents),
		OpenAPI:       raw.OpenAPI,
	}
	form.Form.Method = strings.ToUpper(strings.TrimSpace(form.Form.Method))
	if form.Form.Method == "" {
		form.Form.Method = "POST"
	}
	form.Form.Attributes = maps.Clone(raw.Form.Attributes)

	seenSteps := make(map[string]struct{}, len(raw.Steps))
	for idx, step := range raw.Steps {
		step.ID = strings.TrimSpace(step.ID)
		if step.ID == "" {
			step.ID = fmt.Sprintf("step-%d", idx)
		}
		if _, dup := seenSteps[step.ID]; dup {
			return Form{}, fmt.Errorf("formschema: form %q (file %s) defines duplicate step %q", id, source, step.ID)
		}
		seenSteps[step.ID] = struct{}{}
		step.Fields = slices.Clone(step.Fields)
		form.Steps = append(form.Steps, step)
	}

	for key, cfg := range raw.Fields {
		name := NormalizeFieldName(key)
		if name == "" {
			return Form{}, fmt.Errorf("formschema: form %q (file %s) field key %q is empty", id, source, key)
		}
		if _, exists := form.Fields[name]; exists {
			return Form{}, fmt.Errorf("formschema: form %q (file %s) defines duplicate field %q", id, source, name)
		}
		cloned := cloneFieldConfig(cfg)
		if cloned.ChoiceSet != "" && len(cloned.Choices) == 0 {
			set, ok := choiceSets[cloned.ChoiceSet]
			if !ok {
				return Form{}, fmt.Errorf("formschema: form %q (file %s) field %q references unknown choice set %q", id, source, name, cloned.ChoiceSet)
			}
			cloned.Choices = slices.Clone(set)
		}
		form.Fields[name] = cloned
	}

	for key, group := range raw.Groups {
		name := strings.TrimSpace(key)
		if name == "" {
			return Form{}, fmt.Errorf("formschema: form %q (file %s) defines an empty group name", id, source)
		}
		if _, clash := form.Fields[name]; clash {
			return Form{}, fmt.Errorf("formschema: form %q (file %s) group %q clashes with a field", id, source, name)
		}
		if group.Container == "" {
			group.Container = name
		}
		group.Fields = slices.Clone(group.Fields)
		form.Groups[name] = group
	}

	return form, nil
}

// NormalizeFieldName trims a field key. Field names keep their prefix form,
// so `krt_present-start_date` stays as written.
func NormalizeFieldName(name string) string {
	return strings.TrimSpace(name)
}

func cloneFieldConfig(cfg FieldConfig) FieldConfig {
	out := cfg
	out.Choices = slices.Clone(cfg.Choices)
	out.Constraints = slices.Clone(cfg.Constraints)
	out.Metadata = maps.Clone(cfg.Metadata)
	if cfg.Required != nil {
		required := *cfg.Required
		out.Required = &required
	}
	return out
}

// mergeFieldConfig overlays the non-zero values of over onto base.
func mergeFieldConfig(base, over FieldConfig) FieldConfig {
	out := cloneFieldConfig(base)
	if over.Kind != "" {
		out.Kind = over.Kind
	}
	if over.Label != "" {
		out.Label = over.Label
	}
	if over.Help != "" {
		out.Help = over.Help
	}
	if over.Placeholder != "" {
		out.Placeholder = over.Placeholder
	}
	if over.Required != nil {
		required := *over.Required
		out.Required = &required
	}
	if over.Default != "" {
		out.Default = over.Default
	}
	if len(over.Choices) > 0 {
		out.Choices = slices.Clone(over.Choices)
	}
	if over.ChoiceSet != "" {
		out.ChoiceSet = over.ChoiceSet
	}
	if over.Input != "" {
		out.Input = over.Input
	}
	if over.Container != "" {
		out.Container = over.Container
	}
	if len(over.Constraints) > 0 {
		out.Constraints = slices.Clone(over.Constraints)
	}
	if len(over.Metadata) > 0 {
		if out.Metadata == nil {
			out.Metadata = make(map[string]string, len(over.Metadata))
		}
		maps.Copy(out.Metadata, over.Metadata)
	}
	return out
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
