package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/model"
)

// Transformer mutates a built form before any session uses it. Hosts use it
// to relabel fields or translate copy without editing the schema files.
type Transformer interface {
	Transform(ctx context.Context, form *model.Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// Chain runs transformers in order, stopping at the first error.
func Chain(transformers ...Transformer) Transformer {
	return TransformerFunc(func(ctx context.Context, form *model.Form) error {
		for _, t := range transformers {
			if t == nil {
				continue
			}
			if err := t.Transform(ctx, form); err != nil {
				return err
			}
		}
		return nil
	})
}

// JSONPresetTransformer applies declarative copy overrides loaded from JSON.
// Patches are keyed by form id so one document can serve a whole registry:
//
//	{
//	  "patient_register": {
//	    "title": "Patient",
//	    "steps": {"identity": {"title": "Who"}},
//	    "fields": {"nic": {"label": "NIC", "help": "National id card"}}
//	  }
//	}
//
// Forms without an entry are left untouched.
type JSONPresetTransformer struct {
	document map[string]formPatch
}

type formPatch struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Steps       map[string]stepPatch  `json:"steps"`
	Fields      map[string]fieldPatch `json:"fields"`
}

type stepPatch struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type fieldPatch struct {
	Label       string            `json:"label"`
	Help        string            `json:"help"`
	Placeholder string            `json:"placeholder"`
	Metadata    map[string]string `json:"metadata"`
}

// NewJSONPresetTransformer constructs a transformer from raw JSON bytes.
func NewJSONPresetTransformer(data []byte) (*JSONPresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("json preset transformer: document is empty")
	}
	var document map[string]formPatch
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("json preset transformer: parse document: %w", err)
	}
	return &JSONPresetTransformer{document: document}, nil
}

// NewJSONPresetTransformerFromFS loads a JSON transformer document from the
// provided filesystem path.
func NewJSONPresetTransformerFromFS(fsys fs.FS, path string) (*JSONPresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("json preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("json preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("json preset transformer: read %s: %w", path, err)
	}
	return NewJSONPresetTransformer(data)
}

// Transform applies the patches registered for form.ID. Unknown steps or
// fields are reported as errors.
func (t *JSONPresetTransformer) Transform(ctx context.Context, form *model.Form) error {
	if form == nil {
		return errors.New("json preset transformer: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, ok := t.document[form.ID]
	if !ok {
		return nil
	}

	if patch.Title != "" {
		form.Title = patch.Title
	}
	if patch.Description != "" {
		form.Description = patch.Description
	}

	for id, sp := range patch.Steps {
		step := findStep(form, id)
		if step == nil {
			return fmt.Errorf("json preset transformer: form %q step %q not found", form.ID, id)
		}
		if sp.Title != "" {
			step.Title = sp.Title
		}
		if sp.Description != "" {
			step.Description = sp.Description
		}
	}

	for name, fp := range patch.Fields {
		if err := ctx.Err(); err != nil {
			return err
		}
		field := findField(form, name)
		if field == nil {
			return fmt.Errorf("json preset transformer: form %q field %q not found", form.ID, name)
		}
		applyFieldPatch(field, fp)
	}
	return nil
}

func applyFieldPatch(field *model.Field, patch fieldPatch) {
	if patch.Label != "" {
		field.Label = patch.Label
	}
	if patch.Help != "" {
		field.Help = patch.Help
	}
	if patch.Placeholder != "" {
		field.Placeholder = patch.Placeholder
	}
	if len(patch.Metadata) > 0 {
		if field.Metadata == nil {
			field.Metadata = make(map[string]string, len(patch.Metadata))
		}
		maps.Copy(field.Metadata, patch.Metadata)
	}
}

func findField(form *model.Form, name string) *model.Field {
	for idx := range form.Fields {
		if form.Fields[idx].Name == name {
			return &form.Fields[idx]
		}
	}
	return nil
}

func findStep(form *model.Form, id string) *model.Step {
	for idx := range form.Steps {
		if form.Steps[idx].ID == id {
			return &form.Steps[idx]
		}
	}
	return nil
}
