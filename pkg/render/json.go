package render

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONRenderer emits the view as JSON, for clients that draw the wizard
// themselves.
type JSONRenderer struct {
	Indent bool
}

// Name implements Renderer.
func (JSONRenderer) Name() string { return "json" }

// ContentType implements Renderer.
func (JSONRenderer) ContentType() string { return "application/json; charset=utf-8" }

// Render implements Renderer.
func (r JSONRenderer) Render(_ context.Context, view View, options RenderOptions) ([]byte, error) {
	view = view.Apply(options)
	var (
		out []byte
		err error
	)
	if r.Indent {
		out, err = json.MarshalIndent(view, "", "  ")
	} else {
		out, err = json.Marshal(view)
	}
	if err != nil {
		return nil, fmt.Errorf("render: encode view: %w", err)
	}
	return out, nil
}
