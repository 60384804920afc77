package render

import (
	"context"
)

// Renderer turns a wizard View into bytes (HTML, JSON, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View, options RenderOptions) ([]byte, error)
}
