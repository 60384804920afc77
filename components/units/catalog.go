package units

import (
	"context"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/surface"
)

//go:embed data/units.yaml
var dataFS embed.FS

const defaultCatalogPath = "data/units.yaml"

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Option is one unit offered for an institution.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Catalog maps institution ids to their units.
type Catalog struct {
	units map[string][]Option
}

type catalogDocument struct {
	Units map[string][]Option `yaml:"units"`
}

// NewCatalog builds a catalog from units keyed by institution id. Entries
// without a value are dropped and missing labels fall back to the value.
func NewCatalog(units map[string][]Option) *Catalog {
	c := &Catalog{units: make(map[string][]Option, len(units))}
	for parent, options := range units {
		parent = strings.TrimSpace(parent)
		if parent == "" {
			continue
		}
		seen := make(map[string]struct{}, len(options))
		for _, option := range options {
			option.Value = strings.TrimSpace(option.Value)
			if option.Value == "" {
				continue
			}
			if _, dup := seen[option.Value]; dup {
				continue
			}
			seen[option.Value] = struct{}{}
			if option.Label == "" {
				option.Label = option.Value
			}
			c.units[parent] = append(c.units[parent], option)
		}
	}
	return c
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultCatalogPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()
		defaultCatalog, defaultErr = LoadCatalog(f)
	})
	return defaultCatalog, defaultErr
}

// LoadCatalog decodes a YAML catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	if r == nil {
		return nil, fmt.Errorf("units: missing reader")
	}
	var doc catalogDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("units: decode catalog: %w", err)
	}
	return NewCatalog(doc.Units), nil
}

// Lookup returns the units of parent in catalog order.
func (c *Catalog) Lookup(parent string) []Option {
	if c == nil {
		return nil
	}
	return append([]Option(nil), c.units[strings.TrimSpace(parent)]...)
}

// Parents returns the institution ids with at least one unit.
func (c *Catalog) Parents() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.units))
	for parent := range c.units {
		out = append(out, parent)
	}
	sort.Strings(out)
	return out
}

// FetchOptions serves the catalog in-process to a dependent select binding.
func (c *Catalog) FetchOptions(ctx context.Context, parent string) ([]surface.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	units := c.Lookup(parent)
	out := make([]surface.Option, 0, len(units))
	for _, unit := range units {
		out = append(out, surface.Option{Value: unit.Value, Label: unit.Label})
	}
	return out, nil
}
