package units

import "net/http"

// Formats understood by the handler.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath     string
	ParentParam   string
	FormatParam   string
	DefaultFormat string
	Guard         GuardFunc

	Catalog *Catalog
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:     "/api/units",
		ParentParam:   "parent",
		FormatParam:   "format",
		DefaultFormat: FormatJSON,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/units"
	}
	if opts.ParentParam == "" {
		opts.ParentParam = "parent"
	}
	if opts.FormatParam == "" {
		opts.FormatParam = "format"
	}
	if opts.DefaultFormat != FormatHTML {
		opts.DefaultFormat = FormatJSON
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithParentParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.ParentParam = name
	}
}

func WithFormatParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.FormatParam = name
	}
}

func WithDefaultFormat(format string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultFormat = format
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithCatalog(catalog *Catalog) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Catalog = catalog
	}
}
