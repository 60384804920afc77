package options

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
)

// ErrStale is returned by Load when a newer request superseded it.
var ErrStale = errors.New("options: response superseded by a newer request")

// LoadFailedMessage is shown on the child container when a fetch fails.
const LoadFailedMessage = "Could not load options."

// Binding keeps a child select's options in line with its parent's value.
// Every request carries a generation; only the newest one may touch the
// surface and older in-flight requests are cancelled.
type Binding struct {
	parent  model.FieldRef
	child   model.FieldRef
	fetcher Fetcher
	surface surface.Surface
	logger  *slog.Logger
	onError func(error)
	locker  sync.Locker

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	pending    map[uint64]chan struct{}
}

// BindingOption configures a Binding.
type BindingOption func(*Binding)

// WithLogger sets the binding logger.
func WithLogger(logger *slog.Logger) BindingOption {
	return func(b *Binding) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// OnError registers a hook receiving fetch failures.
func OnError(fn func(error)) BindingOption {
	return func(b *Binding) {
		b.onError = fn
	}
}

// WithLocker makes the binding hold l while it writes to the surface, so
// results land between, never during, the owner's own updates.
func WithLocker(l sync.Locker) BindingOption {
	return func(b *Binding) {
		b.locker = l
	}
}

// NewBinding binds child to parent through fetcher.
func NewBinding(parent, child model.FieldRef, fetcher Fetcher, s surface.Surface, opts ...BindingOption) *Binding {
	b := &Binding{
		parent:  parent,
		child:   child,
		fetcher: fetcher,
		surface: s,
		logger:  slog.Default(),
		pending: make(map[uint64]chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Parent returns the parent field.
func (b *Binding) Parent() model.FieldRef { return b.parent }

// Child returns the child field.
func (b *Binding) Child() model.FieldRef { return b.child }

// Load fetches options for parentValue and applies them before returning.
func (b *Binding) Load(ctx context.Context, parentValue string) error {
	gen, ctx, cancel := b.begin(ctx)
	defer cancel()
	return b.run(ctx, gen, parentValue)
}

// Refresh starts a fetch for parentValue and returns immediately. The
// request is numbered before Refresh returns, so of several calls the last
// one wins regardless of response order.
func (b *Binding) Refresh(ctx context.Context, parentValue string) {
	gen, ctx, cancel := b.begin(ctx)
	done := make(chan struct{})
	b.mu.Lock()
	b.pending[gen] = done
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.pending, gen)
			b.mu.Unlock()
			close(done)
		}()
		defer cancel()
		if err := b.run(ctx, gen, parentValue); err != nil && !errors.Is(err, ErrStale) {
			b.logger.Debug("dependent options refresh failed", "child", b.child.Name(), "error", err)
		}
	}()
}

// Wait blocks until every refresh started before the call has finished. It
// may run concurrently with Refresh.
func (b *Binding) Wait() {
	b.mu.Lock()
	waits := make([]chan struct{}, 0, len(b.pending))
	for _, done := range b.pending {
		waits = append(waits, done)
	}
	b.mu.Unlock()
	for _, done := range waits {
		<-done
	}
}

// Generation returns the number of the newest request.
func (b *Binding) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *Binding) begin(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	b.generation++
	ctx, cancel := context.WithCancel(parent)
	b.cancel = cancel
	return b.generation, ctx, cancel
}

func (b *Binding) run(ctx context.Context, gen uint64, parentValue string) error {
	var (
		opts []surface.Option
		err  error
	)
	if parentValue != "" {
		opts, err = b.fetcher.FetchOptions(ctx, parentValue)
	}

	if b.locker != nil {
		b.locker.Lock()
		defer b.locker.Unlock()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		b.logger.Debug("discarding stale options", "child", b.child.Name(), "generation", gen, "latest", b.generation)
		return ErrStale
	}
	if err != nil {
		b.fail(err)
		return fmt.Errorf("options: load %s for %s=%q: %w", b.child.Name(), b.parent.Name(), parentValue, err)
	}
	b.apply(opts)
	return nil
}

func (b *Binding) apply(opts []surface.Option) {
	container, input := b.child.Container(), b.child.Input()
	b.surface.RemoveClass(container, surface.ClassError)
	b.surface.SetMessage(container, "")
	b.surface.SetOptions(input, opts)

	current := b.surface.Value(input)
	if current == "" {
		return
	}
	for _, opt := range opts {
		if opt.Value == current {
			return
		}
	}
	b.surface.SetValue(input, "")
}

func (b *Binding) fail(err error) {
	container := b.child.Container()
	b.surface.AddClass(container, surface.ClassError)
	b.surface.SetMessage(container, LoadFailedMessage)
	b.logger.Warn("dependent options failed", "parent", b.parent.Name(), "child", b.child.Name(), "error", err)
	if b.onError != nil {
		b.onError(err)
	}
}
