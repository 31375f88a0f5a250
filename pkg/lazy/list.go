package lazy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// List is a lazily resolved collection of elements.
type List struct {
	id      string
	resolve ListResolver
	caps    webdriver.Capability
	opts    options
	logger  *zap.Logger
}

// NewList wraps resolve. Elements handed out by the list carry caps.
func NewList(resolve ListResolver, caps webdriver.Capability, opts ...Option) *List {
	o := newOptions(opts)
	if o.description == "" {
		o.description = "elements"
	}
	id := uuid.NewString()
	return &List{
		id:      id,
		resolve: resolve,
		caps:    caps | webdriver.CapElement,
		opts:    o,
		logger:  o.logger.With(zap.String("list_id", id), zap.String("target", o.description)),
	}
}

// ResolveLazyList returns a list of every match of loc within scope.
func ResolveLazyList(scope Scope, loc locator.Locator, opts ...Option) (*List, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithDescription(loc.String())}, opts...)
	return NewList(NewListResolver(scope, loc), webdriver.CapElement, opts...), nil
}

// ID identifies the list in logs.
func (l *List) ID() string { return l.id }

func (l *List) String() string { return "lazyList(" + l.opts.description + ")" }

func (l *List) live(ctx context.Context) ([]webdriver.Element, error) {
	var lastStale error
	attempts := l.opts.staleRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			l.logger.Debug("Scope went stale, re-resolving list.", zap.Int("attempt", attempt), zap.Error(lastStale))
			if err := wait(ctx, l.opts.retryInterval); err != nil {
				return nil, err
			}
		}
		els, err := l.resolve(ctx)
		if err == nil {
			return els, nil
		}
		if !webdriver.IsStale(err) {
			return nil, err
		}
		lastStale = err
	}
	return nil, &StaleError{Target: l.opts.description, Attempts: attempts, Err: lastStale}
}

// Elements resolves the list once and returns a lazy handle per match. Each
// handle re-resolves "the nth match" on use.
func (l *List) Elements(ctx context.Context) ([]webdriver.Element, error) {
	els, err := l.live(ctx)
	if err != nil {
		return nil, err
	}
	releaseAll(ctx, els)
	out := make([]webdriver.Element, len(els))
	for i := range els {
		out[i] = l.At(i)
	}
	return out, nil
}

// Len resolves the list and counts the matches.
func (l *List) Len(ctx context.Context) (int, error) {
	els, err := l.live(ctx)
	if err != nil {
		return 0, err
	}
	releaseAll(ctx, els)
	return len(els), nil
}

// At returns a lazy handle for the nth match without resolving anything.
func (l *List) At(n int) webdriver.Element {
	desc := fmt.Sprintf("%s[%d]", l.opts.description, n)
	return New(NthResolver(l.resolve, n), l.caps, l.opts.inherit(desc)...)
}

// Each calls fn for every match until fn returns an error.
func (l *List) Each(ctx context.Context, fn func(i int, el webdriver.Element) error) error {
	els, err := l.Elements(ctx)
	if err != nil {
		return err
	}
	for i, el := range els {
		if err := fn(i, el); err != nil {
			return err
		}
	}
	return nil
}
