// Package lazy provides element handles that re-resolve their target on
// every call. A handle never holds a live element between calls, so it can be
// created before the element exists and survives page mutations.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// ErrCapabilityNotDeclared is returned when a handle is used through a
// capability it was not constructed with.
var ErrCapabilityNotDeclared = errors.New("capability not declared for handle")

// StaleError is returned when the target was still stale after every retry.
type StaleError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s: still stale after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }

// Handle is a lazily resolved element with the element capability.
type Handle struct {
	id      string
	resolve Resolver
	caps    webdriver.Capability
	opts    options
	logger  *zap.Logger
}

// LocatableHandle is a Handle that also exposes coordinates.
type LocatableHandle struct {
	*Handle
}

var (
	_ webdriver.Element          = (*Handle)(nil)
	_ webdriver.LocatableElement = (*LocatableHandle)(nil)
)

// New wraps resolve in a handle. The concrete type matches caps: a
// *LocatableHandle when CapLocatable is requested, a *Handle otherwise.
// CapElement is always included.
func New(resolve Resolver, caps webdriver.Capability, opts ...Option) webdriver.Element {
	h := newHandle(resolve, caps, opts)
	if h.caps.Has(webdriver.CapLocatable) {
		return &LocatableHandle{Handle: h}
	}
	return h
}

func newHandle(resolve Resolver, caps webdriver.Capability, opts []Option) *Handle {
	o := newOptions(opts)
	id := uuid.NewString()
	if o.description == "" {
		o.description = "element"
	}
	return &Handle{
		id:      id,
		resolve: resolve,
		caps:    caps | webdriver.CapElement,
		opts:    o,
		logger:  o.logger.With(zap.String("handle_id", id), zap.String("target", o.description)),
	}
}

// ResolveLazy returns a handle for the first match of loc within scope.
func ResolveLazy(scope Scope, loc locator.Locator, caps webdriver.Capability, opts ...Option) (webdriver.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithDescription(loc.String())}, opts...)
	return New(NewResolver(scope, loc), caps, opts...), nil
}

// ID identifies the handle in logs.
func (h *Handle) ID() string { return h.id }

// Capabilities returns the declared capability set.
func (h *Handle) Capabilities() webdriver.Capability { return h.caps }

func (h *Handle) String() string { return "lazy(" + h.opts.description + ")" }

// Unwrap resolves the target once and returns the live element. The result
// is only valid until the page changes.
func (h *Handle) Unwrap(ctx context.Context) (webdriver.Element, error) {
	return h.resolve(ctx)
}

// invoke resolves the target and runs call against it, re-resolving when the
// target goes stale. A target that is not found is returned at once.
func (h *Handle) invoke(ctx context.Context, capability webdriver.Capability, op string, call func(webdriver.Element) error) error {
	if !h.caps.Has(capability) {
		return fmt.Errorf("%w: %s needs %s, handle has %s", ErrCapabilityNotDeclared, op, capability, h.caps)
	}

	var lastStale error
	attempts := h.opts.staleRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			h.logger.Debug("Target went stale, re-resolving.",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Error(lastStale))
			if err := wait(ctx, h.opts.retryInterval); err != nil {
				return err
			}
		}

		target, err := h.resolve(ctx)
		if err != nil {
			if webdriver.IsStale(err) {
				lastStale = err
				continue
			}
			return err
		}

		err = call(target)
		h.release(ctx, target)
		if err == nil || !webdriver.IsStale(err) {
			return err
		}
		lastStale = err
	}

	h.logger.Debug("Giving up on stale target.", zap.String("op", op), zap.Int("attempts", attempts))
	return &StaleError{Target: h.opts.description, Attempts: attempts, Err: lastStale}
}

// release drops the browser-side reference of a resolved element once the
// handle is done with it. Handles never reuse a resolved element.
func (h *Handle) release(ctx context.Context, el webdriver.Element) {
	if err := releaseElement(ctx, el); err != nil {
		h.logger.Debug("Failed to release resolved element.", zap.Error(err))
	}
}

func invokeValue[T any](ctx context.Context, h *Handle, capability webdriver.Capability, op string, fn func(webdriver.Element) (T, error)) (T, error) {
	var out T
	err := h.invoke(ctx, capability, op, func(el webdriver.Element) error {
		v, err := fn(el)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FindElement looks up loc below the target right away, so a missing child
// is reported now, and returns a lazy handle for it.
func (h *Handle) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	err := h.invoke(ctx, webdriver.CapElement, "FindElement", func(el webdriver.Element) error {
		child, err := el.FindElement(ctx, loc)
		if err == nil {
			h.release(ctx, child)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	desc := h.opts.description + " > " + loc.String()
	return New(NewResolver(Rooted(nil, h), loc), h.caps, h.opts.inherit(desc)...), nil
}

// FindElements looks up every match of loc below the target and returns a
// lazy handle per match.
func (h *Handle) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	desc := h.opts.description + " > " + loc.String()
	list := NewList(NewListResolver(Rooted(nil, h), loc), h.caps, h.opts.inherit(desc)...)
	return list.Elements(ctx)
}

func (h *Handle) Click(ctx context.Context) error {
	return h.invoke(ctx, webdriver.CapElement, "Click", func(el webdriver.Element) error {
		return el.Click(ctx)
	})
}

func (h *Handle) SendKeys(ctx context.Context, text string) error {
	return h.invoke(ctx, webdriver.CapElement, "SendKeys", func(el webdriver.Element) error {
		return el.SendKeys(ctx, text)
	})
}

func (h *Handle) Clear(ctx context.Context) error {
	return h.invoke(ctx, webdriver.CapElement, "Clear", func(el webdriver.Element) error {
		return el.Clear(ctx)
	})
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	return invokeValue(ctx, h, webdriver.CapElement, "Text", func(el webdriver.Element) (string, error) {
		return el.Text(ctx)
	})
}

func (h *Handle) TagName(ctx context.Context) (string, error) {
	return invokeValue(ctx, h, webdriver.CapElement, "TagName", func(el webdriver.Element) (string, error) {
		return el.TagName(ctx)
	})
}

func (h *Handle) Attribute(ctx context.Context, name string) (string, error) {
	return invokeValue(ctx, h, webdriver.CapElement, "Attribute", func(el webdriver.Element) (string, error) {
		return el.Attribute(ctx, name)
	})
}

func (h *Handle) IsDisplayed(ctx context.Context) (bool, error) {
	return invokeValue(ctx, h, webdriver.CapElement, "IsDisplayed", func(el webdriver.Element) (bool, error) {
		return el.IsDisplayed(ctx)
	})
}

// Coordinates forwards to the live target, which must itself be Locatable.
func (h *LocatableHandle) Coordinates(ctx context.Context) (webdriver.Coordinates, error) {
	return invokeValue(ctx, h.Handle, webdriver.CapLocatable, "Coordinates", func(el webdriver.Element) (webdriver.Coordinates, error) {
		l, ok := el.(webdriver.Locatable)
		if !ok {
			return webdriver.Coordinates{}, fmt.Errorf("%w: %T has no coordinates", webdriver.ErrUnsupported, el)
		}
		return l.Coordinates(ctx)
	})
}
