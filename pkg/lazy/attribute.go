package lazy

import (
	"context"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Attribute is a lazily read attribute value. Every Get resolves the element
// again, with the same stale retries as a Handle.
type Attribute struct {
	handle *Handle
	loc    locator.AttributeLocator
}

// ResolveAttribute returns a lazy reader for the attribute loc names on the
// first match of its element locator within scope.
func ResolveAttribute(scope Scope, loc locator.AttributeLocator, opts ...Option) (*Attribute, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	opts = append([]Option{WithDescription(loc.String())}, opts...)
	return &Attribute{
		handle: newHandle(NewResolver(scope, loc.Element()), webdriver.CapElement, opts),
		loc:    loc,
	}, nil
}

// Locator returns the attribute locator being read.
func (a *Attribute) Locator() locator.AttributeLocator { return a.loc }

func (a *Attribute) String() string { return "lazy(" + a.loc.String() + ")" }

// Get reads the attribute. A missing attribute reads as "".
func (a *Attribute) Get(ctx context.Context) (string, error) {
	return a.handle.Attribute(ctx, a.loc.Name())
}
