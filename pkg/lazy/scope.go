package lazy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/xkilldash9x/lazydom/pkg/execctx"
	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// ErrStaleScope means the element a lookup was rooted at has gone stale.
// Errors carrying it also match webdriver.ErrStaleElement.
var ErrStaleScope = errors.New("search scope is stale")

type staleScopeError struct{ err error }

func (e *staleScopeError) Error() string        { return fmt.Sprintf("%s: %v", ErrStaleScope, e.err) }
func (e *staleScopeError) Unwrap() error        { return e.err }
func (e *staleScopeError) Is(target error) bool { return target == ErrStaleScope }

// Scope is where a locator is evaluated: the whole document of the current
// driver, or below a root element.
type Scope struct {
	provider execctx.Provider
	root     webdriver.Element
}

// Document scopes lookups to the driver that p reports as current at call time.
func Document(p execctx.Provider) Scope {
	return Scope{provider: p}
}

// Rooted scopes lookups below root. A nil root falls back to the document of p.
func Rooted(p execctx.Provider, root webdriver.Element) Scope {
	return Scope{provider: p, root: root}
}

// IsRooted reports whether lookups start from an element.
func (s Scope) IsRooted() bool { return s.root != nil }

// Root returns the scope element, or nil for a document scope.
func (s Scope) Root() webdriver.Element { return s.root }

// unwrapper is implemented by lazy handles. Rooted lookups use it to
// re-resolve the whole scope chain instead of searching from a proxy.
type unwrapper interface {
	Unwrap(ctx context.Context) (webdriver.Element, error)
}

// searchContext returns where to search and a func that drops any element
// resolved just for this lookup.
func (s Scope) searchContext(ctx context.Context) (webdriver.SearchContext, func(), error) {
	noop := func() {}
	if s.root == nil {
		if s.provider == nil {
			return nil, noop, execctx.ErrNoCurrentContext
		}
		d, err := s.provider.Current()
		return d, noop, err
	}
	if u, ok := s.root.(unwrapper); ok {
		live, err := u.Unwrap(ctx)
		if err != nil {
			if webdriver.IsStale(err) {
				return nil, noop, &staleScopeError{err: err}
			}
			return nil, noop, err
		}
		return live, func() { _ = releaseElement(ctx, live) }, nil
	}
	return s.root, noop, nil
}

func (s Scope) wrap(err error) error {
	if s.root != nil && webdriver.IsStale(err) && !errors.Is(err, ErrStaleScope) {
		return &staleScopeError{err: err}
	}
	return err
}

func (s Scope) String() string {
	if s.root == nil {
		return "document"
	}
	if st, ok := s.root.(fmt.Stringer); ok {
		return st.String()
	}
	return "element"
}

// Resolver performs one lookup and returns the live element it finds.
type Resolver func(ctx context.Context) (webdriver.Element, error)

// ListResolver performs one lookup and returns every live match.
type ListResolver func(ctx context.Context) ([]webdriver.Element, error)

// NewResolver resolves the first match of loc within scope.
func NewResolver(scope Scope, loc locator.Locator) Resolver {
	return func(ctx context.Context) (webdriver.Element, error) {
		sc, done, err := scope.searchContext(ctx)
		if err != nil {
			return nil, err
		}
		defer done()
		el, err := sc.FindElement(ctx, loc)
		if err != nil {
			return nil, scope.wrap(err)
		}
		if el == nil {
			return nil, webdriver.NotFound(loc)
		}
		return el, nil
	}
}

// NewListResolver resolves every match of loc within scope, in driver order.
// Zero matches yields an empty slice.
func NewListResolver(scope Scope, loc locator.Locator) ListResolver {
	return func(ctx context.Context) ([]webdriver.Element, error) {
		sc, done, err := scope.searchContext(ctx)
		if err != nil {
			return nil, err
		}
		defer done()
		els, err := sc.FindElements(ctx, loc)
		if err != nil {
			return nil, scope.wrap(err)
		}
		if els == nil {
			els = []webdriver.Element{}
		}
		return els, nil
	}
}

// NthResolver resolves the list and picks index n. Index identity only holds
// within a single resolution; the page may reorder matches in between.
func NthResolver(list ListResolver, n int) Resolver {
	return func(ctx context.Context) (webdriver.Element, error) {
		els, err := list(ctx)
		if err != nil {
			return nil, err
		}
		if n < 0 || n >= len(els) {
			releaseAll(ctx, els)
			return nil, fmt.Errorf("%w: index %d of %d matches", webdriver.ErrNoSuchElement, n, len(els))
		}
		releaseAll(ctx, slices.Delete(slices.Clone(els), n, n+1))
		return els[n], nil
	}
}

// releaseElement drops the browser-side reference of el, if it has one.
func releaseElement(ctx context.Context, el webdriver.Element) error {
	r, ok := el.(webdriver.Releaser)
	if !ok {
		return nil
	}
	return r.Release(context.WithoutCancel(ctx))
}

func releaseAll(ctx context.Context, els []webdriver.Element) {
	for _, el := range els {
		_ = releaseElement(ctx, el)
	}
}
