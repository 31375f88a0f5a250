// Package enrich fills page-fragment structs with lazy element handles.
//
// A fragment is a struct whose fields carry locator tags:
//
//	type LoginForm struct {
//		Root     webdriver.Element `lazy:"root"`
//		User     webdriver.Element `id:"user"`
//		Submit   webdriver.LocatableElement `css:"button[type=submit]"`
//		Errors   *lazy.List `class:"error"`
//		Password PasswordBox `name:"password"`
//	}
//
// Lookups are rooted at the fragment's root element, or at the document when
// there is none. Nested fragments are rooted at their own field's element.
package enrich

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/execctx"
	"github.com/xkilldash9x/lazydom/pkg/lazy"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets the logger for the enricher and the handles it creates.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHandleOptions passes opts to every handle and list the enricher creates.
func WithHandleOptions(opts ...lazy.Option) Option {
	return func(e *Enricher) {
		e.handleOpts = append(e.handleOpts, opts...)
	}
}

// Enricher injects lazy handles into fragment structs.
type Enricher struct {
	provider   execctx.Provider
	logger     *zap.Logger
	handleOpts []lazy.Option
}

// New returns an Enricher whose handles resolve against the driver that
// provider reports as current at call time.
func New(provider execctx.Provider, opts ...Option) *Enricher {
	e := &Enricher{provider: provider, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("enrich")
	e.handleOpts = append([]lazy.Option{lazy.WithLogger(e.logger)}, e.handleOpts...)
	return e
}

// Enrich fills every tagged field of target, which must be a pointer to a
// struct. A nil root scopes lookups to the whole document. Nothing is looked
// up in the page until a handle is used.
func (e *Enricher) Enrich(target any, root webdriver.Element) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, target)
	}
	return e.enrich(v.Elem(), root)
}

// Fragment allocates a T and enriches it below root.
func Fragment[T any](e *Enricher, root webdriver.Element) (*T, error) {
	out := new(T)
	if err := e.Enrich(out, root); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Enricher) enrich(v reflect.Value, root webdriver.Element) error {
	s, err := schemaFor(v.Type())
	if err != nil {
		return err
	}

	if s.root >= 0 && root != nil {
		rf := v.Field(s.root)
		rv := reflect.ValueOf(root)
		if !rv.Type().AssignableTo(rf.Type()) {
			return fmt.Errorf("%w: root %T does not implement %s", ErrUnsupportedField, root, rf.Type())
		}
		rf.Set(rv)
	}

	scope := lazy.Document(e.provider)
	if root != nil {
		scope = lazy.Rooted(e.provider, root)
	}

	for _, f := range s.fields {
		fv := v.Field(f.index)
		switch f.kind {
		case kindElement:
			h, err := lazy.ResolveLazy(scope, f.loc, f.caps, e.handleOpts...)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(h))
		case kindList:
			l, err := lazy.ResolveLazyList(scope, f.loc, e.handleOpts...)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(l))
		case kindFragment, kindFragmentPtr:
			nestedRoot, err := lazy.ResolveLazy(scope, f.loc, webdriver.CapElement|webdriver.CapLocatable, e.handleOpts...)
			if err != nil {
				return err
			}
			target := fv
			if f.kind == kindFragmentPtr {
				ptr := reflect.New(f.fragment)
				fv.Set(ptr)
				target = ptr.Elem()
			}
			if err := e.enrich(target, nestedRoot); err != nil {
				return err
			}
		}
	}

	e.logger.Debug("Enriched fragment.",
		zap.String("type", s.typ.String()),
		zap.Int("fields", len(s.fields)),
		zap.Stringer("scope", scope))
	return nil
}
