// Package execctx tracks which driver session is current. Resolvers and
// script proxies hold a Provider and ask it for the driver on every call, so
// switching sessions between calls is always observed.
package execctx

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

var (
	ErrNoCurrentContext = errors.New("no current execution context")
	ErrUnknownContext   = errors.New("unknown execution context")
	ErrDuplicateContext = errors.New("execution context already registered")
	// ErrInvalidContextName is returned for the empty name, which the
	// registry reserves to mean "no current session".
	ErrInvalidContextName = errors.New("execution context name must not be empty")
)

// Provider returns the driver to use for the next operation.
type Provider interface {
	Current() (webdriver.Driver, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (webdriver.Driver, error)

func (f ProviderFunc) Current() (webdriver.Driver, error) { return f() }

// Static always provides the same driver.
func Static(d webdriver.Driver) Provider {
	return ProviderFunc(func() (webdriver.Driver, error) {
		if d == nil {
			return nil, ErrNoCurrentContext
		}
		return d, nil
	})
}

// Registry holds named driver sessions and which one is current.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]webdriver.Driver
	current  string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]webdriver.Driver)}
}

// Register adds a session. The first registered session becomes current.
func (r *Registry) Register(name string, d webdriver.Driver) error {
	if name == "" {
		return ErrInvalidContextName
	}
	if d == nil {
		return fmt.Errorf("execution context %q: nil driver", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateContext, name)
	}
	r.sessions[name] = d
	if r.current == "" {
		r.current = name
	}
	return nil
}

// Unregister removes a session. Removing the current session leaves no current session.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
	if r.current == name {
		r.current = ""
	}
}

// Switch makes the named session current.
func (r *Registry) Switch(name string) error {
	if name == "" {
		return ErrInvalidContextName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownContext, name)
	}
	r.current = name
	return nil
}

// Current implements Provider.
func (r *Registry) Current() (webdriver.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == "" {
		return nil, ErrNoCurrentContext
	}
	return r.sessions[r.current], nil
}

// CurrentName returns the name of the current session, or "".
func (r *Registry) CurrentName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Names lists registered sessions in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sessions))
	for n := range r.sessions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
