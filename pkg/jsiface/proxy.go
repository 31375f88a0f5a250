// Package jsiface calls JavaScript functions exposed by the page as if they
// were Go methods. Results are coerced into the declared Go types.
package jsiface

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/execctx"
)

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the logger used for invocation tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Proxy invokes functions of one script namespace against the driver that is
// current at call time. It holds no page state.
type Proxy struct {
	provider  execctx.Provider
	namespace string
	logger    *zap.Logger
}

// NewProxy returns a proxy for namespace, e.g. "window.app".
func NewProxy(provider execctx.Provider, namespace string, opts ...Option) (*Proxy, error) {
	if !ValidName(namespace) {
		return nil, fmt.Errorf("%w: namespace %q", ErrInvalidName, namespace)
	}
	p := &Proxy{provider: provider, namespace: namespace, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("jsiface").With(zap.String("namespace", namespace))
	return p, nil
}

// Namespace returns the script object the proxy calls into.
func (p *Proxy) Namespace() string { return p.namespace }

func (p *Proxy) execute(ctx context.Context, method string, args []any) (any, error) {
	cmd, err := Command(p.namespace, method, len(args))
	if err != nil {
		return nil, err
	}
	if p.provider == nil {
		return nil, execctx.ErrNoCurrentContext
	}
	driver, err := p.provider.Current()
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Invoking script function.", zap.String("method", method), zap.Int("argc", len(args)))
	if len(args) == 0 {
		return driver.ExecuteScript(ctx, cmd)
	}
	return driver.ExecuteScript(ctx, cmd, args...)
}

// Invoke calls method with args and coerces the result into returns. A nil
// returns discards the result.
func (p *Proxy) Invoke(ctx context.Context, method string, returns reflect.Type, args ...any) (any, error) {
	v, err := p.invoke(ctx, method, returns, args)
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return v.Interface(), nil
}

func (p *Proxy) invoke(ctx context.Context, method string, returns reflect.Type, args []any) (reflect.Value, error) {
	raw, err := p.execute(ctx, method, args)
	if err != nil {
		return reflect.Value{}, err
	}
	v, err := Coerce(raw, returns)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%s.%s: %w", p.namespace, method, err)
	}
	return v, nil
}

// Void calls method and ignores whatever it returns.
func (p *Proxy) Void(ctx context.Context, method string, args ...any) error {
	_, err := p.execute(ctx, method, args)
	return err
}

// Call invokes method and coerces the result into T.
func Call[T any](ctx context.Context, p *Proxy, method string, args ...any) (T, error) {
	var zero T
	raw, err := p.execute(ctx, method, args)
	if err != nil {
		return zero, err
	}
	out, err := As[T](raw)
	if err != nil {
		return zero, fmt.Errorf("%s.%s: %w", p.namespace, method, err)
	}
	return out, nil
}
