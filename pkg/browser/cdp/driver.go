// Package cdp drives Chrome over the DevTools protocol with chromedp.
// Elements are remote object references; every operation runs a small
// function against the reference in the page.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Driver implements webdriver.Driver over an Executor.
type Driver struct {
	exec   Executor
	logger *zap.Logger
}

var (
	_ webdriver.Driver    = (*Driver)(nil)
	_ webdriver.Navigator = (*Driver)(nil)
)

// New returns a driver that issues protocol calls through exec.
func New(exec Executor, opts ...Option) *Driver {
	d := &Driver{exec: exec, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("cdp")
	return d
}

// Navigate loads url in the tab and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Info("Navigating", zap.String("url", url))
	if err := d.exec.ExecuteAction(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to '%s': %w", url, err)
	}
	return nil
}

func (d *Driver) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	q, err := loc.Query()
	if err != nil {
		return nil, err
	}
	obj, err := d.exec.Evaluate(ctx, findExpression(q, 0), false)
	if err != nil {
		return nil, mapError(err)
	}
	return d.elementOrNotFound(obj, loc)
}

func (d *Driver) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	q, err := loc.Query()
	if err != nil {
		return nil, err
	}
	matches, err := d.exec.Evaluate(ctx, findExpression(q, -1), false)
	if err != nil {
		return nil, mapError(err)
	}
	return d.collect(ctx, matches)
}

func findExpression(q locator.Query, index int) string {
	return fmt.Sprintf("(%s)(null, %q, %s, %d)", findFunc, q.Kind, mustJSON(q.Expr), index)
}

func (d *Driver) elementOrNotFound(obj *runtime.RemoteObject, loc locator.Locator) (webdriver.Element, error) {
	if obj == nil || obj.ObjectID == "" {
		return nil, webdriver.NotFound(loc)
	}
	return &Element{driver: d, id: obj.ObjectID}, nil
}

// collect turns a remote array of matches into elements with one property
// read, then releases the array. The element references stay alive.
func (d *Driver) collect(ctx context.Context, matches *runtime.RemoteObject) ([]webdriver.Element, error) {
	if matches == nil || matches.ObjectID == "" {
		return []webdriver.Element{}, nil
	}
	defer d.release(ctx, matches.ObjectID)

	props, err := d.exec.GetProperties(ctx, matches.ObjectID)
	if err != nil {
		return nil, mapError(err)
	}
	type indexed struct {
		i  int
		id runtime.RemoteObjectID
	}
	found := make([]indexed, 0, len(props))
	for _, p := range props {
		i, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.ObjectID == "" {
			continue
		}
		found = append(found, indexed{i: i, id: p.Value.ObjectID})
	}
	slices.SortFunc(found, func(a, b indexed) int { return a.i - b.i })

	out := make([]webdriver.Element, len(found))
	for k, f := range found {
		out[k] = &Element{driver: d, id: f.id}
	}
	return out, nil
}

// release frees a remote object. Failures only leak memory in the page, so
// they are logged and dropped.
func (d *Driver) release(ctx context.Context, id runtime.RemoteObjectID) {
	if id == "" {
		return
	}
	if err := d.exec.ReleaseObject(context.WithoutCancel(ctx), id); err != nil {
		d.logger.Debug("Failed to release remote object.", zap.String("object_id", string(id)), zap.Error(err))
	}
}

// ExecuteScript runs source as a function body with args as its arguments.
// Element arguments are passed by reference; everything else is JSON
// encoded. Promises are awaited.
func (d *Driver) ExecuteScript(ctx context.Context, source string, args ...any) (any, error) {
	wrapped := "function() {\n" + source + "\n}"

	var obj *runtime.RemoteObject
	if hasElementArg(args) {
		global, err := d.exec.Evaluate(ctx, "globalThis", false)
		if err != nil {
			return nil, err
		}
		defer d.release(ctx, global.ObjectID)
		callArgs, err := callArguments(args)
		if err != nil {
			return nil, err
		}
		obj, err = d.exec.CallFunctionOn(ctx, global.ObjectID, wrapped, callArgs, true)
		if err != nil {
			return nil, mapError(err)
		}
	} else {
		encoded, err := json.Marshal(normalizeArgs(args))
		if err != nil {
			return nil, fmt.Errorf("failed to encode script arguments: %w", err)
		}
		expr := "(" + wrapped + ").apply(null, " + string(encoded) + ")"
		obj, err = d.exec.Evaluate(ctx, expr, true)
		if err != nil {
			return nil, err
		}
	}

	var out any
	if err := decodeValue(obj, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func hasElementArg(args []any) bool {
	for _, a := range args {
		if _, ok := a.(*Element); ok {
			return true
		}
	}
	return false
}

func callArguments(args []any) ([]*runtime.CallArgument, error) {
	out := make([]*runtime.CallArgument, len(args))
	for i, a := range args {
		if el, ok := a.(*Element); ok {
			out[i] = &runtime.CallArgument{ObjectID: el.id}
			continue
		}
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to encode script argument %d: %w", i, err)
		}
		out[i] = &runtime.CallArgument{Value: []byte(raw)}
	}
	return out, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// decodeValue unmarshals a by-value result. undefined and null leave v untouched.
func decodeValue(obj *runtime.RemoteObject, v any) error {
	if obj == nil || obj.Type == runtime.TypeUndefined || len(obj.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal([]byte(obj.Value), v); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// Protocol messages that mean the remote object or its frame is gone.
var staleProtocolErrors = []string{
	"Could not find object with given id",
	"Cannot find context with specified id",
	"Execution context was destroyed",
	"Node with given id does not belong to the document",
}

// mapError turns stale markers, from the page or the protocol, into
// webdriver.ErrStaleElement.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var scriptErr *webdriver.ScriptError
	if errors.As(err, &scriptErr) {
		if strings.Contains(scriptErr.Message, staleMarker) {
			return fmt.Errorf("%w: %s", webdriver.ErrStaleElement, scriptErr.Message)
		}
		return err
	}
	msg := err.Error()
	for _, s := range staleProtocolErrors {
		if strings.Contains(msg, s) {
			return fmt.Errorf("%w: %v", webdriver.ErrStaleElement, err)
		}
	}
	return err
}
