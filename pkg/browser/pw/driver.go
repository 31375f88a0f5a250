// Package pw drives a browser through Playwright. Elements are Playwright
// element handles; locators become css= or xpath= selectors.
package pw

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Page is the part of playwright.Page the driver uses.
type Page interface {
	QuerySelector(selector string, options ...playwright.PageQuerySelectorOptions) (playwright.ElementHandle, error)
	QuerySelectorAll(selector string) ([]playwright.ElementHandle, error)
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
}

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

// Driver implements webdriver.Driver over a Playwright page.
type Driver struct {
	page   Page
	logger *zap.Logger
}

var (
	_ webdriver.Driver    = (*Driver)(nil)
	_ webdriver.Navigator = (*Driver)(nil)
)

// New wraps page.
func New(page Page, opts ...Option) *Driver {
	d := &Driver{page: page, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("playwright")
	return d
}

// Selector renders loc in Playwright selector syntax.
func Selector(loc locator.Locator) (string, error) {
	q, err := loc.Query()
	if err != nil {
		return "", err
	}
	if q.Kind == locator.QueryXPath {
		return "xpath=" + q.Expr, nil
	}
	return "css=" + q.Expr, nil
}

// Navigate loads url and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Info("Navigating", zap.String("url", url))
	if _, err := d.page.Goto(url); err != nil {
		return fmt.Errorf("failed to navigate to '%s': %w", url, err)
	}
	return nil
}

func (d *Driver) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	sel, err := Selector(loc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := d.page.QuerySelector(sel)
	if err != nil {
		return nil, mapError(err)
	}
	if h == nil {
		return nil, webdriver.NotFound(loc)
	}
	return d.element(h), nil
}

func (d *Driver) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	sel, err := Selector(loc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := d.page.QuerySelectorAll(sel)
	if err != nil {
		return nil, mapError(err)
	}
	return d.elements(hs), nil
}

func (d *Driver) element(h playwright.ElementHandle) *Element {
	return &Element{driver: d, handle: h}
}

func (d *Driver) elements(hs []playwright.ElementHandle) []webdriver.Element {
	out := make([]webdriver.Element, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, d.element(h))
		}
	}
	return out
}

// ExecuteScript runs source as a function body. Element arguments are
// passed as handles so the script receives the DOM node.
func (d *Driver) ExecuteScript(ctx context.Context, source string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr := "(args) => (function() {\n" + source + "\n}).apply(null, args)"
	converted := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(*Element); ok {
			converted[i] = el.handle
			continue
		}
		converted[i] = a
	}
	out, err := d.page.Evaluate(expr, converted)
	if err != nil {
		if mapped := mapError(err); webdriver.IsStale(mapped) {
			return nil, mapped
		}
		return nil, webdriver.NewScriptError(err.Error(), source)
	}
	return out, nil
}

// Playwright messages that mean a handle outlived its node or frame.
var staleMessages = []string{
	"not attached",
	"is disposed",
	"context was destroyed",
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, s := range staleMessages {
		if strings.Contains(msg, s) {
			return fmt.Errorf("%w: %v", webdriver.ErrStaleElement, err)
		}
	}
	return err
}
