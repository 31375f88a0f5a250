package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Element is a remote reference to a DOM element.
type Element struct {
	driver *Driver
	id     runtime.RemoteObjectID
}

var (
	_ webdriver.LocatableElement = (*Element)(nil)
	_ webdriver.Releaser         = (*Element)(nil)
)

// ObjectID returns the remote object id of the element.
func (e *Element) ObjectID() runtime.RemoteObjectID { return e.id }

func (e *Element) String() string { return "cdp.Element(" + string(e.id) + ")" }

func (e *Element) call(ctx context.Context, fn string, byValue bool, args ...any) (*runtime.RemoteObject, error) {
	callArgs, err := callArguments(args)
	if err != nil {
		return nil, err
	}
	obj, err := e.driver.exec.CallFunctionOn(ctx, e.id, fn, callArgs, byValue)
	if err != nil {
		return nil, mapError(err)
	}
	return obj, nil
}

func callValue[T any](ctx context.Context, e *Element, fn string, args ...any) (T, error) {
	var out T
	obj, err := e.call(ctx, fn, true, args...)
	if err != nil {
		return out, err
	}
	err = decodeValue(obj, &out)
	return out, err
}

func (e *Element) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	q, err := loc.Query()
	if err != nil {
		return nil, err
	}
	obj, err := e.call(ctx, findOnElementJS, false, q.Kind.String(), q.Expr, 0)
	if err != nil {
		return nil, err
	}
	return e.driver.elementOrNotFound(obj, loc)
}

func (e *Element) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	q, err := loc.Query()
	if err != nil {
		return nil, err
	}
	matches, err := e.call(ctx, findOnElementJS, false, q.Kind.String(), q.Expr, -1)
	if err != nil {
		return nil, err
	}
	return e.driver.collect(ctx, matches)
}

// Release frees the remote reference. The element is unusable afterwards.
func (e *Element) Release(ctx context.Context) error {
	return e.driver.exec.ReleaseObject(ctx, e.id)
}

type geometry struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// Click scrolls the element into view and presses the left mouse button at
// its centre.
func (e *Element) Click(ctx context.Context) error {
	g, err := callValue[geometry](ctx, e, geometryJS)
	if err != nil {
		return err
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("element %s has no size and cannot be clicked", e.id)
	}
	return e.driver.exec.ExecuteAction(ctx,
		input.DispatchMouseEvent(input.MouseMoved, g.X, g.Y),
		input.DispatchMouseEvent(input.MousePressed, g.X, g.Y).WithButton(input.Left).WithButtons(1).WithClickCount(1),
		input.DispatchMouseEvent(input.MouseReleased, g.X, g.Y).WithButton(input.Left).WithClickCount(1),
	)
}

// SendKeys focuses the element and inserts text at the caret.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	if _, err := e.call(ctx, focusJS, true); err != nil {
		return err
	}
	return e.driver.exec.ExecuteAction(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return input.InsertText(text).Do(c)
	}))
}

func (e *Element) Clear(ctx context.Context) error {
	_, err := e.call(ctx, clearJS, true)
	return err
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return callValue[string](ctx, e, textJS)
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	return callValue[string](ctx, e, tagNameJS)
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	return callValue[string](ctx, e, attrJS, name)
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	return callValue[bool](ctx, e, displayedJS)
}

// Coordinates scrolls the element into view and reports its centre.
func (e *Element) Coordinates(ctx context.Context) (webdriver.Coordinates, error) {
	g, err := callValue[geometry](ctx, e, geometryJS)
	if err != nil {
		return webdriver.Coordinates{}, err
	}
	return webdriver.Coordinates{
		InViewport: webdriver.Point{X: g.X, Y: g.Y},
		OnPage:     webdriver.Point{X: g.X + g.ScrollX, Y: g.Y + g.ScrollY},
		Width:      g.Width,
		Height:     g.Height,
	}, nil
}
