package pw

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Element wraps a Playwright element handle.
type Element struct {
	driver *Driver
	handle playwright.ElementHandle
}

var _ webdriver.LocatableElement = (*Element)(nil)

// Handle returns the underlying Playwright handle.
func (e *Element) Handle() playwright.ElementHandle { return e.handle }

func (e *Element) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	sel, err := Selector(loc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := e.handle.QuerySelector(sel)
	if err != nil {
		return nil, mapError(err)
	}
	if h == nil {
		return nil, webdriver.NotFound(loc)
	}
	return e.driver.element(h), nil
}

func (e *Element) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	sel, err := Selector(loc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hs, err := e.handle.QuerySelectorAll(sel)
	if err != nil {
		return nil, mapError(err)
	}
	return e.driver.elements(hs), nil
}

// do runs fn unless ctx is already done, mapping detached-handle errors.
func (e *Element) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(fn())
}

func (e *Element) Click(ctx context.Context) error {
	return e.do(ctx, func() error { return e.handle.Click() })
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.do(ctx, func() error { return e.handle.Type(text) })
}

func (e *Element) Clear(ctx context.Context) error {
	return e.do(ctx, func() error { return e.handle.Fill("") })
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var out string
	err := e.do(ctx, func() error {
		text, err := e.handle.InnerText()
		out = strings.Join(strings.Fields(text), " ")
		return err
	})
	return out, err
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	var out string
	err := e.do(ctx, func() error {
		v, err := e.handle.Evaluate("el => el.tagName.toLowerCase()")
		if err != nil {
			return err
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("unexpected tag name %T", v)
		}
		out = s
		return nil
	})
	return out, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	var out string
	err := e.do(ctx, func() error {
		v, err := e.handle.GetAttribute(name)
		out = v
		return err
	})
	return out, err
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	var out bool
	err := e.do(ctx, func() error {
		v, err := e.handle.IsVisible()
		out = v
		return err
	})
	return out, err
}

// Coordinates scrolls the element into view and reports the centre of its
// bounding box.
func (e *Element) Coordinates(ctx context.Context) (webdriver.Coordinates, error) {
	var out webdriver.Coordinates
	err := e.do(ctx, func() error {
		if err := e.handle.ScrollIntoViewIfNeeded(); err != nil {
			return err
		}
		box, err := e.handle.BoundingBox()
		if err != nil {
			return err
		}
		if box == nil {
			return fmt.Errorf("element is not rendered and has no bounding box")
		}
		scroll, err := e.handle.Evaluate("() => [window.scrollX, window.scrollY]")
		if err != nil {
			return err
		}
		sx, sy := pair(scroll)
		cx, cy := box.X+box.Width/2, box.Y+box.Height/2
		out = webdriver.Coordinates{
			InViewport: webdriver.Point{X: cx, Y: cy},
			OnPage:     webdriver.Point{X: cx + sx, Y: cy + sy},
			Width:      box.Width,
			Height:     box.Height,
		}
		return nil
	})
	return out, err
}

func pair(v any) (float64, float64) {
	xs, ok := v.([]interface{})
	if !ok || len(xs) != 2 {
		return 0, 0
	}
	return number(xs[0]), number(xs[1])
}

func number(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
