// Package webdriver defines the contract lazydom expects from a browser
// automation driver. Implementations live under pkg/browser.
package webdriver

import (
	"context"

	"github.com/xkilldash9x/lazydom/pkg/locator"
)

// SearchContext is anything elements can be looked up from: a whole document or an element.
type SearchContext interface {
	// FindElement returns the first match, or an error wrapping ErrNoSuchElement.
	FindElement(ctx context.Context, loc locator.Locator) (Element, error)
	// FindElements returns every match in document order. Zero matches is not an error.
	FindElements(ctx context.Context, loc locator.Locator) ([]Element, error)
}

// ScriptExecutor runs script source in the page. Positional arguments are
// visible to the script as arguments[i] and are marshalled by the driver.
type ScriptExecutor interface {
	ExecuteScript(ctx context.Context, source string, args ...any) (any, error)
}

// Driver is a script-capable browser session.
type Driver interface {
	SearchContext
	ScriptExecutor
}

// Navigator is implemented by drivers that can load a URL.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Element is a live reference to a DOM element. Every method may fail with
// ErrStaleElement once the element has left the document.
type Element interface {
	SearchContext
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	TagName(ctx context.Context) (string, error)
	// Attribute returns the attribute value, or "" when it is absent.
	Attribute(ctx context.Context, name string) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
}

// Point is a position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Coordinates describes where an element's centre is, for coordinate-based interaction.
type Coordinates struct {
	InViewport Point   `json:"inViewport"`
	OnPage     Point   `json:"onPage"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Locatable is implemented by elements that can report their coordinates.
type Locatable interface {
	Coordinates(ctx context.Context) (Coordinates, error)
}

// LocatableElement is an element usable for coordinate-based interaction.
type LocatableElement interface {
	Element
	Locatable
}

// Releaser is implemented by elements backed by a reference the browser
// keeps alive until it is released.
type Releaser interface {
	Release(ctx context.Context) error
}
