// Package locator holds the immutable selection criteria used to find elements.
package locator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLocator is returned when a locator has no usable selection strategy.
var ErrInvalidLocator = errors.New("invalid locator: no selection strategy set")

// Strategy identifies how a Locator selects elements.
type Strategy int

const (
	strategyNone Strategy = iota
	ClassName
	CSS
	ID
	XPath
	Name
	TagName
	LinkText
	PartialLinkText
)

var strategyNames = map[Strategy]string{
	ClassName:       "className",
	CSS:             "css",
	ID:              "id",
	XPath:           "xpath",
	Name:            "name",
	TagName:         "tagName",
	LinkText:        "linkText",
	PartialLinkText: "partialLinkText",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "none"
}

// Locator is a selection criterion with exactly one active strategy.
// The zero value is invalid.
type Locator struct {
	strategy Strategy
	value    string
}

// Strategy returns the active strategy.
func (l Locator) Strategy() Strategy { return l.strategy }

// Value returns the strategy argument, e.g. the CSS selector.
func (l Locator) Value() string { return l.value }

// Validate reports ErrInvalidLocator for the zero value.
func (l Locator) Validate() error {
	if l.strategy == strategyNone || l.value == "" {
		return ErrInvalidLocator
	}
	return nil
}

func (l Locator) String() string {
	if l.Validate() != nil {
		return "By.<invalid>"
	}
	return fmt.Sprintf("By.%s: %s", l.strategy, l.value)
}

func newLocator(s Strategy, value string) (Locator, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Locator{}, fmt.Errorf("%w (%s is empty)", ErrInvalidLocator, s)
	}
	return Locator{strategy: s, value: value}, nil
}

func ByClassName(v string) (Locator, error)       { return newLocator(ClassName, v) }
func ByCSS(v string) (Locator, error)             { return newLocator(CSS, v) }
func ByID(v string) (Locator, error)              { return newLocator(ID, v) }
func ByXPath(v string) (Locator, error)           { return newLocator(XPath, v) }
func ByName(v string) (Locator, error)            { return newLocator(Name, v) }
func ByTagName(v string) (Locator, error)         { return newLocator(TagName, v) }
func ByLinkText(v string) (Locator, error)        { return newLocator(LinkText, v) }
func ByPartialLinkText(v string) (Locator, error) { return newLocator(PartialLinkText, v) }

// MustCSS is ByCSS for selectors known at compile time. It panics on an empty selector.
func MustCSS(v string) Locator {
	l, err := ByCSS(v)
	if err != nil {
		panic(err)
	}
	return l
}

// FindBy is the declarative form of a Locator: one candidate per strategy,
// most of them usually empty.
type FindBy struct {
	ClassName       string
	CSS             string
	ID              string
	XPath           string
	Name            string
	TagName         string
	LinkText        string
	PartialLinkText string
}

// Locator picks the first non-empty candidate in priority order:
// class name, CSS, id, XPath, name, tag name, link text, partial link text.
func (f FindBy) Locator() (Locator, error) {
	candidates := []struct {
		strategy Strategy
		value    string
	}{
		{ClassName, f.ClassName},
		{CSS, f.CSS},
		{ID, f.ID},
		{XPath, f.XPath},
		{Name, f.Name},
		{TagName, f.TagName},
		{LinkText, f.LinkText},
		{PartialLinkText, f.PartialLinkText},
	}
	for _, c := range candidates {
		if v := strings.TrimSpace(c.value); v != "" {
			return Locator{strategy: c.strategy, value: v}, nil
		}
	}
	return Locator{}, ErrInvalidLocator
}
