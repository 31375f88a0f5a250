package locator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat is returned when a locator template and its arguments disagree.
var ErrFormat = errors.New("locator format mismatch")

// ErrInvalidAttribute is returned for an attribute locator without a name.
var ErrInvalidAttribute = errors.New("invalid attribute locator: empty attribute name")

// Format treats the locator value as a fmt template and returns a new locator
// with the same strategy, e.g. ByCSS("li:nth-child(%d)") formatted with 3.
// The receiver is left untouched.
func (l Locator) Format(args ...any) (Locator, error) {
	if err := l.Validate(); err != nil {
		return Locator{}, err
	}
	value := fmt.Sprintf(l.value, args...)
	if strings.Contains(value, "%!") {
		return Locator{}, fmt.Errorf("%w: %q with %d argument(s) gives %q", ErrFormat, l.value, len(args), value)
	}
	return newLocator(l.strategy, value)
}

// AttributeLocator selects one attribute of the element an element locator
// finds.
type AttributeLocator struct {
	element Locator
	name    string
}

// Attribute returns a locator for the named attribute of the element l finds.
func (l Locator) Attribute(name string) (AttributeLocator, error) {
	if err := l.Validate(); err != nil {
		return AttributeLocator{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return AttributeLocator{}, ErrInvalidAttribute
	}
	return AttributeLocator{element: l, name: name}, nil
}

// Element returns the locator of the element that carries the attribute.
func (a AttributeLocator) Element() Locator { return a.element }

// Name returns the attribute name.
func (a AttributeLocator) Name() string { return a.name }

// Validate reports whether both the element locator and the name are set.
func (a AttributeLocator) Validate() error {
	if err := a.element.Validate(); err != nil {
		return err
	}
	if a.name == "" {
		return ErrInvalidAttribute
	}
	return nil
}

// Format formats the element locator and keeps the attribute name.
func (a AttributeLocator) Format(args ...any) (AttributeLocator, error) {
	if err := a.Validate(); err != nil {
		return AttributeLocator{}, err
	}
	el, err := a.element.Format(args...)
	if err != nil {
		return AttributeLocator{}, err
	}
	return AttributeLocator{element: el, name: a.name}, nil
}

func (a AttributeLocator) String() string {
	if a.Validate() != nil {
		return "By.<invalid>@"
	}
	return a.element.String() + "@" + a.name
}
