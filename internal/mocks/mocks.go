// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// -- Driver Mock --

// MockDriver mocks webdriver.Driver.
type MockDriver struct {
	mock.Mock
}

var _ webdriver.Driver = (*MockDriver)(nil)

func (m *MockDriver) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	args := m.Called(ctx, loc)
	return elementArg(args, 0), args.Error(1)
}

func (m *MockDriver) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	args := m.Called(ctx, loc)
	return elementsArg(args, 0), args.Error(1)
}

// ExecuteScript records the source and the argument slice as two call arguments,
// so expectations read as On("ExecuteScript", mock.Anything, "return x();", []any(nil)).
func (m *MockDriver) ExecuteScript(ctx context.Context, source string, scriptArgs ...any) (any, error) {
	args := m.Called(ctx, source, scriptArgs)
	return args.Get(0), args.Error(1)
}

// -- Element Mocks --

// MockElement mocks webdriver.Element.
type MockElement struct {
	mock.Mock
}

var _ webdriver.Element = (*MockElement)(nil)

func (m *MockElement) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	args := m.Called(ctx, loc)
	return elementArg(args, 0), args.Error(1)
}

func (m *MockElement) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	args := m.Called(ctx, loc)
	return elementsArg(args, 0), args.Error(1)
}

func (m *MockElement) Click(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) TagName(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) Attribute(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockLocatableElement mocks webdriver.LocatableElement.
type MockLocatableElement struct {
	MockElement
}

var _ webdriver.LocatableElement = (*MockLocatableElement)(nil)

func (m *MockLocatableElement) Coordinates(ctx context.Context) (webdriver.Coordinates, error) {
	args := m.Called(ctx)
	return args.Get(0).(webdriver.Coordinates), args.Error(1)
}

// -- Helpers --

func elementArg(args mock.Arguments, i int) webdriver.Element {
	if v := args.Get(i); v != nil {
		return v.(webdriver.Element)
	}
	return nil
}

func elementsArg(args mock.Arguments, i int) []webdriver.Element {
	if v := args.Get(i); v != nil {
		return v.([]webdriver.Element)
	}
	return nil
}

// MockReleasableElement is a MockElement that also holds a browser-side
// reference.
type MockReleasableElement struct {
	MockElement
}

var _ webdriver.Releaser = (*MockReleasableElement)(nil)

func (m *MockReleasableElement) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
