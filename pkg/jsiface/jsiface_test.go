package jsiface_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lazydom/internal/mocks"
	"github.com/xkilldash9x/lazydom/pkg/execctx"
	"github.com/xkilldash9x/lazydom/pkg/jsiface"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testingEnum string

func (testingEnum) EnumNames() []string { return []string{"VALUE1", "VALUE2"} }

type testingInterface struct {
	VoidMethod          func() error
	ReturnString        func() (string, error)
	ReturnInteger       func() (int, error)
	ReturnIntegerObject func() (*int, error)
	ReturnEnumValue     func() (testingEnum, error)
}

func newInstance(t *testing.T, answer any) (*testingInterface, *mocks.MockDriver) {
	t.Helper()
	driver := &mocks.MockDriver{}
	driver.On("ExecuteScript", mock.Anything, mock.AnythingOfType("string"), []any(nil)).Return(answer, nil)
	instance, err := jsiface.Create[testingInterface](execctx.Static(driver), "base",
		jsiface.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return instance, driver
}

func TestReturnValues(t *testing.T) {
	t.Run("VoidMethod", func(t *testing.T) {
		instance, driver := newInstance(t, "ignored")
		require.NoError(t, instance.VoidMethod())
		driver.AssertCalled(t, "ExecuteScript", mock.Anything, "return base.voidMethod();", []any(nil))
		driver.AssertNumberOfCalls(t, "ExecuteScript", 1)
	})

	t.Run("String", func(t *testing.T) {
		instance, driver := newInstance(t, "someString")
		got, err := instance.ReturnString()
		require.NoError(t, err)
		assert.Equal(t, "someString", got)
		driver.AssertCalled(t, "ExecuteScript", mock.Anything, "return base.returnString();", []any(nil))
	})

	t.Run("Integer", func(t *testing.T) {
		// JSON numbers arrive as float64.
		instance, _ := newInstance(t, float64(1))
		got, err := instance.ReturnInteger()
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("IntegerObject", func(t *testing.T) {
		instance, _ := newInstance(t, int64(1))
		got, err := instance.ReturnIntegerObject()
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, *got)
	})

	t.Run("IntegerObjectNull", func(t *testing.T) {
		instance, _ := newInstance(t, nil)
		got, err := instance.ReturnIntegerObject()
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("IntegerNullFails", func(t *testing.T) {
		instance, _ := newInstance(t, nil)
		_, err := instance.ReturnInteger()
		var cerr *jsiface.CoercionError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, reflect.TypeFor[int](), cerr.Type)
	})

	t.Run("EnumValue", func(t *testing.T) {
		instance, _ := newInstance(t, "VALUE2")
		got, err := instance.ReturnEnumValue()
		require.NoError(t, err)
		assert.Equal(t, testingEnum("VALUE2"), got)
	})

	t.Run("EnumValueIsCaseSensitive", func(t *testing.T) {
		instance, _ := newInstance(t, "value2")
		_, err := instance.ReturnEnumValue()
		var cerr *jsiface.CoercionError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, err.Error(), "value2")
	})

	t.Run("EnumValueNotAMember", func(t *testing.T) {
		instance, _ := newInstance(t, "VALUE3")
		got, err := instance.ReturnEnumValue()
		var cerr *jsiface.CoercionError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, reflect.TypeFor[testingEnum](), cerr.Type)
		assert.Contains(t, err.Error(), "VALUE3")
		assert.Empty(t, got)
	})
}

func TestReturnValues_NoArgumentsPassNil(t *testing.T) {
	var seen []any
	sawNil := false
	driver := &mocks.MockDriver{}
	driver.On("ExecuteScript", mock.Anything, "return base.voidMethod();", mock.Anything).
		Run(func(args mock.Arguments) {
			seen, _ = args.Get(2).([]any)
			sawNil = seen == nil
		}).
		Return(nil, nil)

	instance, err := jsiface.Create[testingInterface](execctx.Static(driver), "base")
	require.NoError(t, err)
	require.NoError(t, instance.VoidMethod())
	assert.True(t, sawNil, "a zero-argument call must not pass an empty argument slice")
	assert.Empty(t, seen)
}

func TestReturnValues_ScriptErrorsPropagate(t *testing.T) {
	boom := errors.New("ReferenceError: base is not defined")
	driver := &mocks.MockDriver{}
	driver.On("ExecuteScript", mock.Anything, "return base.returnString();", []any(nil)).Return(nil, boom)

	instance, err := jsiface.Create[testingInterface](execctx.Static(driver), "base")
	require.NoError(t, err)

	_, err = instance.ReturnString()
	assert.Same(t, boom, err)
}

type calculator struct {
	Add     func(ctx context.Context, a, b int) (int, error)
	Reset   func(context.Context) error `js:"clear"`
	Version func() (string, error)      `js:"-"`
	GetURL  func() (string, error)
	helper  string
}

func TestCreate_ArgumentsAndContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	driver := &mocks.MockDriver{}
	driver.On("ExecuteScript", ctx, "return window.calc.add(arguments[0], arguments[1]);", []any{2, 3}).Return(float64(5), nil)
	driver.On("ExecuteScript", ctx, "return window.calc.clear();", []any(nil)).Return(nil, nil)
	driver.On("ExecuteScript", mock.Anything, "return window.calc.getURL();", []any(nil)).Return("http://x", nil)

	calc, err := jsiface.Create[calculator](execctx.Static(driver), "window.calc")
	require.NoError(t, err)

	sum, err := calc.Add(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)
	require.NoError(t, calc.Reset(ctx))

	url, err := calc.GetURL()
	require.NoError(t, err)
	assert.Equal(t, "http://x", url)

	assert.Nil(t, calc.Version, "skipped fields are left unset")
	driver.AssertExpectations(t)
}

func TestCreate_FollowsCurrentContext(t *testing.T) {
	first, second := &mocks.MockDriver{}, &mocks.MockDriver{}
	first.On("ExecuteScript", mock.Anything, "return base.returnString();", []any(nil)).Return("first", nil)
	second.On("ExecuteScript", mock.Anything, "return base.returnString();", []any(nil)).Return("second", nil)

	reg := execctx.NewRegistry()
	require.NoError(t, reg.Register("a", first))
	require.NoError(t, reg.Register("b", second))
	require.NoError(t, reg.Switch("a"))

	instance, err := jsiface.Create[testingInterface](reg, "base")
	require.NoError(t, err)

	got, err := instance.ReturnString()
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.NoError(t, reg.Switch("b"))
	got, err = instance.ReturnString()
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestDeclare(t *testing.T) {
	decl, err := jsiface.Declare[calculator]("window.calc")
	require.NoError(t, err)

	again, err := jsiface.Declare[calculator]("window.calc")
	require.NoError(t, err)
	assert.Same(t, decl, again, "declarations are cached")

	names := map[string]string{}
	for _, m := range decl.Methods {
		names[m.Field] = m.Name
	}
	assert.Equal(t, map[string]string{"Add": "add", "Reset": "clear", "GetURL": "getURL"}, names)

	add, ok := decl.Method("Add")
	require.True(t, ok)
	assert.True(t, add.TakesContext)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[int](), reflect.TypeFor[int]()}, add.Args)
	assert.Equal(t, reflect.TypeFor[int](), add.Returns)

	reset, _ := decl.Method("Reset")
	assert.Nil(t, reset.Returns)
}

func TestDeclare_Rejects(t *testing.T) {
	type noError struct {
		Get func() string
	}
	type tooMany struct {
		Get func() (string, int, error)
	}
	type lateContext struct {
		Get func(int, context.Context) error
	}
	type variadic struct {
		Get func(...int) error
	}
	type taggedData struct {
		Name string `js:"name"`
	}

	tests := []struct {
		name string
		decl func() error
	}{
		{"MissingError", func() error { _, err := jsiface.Declare[noError]("x"); return err }},
		{"TooManyResults", func() error { _, err := jsiface.Declare[tooMany]("x"); return err }},
		{"ContextNotFirst", func() error { _, err := jsiface.Declare[lateContext]("x"); return err }},
		{"Variadic", func() error { _, err := jsiface.Declare[variadic]("x"); return err }},
		{"TaggedNonFunc", func() error { _, err := jsiface.Declare[taggedData]("x"); return err }},
		{"NotAStruct", func() error { _, err := jsiface.Declare[int]("x"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.decl(), jsiface.ErrBadDeclaration)
		})
	}

	_, err := jsiface.Declare[testingInterface]("1bad")
	assert.ErrorIs(t, err, jsiface.ErrInvalidName)
}

func TestCommand(t *testing.T) {
	tests := []struct {
		ns, method string
		argc       int
		want       string
	}{
		{"base", "voidMethod", 0, "return base.voidMethod();"},
		{"window.app", "sum", 2, "return window.app.sum(arguments[0], arguments[1]);"},
		{"$", "ajax", 1, "return $.ajax(arguments[0]);"},
	}
	for _, tt := range tests {
		got, err := jsiface.Command(tt.ns, tt.method, tt.argc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "a..b", "a;alert(1)", "9x", "a.b()"} {
		_, err := jsiface.Command(bad, "m", 0)
		assert.ErrorIs(t, err, jsiface.ErrInvalidName, bad)
	}
}

func TestProxy(t *testing.T) {
	ctx := context.Background()
	driver := &mocks.MockDriver{}
	driver.On("ExecuteScript", ctx, "return app.count();", []any(nil)).Return(float64(3), nil)
	driver.On("ExecuteScript", ctx, "return app.reset(arguments[0]);", []any{true}).Return("ignored", nil)

	p, err := jsiface.NewProxy(execctx.Static(driver), "app")
	require.NoError(t, err)
	assert.Equal(t, "app", p.Namespace())

	n, err := jsiface.Call[uint8](ctx, p, "count")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), n)

	v, err := p.Invoke(ctx, "count", reflect.TypeFor[float64]())
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)

	require.NoError(t, p.Void(ctx, "reset", true))

	_, err = jsiface.NewProxy(execctx.Static(driver), "not valid")
	assert.ErrorIs(t, err, jsiface.ErrInvalidName)

	_, err = jsiface.Call[string](ctx, p, "count")
	var cerr *jsiface.CoercionError
	assert.ErrorAs(t, err, &cerr)
}
