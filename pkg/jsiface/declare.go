package jsiface

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/xkilldash9x/lazydom/pkg/execctx"
)

// ErrBadDeclaration is returned when a script interface type cannot be
// mapped onto script functions.
var ErrBadDeclaration = errors.New("invalid script interface declaration")

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Method maps one func field onto a script function.
type Method struct {
	Field        string
	Name         string
	Args         []reflect.Type
	Returns      reflect.Type
	TakesContext bool

	index int
	fn    reflect.Type
}

// Declaration is the method table of a script interface type.
type Declaration struct {
	Type      reflect.Type
	Namespace string
	Methods   []Method
}

// Method looks up a method by its Go field name.
func (d *Declaration) Method(field string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Field == field {
			return m, true
		}
	}
	return Method{}, false
}

type declKey struct {
	t  reflect.Type
	ns string
}

var declarations sync.Map // declKey -> *Declaration

// Declare builds the method table for T, a struct of func fields. Each field
// must be func([context.Context,] args...) error or
// func([context.Context,] args...) (R, error). The script name defaults to
// the field name with a lower-case first word; a `js:"name"` tag overrides
// it and `js:"-"` skips the field. Tables are cached per type and namespace.
func Declare[T any](namespace string) (*Declaration, error) {
	return declare(reflect.TypeFor[T](), namespace)
}

func declare(t reflect.Type, namespace string) (*Declaration, error) {
	key := declKey{t: t, ns: namespace}
	if d, ok := declarations.Load(key); ok {
		return d.(*Declaration), nil
	}
	d, err := compile(t, namespace)
	if err != nil {
		return nil, err
	}
	actual, _ := declarations.LoadOrStore(key, d)
	return actual.(*Declaration), nil
}

func compile(t reflect.Type, namespace string) (*Declaration, error) {
	if !ValidName(namespace) {
		return nil, fmt.Errorf("%w: namespace %q", ErrInvalidName, namespace)
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrBadDeclaration, t)
	}

	d := &Declaration{Type: t, Namespace: namespace}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag, tagged := f.Tag.Lookup("js")
		if tag == "-" {
			continue
		}
		if !f.IsExported() || f.Type.Kind() != reflect.Func {
			if tagged {
				return nil, fmt.Errorf("%w: %s.%s must be an exported func field", ErrBadDeclaration, t, f.Name)
			}
			continue
		}

		m, err := compileMethod(t, f)
		if err != nil {
			return nil, err
		}
		if tag != "" {
			if !ValidName(tag) {
				return nil, fmt.Errorf("%w: %s.%s tag %q", ErrInvalidName, t, f.Name, tag)
			}
			m.Name = tag
		}
		d.Methods = append(d.Methods, m)
	}
	return d, nil
}

func compileMethod(owner reflect.Type, f reflect.StructField) (Method, error) {
	ft := f.Type
	bad := func(reason string) (Method, error) {
		return Method{}, fmt.Errorf("%w: %s.%s %s: %s", ErrBadDeclaration, owner, f.Name, ft, reason)
	}
	if ft.IsVariadic() {
		return bad("variadic functions are not supported")
	}

	m := Method{Field: f.Name, Name: lowerCamel(f.Name), index: f.Index[0], fn: ft}
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		if in == contextType {
			if i != 0 {
				return bad("context.Context must be the first argument")
			}
			m.TakesContext = true
			continue
		}
		m.Args = append(m.Args, in)
	}

	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != errorType {
			return bad("the last result must be error")
		}
	case 2:
		if ft.Out(1) != errorType {
			return bad("the last result must be error")
		}
		m.Returns = ft.Out(0)
	default:
		return bad("want (error) or (R, error) results")
	}
	return m, nil
}

// lowerCamel lower-cases the leading word of a Go identifier:
// VoidMethod -> voidMethod, ID -> id, HTMLText -> htmlText.
func lowerCamel(name string) string {
	r := []rune(name)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n == 1 || n == len(r):
		return strings.ToLower(string(r[:n])) + string(r[n:])
	default:
		// Keep the last capital of an acronym run as the start of the next word.
		return strings.ToLower(string(r[:n-1])) + string(r[n-1:])
	}
}

// Create returns a T whose func fields call the matching functions of
// namespace on the driver current at call time.
func Create[T any](provider execctx.Provider, namespace string, opts ...Option) (*T, error) {
	decl, err := Declare[T](namespace)
	if err != nil {
		return nil, err
	}
	proxy, err := NewProxy(provider, namespace, opts...)
	if err != nil {
		return nil, err
	}

	out := new(T)
	v := reflect.ValueOf(out).Elem()
	for _, m := range decl.Methods {
		v.Field(m.index).Set(reflect.MakeFunc(m.fn, bind(proxy, m)))
	}
	return out, nil
}

func bind(proxy *Proxy, m Method) func([]reflect.Value) []reflect.Value {
	return func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if m.TakesContext {
			if c, ok := in[0].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
			in = in[1:]
		}
		var args []any
		for _, a := range in {
			args = append(args, a.Interface())
		}

		res, err := proxy.invoke(ctx, m.Name, m.Returns, args)
		errVal := reflect.Zero(errorType)
		if err != nil {
			errVal = reflect.ValueOf(&err).Elem()
		}
		if m.Returns == nil {
			return []reflect.Value{errVal}
		}
		if err != nil || !res.IsValid() {
			res = reflect.Zero(m.Returns)
		}
		return []reflect.Value{res, errVal}
	}
}
