package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Executor is the slice of the DevTools protocol the driver needs. Script
// exceptions come back as *webdriver.ScriptError; protocol failures as
// plain errors.
type Executor interface {
	// Evaluate runs expression in the page's main world.
	Evaluate(ctx context.Context, expression string, returnByValue bool) (*runtime.RemoteObject, error)
	// CallFunctionOn calls function with this bound to the remote object.
	CallFunctionOn(ctx context.Context, objectID runtime.RemoteObjectID, function string, args []*runtime.CallArgument, returnByValue bool) (*runtime.RemoteObject, error)
	// GetProperties lists the own properties of a remote object.
	GetProperties(ctx context.Context, objectID runtime.RemoteObjectID) ([]*runtime.PropertyDescriptor, error)
	// ReleaseObject frees a remote object reference held by the page.
	ReleaseObject(ctx context.Context, objectID runtime.RemoteObjectID) error
	// ExecuteAction runs chromedp actions, typically input events.
	ExecuteAction(ctx context.Context, actions ...chromedp.Action) error
}

// chromedpExecutor runs protocol calls against a chromedp tab context.
type chromedpExecutor struct {
	tab context.Context
}

// NewExecutor returns an Executor bound to tab, a context created by
// chromedp.NewContext.
func NewExecutor(tab context.Context) Executor {
	return &chromedpExecutor{tab: tab}
}

// combine returns a context that carries the tab's CDP connection and is
// cancelled when either ctx or the tab ends.
func (e *chromedpExecutor) combine(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancelCause(e.tab)
	stop := context.AfterFunc(ctx, func() { cancel(context.Cause(ctx)) })
	return opCtx, func() {
		stop()
		cancel(nil)
	}
}

func (e *chromedpExecutor) Evaluate(ctx context.Context, expression string, returnByValue bool) (*runtime.RemoteObject, error) {
	opCtx, cancel := e.combine(ctx)
	defer cancel()

	var obj *runtime.RemoteObject
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(c context.Context) error {
		res, exc, err := runtime.Evaluate(expression).
			WithReturnByValue(returnByValue).
			WithAwaitPromise(true).
			Do(c)
		if err != nil {
			return err
		}
		if exc != nil {
			return exceptionError(exc, expression)
		}
		obj = res
		return nil
	}))
	return obj, err
}

func (e *chromedpExecutor) CallFunctionOn(ctx context.Context, objectID runtime.RemoteObjectID, function string, args []*runtime.CallArgument, returnByValue bool) (*runtime.RemoteObject, error) {
	opCtx, cancel := e.combine(ctx)
	defer cancel()

	var obj *runtime.RemoteObject
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(c context.Context) error {
		res, exc, err := runtime.CallFunctionOn(function).
			WithObjectID(objectID).
			WithArguments(args).
			WithReturnByValue(returnByValue).
			WithAwaitPromise(true).
			Do(c)
		if err != nil {
			return err
		}
		if exc != nil {
			return exceptionError(exc, function)
		}
		obj = res
		return nil
	}))
	return obj, err
}

func (e *chromedpExecutor) GetProperties(ctx context.Context, objectID runtime.RemoteObjectID) ([]*runtime.PropertyDescriptor, error) {
	opCtx, cancel := e.combine(ctx)
	defer cancel()

	var props []*runtime.PropertyDescriptor
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(c context.Context) error {
		res, _, _, exc, err := runtime.GetProperties(objectID).WithOwnProperties(true).Do(c)
		if err != nil {
			return err
		}
		if exc != nil {
			return exceptionError(exc, "getProperties")
		}
		props = res
		return nil
	}))
	return props, err
}

func (e *chromedpExecutor) ReleaseObject(ctx context.Context, objectID runtime.RemoteObjectID) error {
	opCtx, cancel := e.combine(ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.ActionFunc(func(c context.Context) error {
		return runtime.ReleaseObject(objectID).Do(c)
	}))
}

func (e *chromedpExecutor) ExecuteAction(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := e.combine(ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

func exceptionError(exc *runtime.ExceptionDetails, source string) error {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg = exc.Exception.Description
	}
	// Descriptions carry the stack; the first line is the message.
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	if msg == "" {
		msg = fmt.Sprintf("exception at %d:%d", exc.LineNumber, exc.ColumnNumber)
	}
	return webdriver.NewScriptError(msg, source)
}
