package htmldom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// DefaultScriptTimeout bounds scripts whose context has no deadline.
const DefaultScriptTimeout = 30 * time.Second

// scriptRuntime is the page's JavaScript global scope. It has no DOM
// bindings; window is an alias of the global object so page scripts can
// publish namespaces on it.
type scriptRuntime struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	logger *zap.Logger
}

func newScriptRuntime(logger *zap.Logger) *scriptRuntime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	_ = vm.Set("window", vm.GlobalObject())
	return &scriptRuntime{vm: vm, logger: logger.Named("script")}
}

// ExecuteScript runs source as the body of a function called with args, so
// the script reads them as arguments[i] and returns with return. Promises
// that settle during the call are unwrapped.
func (d *Document) ExecuteScript(ctx context.Context, source string, args ...any) (any, error) {
	d.mu.RLock()
	rt := d.scripts
	d.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.scriptTimeout)
		defer cancel()
	}
	return rt.call(ctx, source, args)
}

func (r *scriptRuntime) call(ctx context.Context, source string, args []any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prog, err := goja.Compile("", "(function(){\n"+source+"\n})", false)
	if err != nil {
		return nil, scriptError(err, source)
	}
	defer r.interruptOn(ctx)()

	fnVal, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, r.mapError(ctx, err, source)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("script did not compile to a function")
	}

	gojaArgs := make([]goja.Value, len(args))
	for i, a := range args {
		gojaArgs[i] = r.vm.ToValue(a)
	}
	result, err := fn(goja.Null(), gojaArgs...)
	if err != nil {
		return nil, r.mapError(ctx, err, source)
	}
	return settle(result, source)
}

// run evaluates source as global code.
func (r *scriptRuntime) run(ctx context.Context, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.interruptOn(ctx)()

	if _, err := r.vm.RunString(source); err != nil {
		return r.mapError(ctx, err, source)
	}
	return nil
}

// interruptOn stops the VM when ctx ends. The returned func must be called
// once the VM is idle again.
func (r *scriptRuntime) interruptOn(ctx context.Context) func() {
	done, stopped := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-stopped
		r.vm.ClearInterrupt()
	}
}

func (r *scriptRuntime) mapError(ctx context.Context, err error, source string) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		r.logger.Debug("Script interrupted.", zap.Error(ctx.Err()))
		return fmt.Errorf("javascript execution interrupted by context: %w", ctx.Err())
	}
	return scriptError(err, source)
}

// settle exports result, unwrapping a settled promise. Nothing drives timers
// here, so a promise still pending after the call never settles.
func settle(result goja.Value, source string) (any, error) {
	if result == nil {
		return nil, nil
	}
	promise, ok := result.Export().(*goja.Promise)
	if !ok {
		return result.Export(), nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result().Export(), nil
	case goja.PromiseStateRejected:
		return nil, scriptError(fmt.Errorf("promise rejected: %v", promise.Result()), source)
	default:
		return nil, scriptError(errors.New("promise did not settle"), source)
	}
}

func scriptError(err error, source string) error {
	msg := err.Error()
	var exc *goja.Exception
	if errors.As(err, &exc) {
		msg = exc.Value().String()
	}
	return webdriver.NewScriptError(msg, source)
}

// runInlineScripts evaluates the document's inline <script> elements in
// order. Failures are logged and do not stop later scripts.
func (d *Document) runInlineScripts(ctx context.Context) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.scriptTimeout)
		defer cancel()
	}

	d.mu.RLock()
	var sources []string
	for _, s := range htmlquery.Find(d.root, "//script[not(@src)]") {
		typ := strings.ToLower(htmlquery.SelectAttr(s, "type"))
		if typ != "" && typ != "text/javascript" && typ != "application/javascript" {
			continue
		}
		sources = append(sources, htmlquery.InnerText(s))
	}
	rt := d.scripts
	d.mu.RUnlock()

	for i, src := range sources {
		if err := rt.run(ctx, src); err != nil {
			d.logger.Warn("Inline script failed.", zap.Int("index", i), zap.Error(err))
		}
	}
}
