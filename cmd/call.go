package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/internal/launcher"
	"github.com/xkilldash9x/lazydom/internal/observability"
	"github.com/xkilldash9x/lazydom/pkg/jsiface"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// returnKinds maps --returns values to the Go type results are coerced to.
// A nil type means the method returns nothing.
var returnKinds = map[string]reflect.Type{
	"void":   nil,
	"string": reflect.TypeOf(""),
	"int":    reflect.TypeOf(int64(0)),
	"float":  reflect.TypeOf(float64(0)),
	"bool":   reflect.TypeOf(false),
	"json":   reflect.TypeOf((*any)(nil)).Elem(),
}

type callOptions struct {
	returns string
	preload string
}

func newCallCmd() *cobra.Command {
	var opts callOptions

	cmd := &cobra.Command{
		Use:   "call <url> <namespace.method> [json-arg...]",
		Short: "Invoke a page script function and print its coerced result",
		Example: `  lazydom call https://example.com app.version --returns string
  lazydom call https://example.com math.add 1 2 --returns int
  lazydom call https://example.com store.find '{"id": 7}' --returns json --preload ./store.js`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], args[2:], opts)
		},
	}
	cmd.Flags().StringVar(&opts.returns, "returns", "json", "result kind: "+strings.Join(kindNames(), ", "))
	cmd.Flags().StringVar(&opts.preload, "preload", "", "script file run as a function body after navigation; assign to window to define globals")
	return cmd
}

func kindNames() []string {
	names := make([]string, 0, len(returnKinds))
	for k := range returnKinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// splitTarget splits "a.b.method" into namespace "a.b" and method "method".
func splitTarget(target string) (string, string, error) {
	i := strings.LastIndex(target, ".")
	if i <= 0 || i == len(target)-1 {
		return "", "", fmt.Errorf("target '%s' must be namespace.method", target)
	}
	return target[:i], target[i+1:], nil
}

func parseArgs(raw []string) ([]any, error) {
	args := make([]any, len(raw))
	for i, r := range raw {
		if err := json.UnmarshalFromString(r, &args[i]); err != nil {
			return nil, fmt.Errorf("argument %d is not valid JSON: %w", i+1, err)
		}
	}
	return args, nil
}

func runCall(ctx context.Context, out io.Writer, url, target string, rawArgs []string, opts callOptions) error {
	returns, ok := returnKinds[opts.returns]
	if !ok {
		return fmt.Errorf("unknown --returns '%s', want one of %s", opts.returns, strings.Join(kindNames(), ", "))
	}
	namespace, method, err := splitTarget(target)
	if err != nil {
		return err
	}
	args, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	session, err := launcher.Open(ctx, cfg, "call", logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Failed to close session.", zap.Error(err))
		}
	}()

	proxy, err := jsiface.NewProxy(session.Registry, namespace, jsiface.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := session.Navigate(ctx, url); err != nil {
		return err
	}
	if opts.preload != "" {
		if err := preload(ctx, session, opts.preload); err != nil {
			return err
		}
	}

	result, err := proxy.Invoke(ctx, method, returns, args...)
	if err != nil {
		return err
	}
	if returns == nil {
		return nil
	}
	encoded, err := json.MarshalToString(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, encoded)
	return err
}

func preload(ctx context.Context, session *launcher.Session, path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(expanded)
	if err != nil {
		return fmt.Errorf("failed to read preload script: %w", err)
	}
	if _, err := session.ExecuteScript(ctx, string(src)); err != nil {
		return fmt.Errorf("preload script failed: %w", err)
	}
	return nil
}
