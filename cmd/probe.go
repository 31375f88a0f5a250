package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/internal/launcher"
	"github.com/xkilldash9x/lazydom/internal/observability"
	"github.com/xkilldash9x/lazydom/pkg/lazy"
	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

type probeOptions struct {
	by     locator.FindBy
	within string
	attr   string
	all    bool
	count  bool
	click  bool
	typed  string
}

func newProbeCmd() *cobra.Command {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Open a page and read an element through a lazy handle",
		Long: `probe builds a lazy handle from the locator flags before the page is
loaded, navigates, then reads the element. With --all or --count every match
is read through a lazy list.`,
		Example: `  lazydom probe https://example.com --css h1
  lazydom probe https://example.com --xpath '//a' --attr href --all
  lazydom probe https://example.com --within '#results' --class result --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.by.ClassName, "class", "", "match by class name")
	f.StringVar(&opts.by.CSS, "css", "", "match by CSS selector")
	f.StringVar(&opts.by.ID, "id", "", "match by id")
	f.StringVar(&opts.by.XPath, "xpath", "", "match by XPath expression")
	f.StringVar(&opts.by.Name, "name", "", "match by name attribute")
	f.StringVar(&opts.by.TagName, "tag", "", "match by tag name")
	f.StringVar(&opts.by.LinkText, "link-text", "", "match links by exact text")
	f.StringVar(&opts.by.PartialLinkText, "partial-link-text", "", "match links containing text")
	f.StringVar(&opts.within, "within", "", "CSS selector of the element to search below")
	f.StringVar(&opts.attr, "attr", "", "print this attribute instead of the text")
	f.BoolVar(&opts.all, "all", false, "print every match")
	f.BoolVar(&opts.count, "count", false, "print the number of matches")
	f.BoolVar(&opts.click, "click", false, "click the element before reading it")
	f.StringVar(&opts.typed, "type", "", "type this text into the element before reading it")
	return cmd
}

func runProbe(ctx context.Context, out io.Writer, url string, opts probeOptions) error {
	loc, err := opts.by.Locator()
	if err != nil {
		return fmt.Errorf("a locator flag is required: %w", err)
	}
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	session, err := launcher.Open(ctx, cfg, "probe", logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Failed to close session.", zap.Error(err))
		}
	}()

	scope, err := probeScope(session, opts.within)
	if err != nil {
		return err
	}
	hopts := session.HandleOptions()

	// Handles are built before the page exists; nothing resolves until used.
	list, err := lazy.ResolveLazyList(scope, loc, hopts...)
	if err != nil {
		return err
	}
	target, err := lazy.ResolveLazy(scope, loc, webdriver.CapElement, hopts...)
	if err != nil {
		return err
	}

	if err := session.Navigate(ctx, url); err != nil {
		return err
	}

	switch {
	case opts.count:
		n, err := list.Len(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, n)
		return err
	case opts.all:
		return list.Each(ctx, func(_ int, el webdriver.Element) error {
			return printElement(ctx, out, el, opts.attr)
		})
	}

	if opts.click {
		if err := target.Click(ctx); err != nil {
			return fmt.Errorf("click failed: %w", err)
		}
	}
	if opts.typed != "" {
		if err := target.SendKeys(ctx, opts.typed); err != nil {
			return fmt.Errorf("typing failed: %w", err)
		}
	}
	return printElement(ctx, out, target, opts.attr)
}

func probeScope(session *launcher.Session, within string) (lazy.Scope, error) {
	if within == "" {
		return session.Document(), nil
	}
	rootLoc, err := locator.ByCSS(within)
	if err != nil {
		return lazy.Scope{}, err
	}
	root, err := lazy.ResolveLazy(session.Document(), rootLoc, webdriver.CapElement, session.HandleOptions()...)
	if err != nil {
		return lazy.Scope{}, err
	}
	return lazy.Rooted(session.Registry, root), nil
}

func printElement(ctx context.Context, out io.Writer, el webdriver.Element, attr string) error {
	var (
		s   string
		err error
	)
	if attr != "" {
		s, err = el.Attribute(ctx, attr)
	} else {
		s, err = el.Text(ctx)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, s)
	return err
}
