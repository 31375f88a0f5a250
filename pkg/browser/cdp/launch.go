package cdp

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// LaunchOptions controls the Chrome process started by Launch.
type LaunchOptions struct {
	Headless bool
	// ExecPath overrides the browser binary chromedp would find on its own.
	ExecPath string
	// Args are extra command line flags, "name" or "name=value".
	Args   []string
	Logger *zap.Logger
}

// Browser is a launched Chrome tab. Close releases the tab and the process.
type Browser struct {
	*Driver
	cancel context.CancelFunc
}

func allocatorOptions(opts LaunchOptions) []chromedp.ExecAllocatorOption {
	out := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if !opts.Headless {
		out = append(out, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	for _, arg := range opts.Args {
		arg = strings.TrimPrefix(arg, "--")
		if key, value, ok := strings.Cut(arg, "="); ok {
			out = append(out, chromedp.Flag(key, value))
			continue
		}
		out = append(out, chromedp.Flag(arg, true))
	}
	return out
}

// Launch starts Chrome and opens a tab. The browser lives until Close is
// called or ctx is cancelled.
func Launch(ctx context.Context, opts LaunchOptions) (*Browser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	sugar := logger.Named("chromedp").Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// An empty Run starts the browser and attaches to the first tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Info("Browser started.", zap.Bool("headless", opts.Headless))

	return &Browser{
		Driver: New(NewExecutor(tabCtx), WithLogger(logger)),
		cancel: cancel,
	}, nil
}

// Close shuts the tab and the browser process down.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}
