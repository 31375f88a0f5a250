package pw

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// LaunchOptions controls how Launch starts the browser.
type LaunchOptions struct {
	Headless bool
	ExecPath string
	Args     []string
	// Install downloads the Playwright driver and chromium first.
	Install bool
	Logger  *zap.Logger
}

var defaultArgs = []string{
	"--disable-gpu",
	"--no-sandbox",
	"--disable-dev-shm-usage",
}

// Browser owns a Playwright instance, a chromium process and one page.
type Browser struct {
	*Driver
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *zap.Logger
}

// Launch starts Playwright and chromium and opens a blank page.
func Launch(ctx context.Context, opts LaunchOptions) (*Browser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("playwright")

	if opts.Install {
		if err := install(ctx, logger); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     append(append([]string{}, defaultArgs...), opts.Args...),
		Timeout:  playwright.Float(60000),
	}
	if opts.ExecPath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecPath)
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not open page: %w", err)
	}

	logger.Info("Browser started.", zap.Bool("headless", opts.Headless))
	return &Browser{
		Driver:  New(page, WithLogger(opts.Logger)),
		pw:      pw,
		browser: browser,
		logger:  logger,
	}, nil
}

// Close shuts down chromium and the Playwright driver.
func (b *Browser) Close() error {
	var firstErr error
	if err := b.browser.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to stop playwright: %w", err)
	}
	b.logger.Info("Browser stopped.")
	return firstErr
}

// install fetches the driver and chromium. playwright.Install takes no
// context, so the call is abandoned, not killed, when ctx ends first.
func install(ctx context.Context, logger *zap.Logger) error {
	logger.Info("Installing playwright browsers.")
	done := make(chan error, 1)
	go func() {
		done <- playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("could not install playwright browsers: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
