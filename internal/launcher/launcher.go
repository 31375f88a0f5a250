// Package launcher turns configuration into a running driver session.
package launcher

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/lazydom/internal/config"
	"github.com/xkilldash9x/lazydom/pkg/browser/cdp"
	"github.com/xkilldash9x/lazydom/pkg/browser/htmldom"
	"github.com/xkilldash9x/lazydom/pkg/browser/pw"
	"github.com/xkilldash9x/lazydom/pkg/execctx"
	"github.com/xkilldash9x/lazydom/pkg/lazy"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Browser is what every configured driver provides.
type Browser interface {
	webdriver.Driver
	webdriver.Navigator
}

// Session is a launched driver registered as the current execution context.
type Session struct {
	Browser
	Registry *execctx.Registry

	cfg    config.Interface
	logger *zap.Logger
	close  func() error
}

type factory func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, func() error, error)

var factories = map[string]factory{
	config.DriverStatic:     launchStatic,
	config.DriverChromedp:   launchChromedp,
	config.DriverPlaywright: launchPlaywright,
}

// Open starts the driver named by browser.driver and registers it under name.
func Open(ctx context.Context, cfg config.Interface, name string, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bc := cfg.Browser()
	start, ok := factories[bc.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown browser driver '%s'", bc.Driver)
	}

	b, closeFn, err := start(ctx, bc, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s driver: %w", bc.Driver, err)
	}

	reg := execctx.NewRegistry()
	if err := reg.Register(name, b); err != nil {
		_ = closeFn()
		return nil, err
	}
	logger.Debug("Session opened.", zap.String("driver", bc.Driver), zap.String("context", name))
	return &Session{Browser: b, Registry: reg, cfg: cfg, logger: logger, close: closeFn}, nil
}

// Navigate loads url, bounded by browser.navigation_timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Browser().NavigationTimeout)
	defer cancel()
	return s.Browser.Navigate(ctx, url)
}

// HandleOptions are the lazy handle options implied by the resolution section.
func (s *Session) HandleOptions() []lazy.Option {
	r := s.cfg.Resolution()
	return []lazy.Option{
		lazy.WithLogger(s.logger),
		lazy.WithStaleRetries(r.StaleRetries),
		lazy.WithRetryInterval(r.RetryInterval),
	}
}

// Document is the document scope of the current execution context.
func (s *Session) Document() lazy.Scope {
	return lazy.Document(s.Registry)
}

// Close shuts the driver down.
func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func launchStatic(_ context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, func() error, error) {
	doc := htmldom.New(
		htmldom.WithLogger(logger),
		htmldom.WithHTTPClient(&http.Client{Timeout: cfg.NavigationTimeout}),
	)
	return doc, func() error { return nil }, nil
}

func launchChromedp(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, func() error, error) {
	b, err := cdp.Launch(ctx, cdp.LaunchOptions{
		Headless: cfg.Headless,
		ExecPath: cfg.ExecPath,
		Args:     cfg.Args,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return b.Driver, b.Close, nil
}

func launchPlaywright(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Browser, func() error, error) {
	b, err := pw.Launch(ctx, pw.LaunchOptions{
		Headless: cfg.Headless,
		ExecPath: cfg.ExecPath,
		Args:     cfg.Args,
		Install:  cfg.Install,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return b.Driver, b.Close, nil
}
