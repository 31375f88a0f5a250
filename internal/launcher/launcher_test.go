package launcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lazydom/internal/config"
	"github.com/xkilldash9x/lazydom/pkg/lazy"
	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

func staticConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.SetBrowserDriver(config.DriverStatic)
	return cfg
}

func TestOpen_Static(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><h1 id="greeting">Hello, lazydom</h1></body></html>`)
	}))
	defer srv.Close()

	ctx := context.Background()
	s, err := Open(ctx, staticConfig(), "main", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "main", s.Registry.CurrentName())

	// Created before the page exists.
	h, err := lazy.ResolveLazy(s.Document(), locator.MustCSS("#greeting"), webdriver.CapElement, s.HandleOptions()...)
	require.NoError(t, err)

	require.NoError(t, s.Navigate(ctx, srv.URL))
	text, err := h.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello, lazydom", text)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetBrowserDriver("lynx")
	_, err := Open(context.Background(), cfg, "main", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown browser driver 'lynx'")
}

func TestOpen_StartFailure(t *testing.T) {
	boom := errors.New("no chrome here")
	orig := factories[config.DriverChromedp]
	factories[config.DriverChromedp] = func(context.Context, config.BrowserConfig, *zap.Logger) (Browser, func() error, error) {
		return nil, nil, boom
	}
	t.Cleanup(func() { factories[config.DriverChromedp] = orig })

	_, err := Open(context.Background(), config.NewDefaultConfig(), "main", nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to start chromedp driver")
}

func TestSession_NavigationTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := staticConfig()
	cfg.BrowserCfg.NavigationTimeout = 50 * time.Millisecond
	s, err := Open(context.Background(), cfg, "main", nil)
	require.NoError(t, err)

	err = s.Navigate(context.Background(), srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_HandleOptionsApplyRetries(t *testing.T) {
	cfg := staticConfig()
	cfg.SetResolutionStaleRetries(0)
	s, err := Open(context.Background(), cfg, "main", nil)
	require.NoError(t, err)

	calls := 0
	h := lazy.New(func(context.Context) (webdriver.Element, error) {
		calls++
		return nil, webdriver.ErrStaleElement
	}, webdriver.CapElement, s.HandleOptions()...)

	err = h.Click(context.Background())
	var stale *lazy.StaleError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, 1, stale.Attempts)
	assert.Equal(t, 1, calls)
}
