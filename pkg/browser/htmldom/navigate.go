package htmldom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
)

// Navigate fetches targetURL and loads the response body. Relative URLs
// resolve against the current location.
func (d *Document) Navigate(ctx context.Context, targetURL string) error {
	resolved, err := d.resolveURL(targetURL)
	if err != nil {
		return fmt.Errorf("failed to resolve URL '%s': %w", targetURL, err)
	}

	d.logger.Info("Navigating", zap.String("url", resolved.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request for '%s': %w", resolved, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.logger.Warn("Request resulted in error status code",
			zap.Int("status", resp.StatusCode), zap.String("url", resp.Request.URL.String()))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return fmt.Errorf("'%s' returned %s, not HTML", resolved, contentType)
	}

	root, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse HTML response from '%s': %w", resp.Request.URL, err)
	}

	d.replace(ctx, root, resp.Request.URL)
	return nil
}

func (d *Document) resolveURL(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	base := d.url
	d.mu.RUnlock()
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("relative URL with no current location")
	}
	return u, nil
}
