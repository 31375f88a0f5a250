// Package htmldom is a driver over a parsed, static HTML document. It has no
// layout engine and no DOM bindings for scripts, but it models enough of a
// page (lookups, form state, detachment) to drive lazy handles without a
// browser.
package htmldom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the document logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithHTTPClient sets the client Navigate uses.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Document) {
		if c != nil {
			d.client = c
		}
	}
}

// WithScriptTimeout bounds scripts run without a context deadline.
func WithScriptTimeout(timeout time.Duration) Option {
	return func(d *Document) {
		if timeout > 0 {
			d.scriptTimeout = timeout
		}
	}
}

// Document is a webdriver.Driver backed by an in-memory HTML tree.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
	url  *url.URL

	id            string
	client        *http.Client
	logger        *zap.Logger
	scriptTimeout time.Duration
	scripts       *scriptRuntime
}

var (
	_ webdriver.Driver    = (*Document)(nil)
	_ webdriver.Navigator = (*Document)(nil)
)

// New returns an empty document.
func New(opts ...Option) *Document {
	d := &Document{
		id:            uuid.NewString(),
		client:        &http.Client{Timeout: 30 * time.Second},
		logger:        zap.NewNop(),
		scriptTimeout: DefaultScriptTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("htmldom").With(zap.String("document_id", d.id))
	d.scripts = newScriptRuntime(d.logger)
	d.root = emptyDocument()
	return d
}

// Parse returns a document holding src.
func Parse(src string, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.Load(src); err != nil {
		return nil, err
	}
	return d, nil
}

func emptyDocument() *html.Node {
	doc, _ := html.Parse(strings.NewReader(""))
	return doc
}

// Load replaces the document with src. Every element found before is stale
// afterwards.
func (d *Document) Load(src string) error {
	return d.LoadReader(strings.NewReader(src))
}

// LoadReader replaces the document with the HTML read from r.
func (d *Document) LoadReader(r io.Reader) error {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	d.replace(context.Background(), root, nil)
	return nil
}

// replace swaps in a new tree and a fresh script scope, then runs the new
// page's inline scripts.
func (d *Document) replace(ctx context.Context, root *html.Node, location *url.URL) {
	d.mu.Lock()
	d.root = root
	d.url = location
	d.scripts = newScriptRuntime(d.logger)
	d.mu.Unlock()
	d.logger.Debug("Document loaded.", zap.Bool("navigated", location != nil))
	d.runInlineScripts(ctx)
}

// URL returns the address of the last navigation, or "" for loaded markup.
func (d *Document) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.url == nil {
		return ""
	}
	return d.url.String()
}

// Title returns the trimmed text of the <title> element.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t := htmlquery.FindOne(d.root, "//title"); t != nil {
		return strings.TrimSpace(htmlquery.InnerText(t))
	}
	return ""
}

// HTML renders the current document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (d *Document) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	nodes, err := query(d.root, loc, true)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, webdriver.NotFound(loc)
	}
	return d.element(nodes[0]), nil
}

func (d *Document) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	nodes, err := query(d.root, loc, false)
	if err != nil {
		return nil, err
	}
	return d.elements(nodes), nil
}

// Remove detaches the first match of loc from the document.
func (d *Document) Remove(ctx context.Context, loc locator.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := query(d.root, loc, true)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return webdriver.NotFound(loc)
	}
	n := nodes[0]
	n.Parent.RemoveChild(n)
	return nil
}

// SetAttribute sets name on the first match of loc.
func (d *Document) SetAttribute(ctx context.Context, loc locator.Locator, name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := query(d.root, loc, true)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return webdriver.NotFound(loc)
	}
	setAttr(nodes[0], name, value)
	return nil
}

// Append parses fragment and appends it to the first match of loc.
func (d *Document) Append(ctx context.Context, loc locator.Locator, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := query(d.root, loc, true)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return webdriver.NotFound(loc)
	}
	parent := nodes[0]
	children, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, c := range children {
		parent.AppendChild(c)
	}
	return nil
}

func (d *Document) element(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

func (d *Document) elements(nodes []*html.Node) []webdriver.Element {
	out := make([]webdriver.Element, len(nodes))
	for i, n := range nodes {
		out[i] = d.element(n)
	}
	return out
}

// attached reports whether n is still part of the current tree. Callers hold d.mu.
func (d *Document) attached(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}
