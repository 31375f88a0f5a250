package htmldom

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

// Element is a node of a Document. It goes stale when the node is detached
// or the document is replaced.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ webdriver.Element = (*Element)(nil)

// Node returns the underlying node. Reading it is only safe while the
// document is not being mutated.
func (e *Element) Node() *html.Node { return e.node }

func (e *Element) String() string {
	return fmt.Sprintf("htmldom.Element<%s>", e.node.Data)
}

func (e *Element) stale() error {
	return fmt.Errorf("%w: <%s> is no longer attached to the document", webdriver.ErrStaleElement, e.node.Data)
}

// read runs fn under the read lock once the element is known to be attached.
func (e *Element) read(fn func(n *html.Node) error) error {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if !e.doc.attached(e.node) {
		return e.stale()
	}
	return fn(e.node)
}

func (e *Element) write(fn func(n *html.Node) error) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attached(e.node) {
		return e.stale()
	}
	return fn(e.node)
}

func (e *Element) FindElement(ctx context.Context, loc locator.Locator) (webdriver.Element, error) {
	var out webdriver.Element
	err := e.read(func(n *html.Node) error {
		nodes, err := query(n, loc, true)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			return webdriver.NotFound(loc)
		}
		out = e.doc.element(nodes[0])
		return nil
	})
	return out, err
}

func (e *Element) FindElements(ctx context.Context, loc locator.Locator) ([]webdriver.Element, error) {
	var out []webdriver.Element
	err := e.read(func(n *html.Node) error {
		nodes, err := query(n, loc, false)
		if err != nil {
			return err
		}
		out = e.doc.elements(nodes)
		return nil
	})
	return out, err
}

// Click applies the form state change a click would cause: checkboxes
// toggle, radios become the checked member of their group and options
// become selected. Other elements are left unchanged.
func (e *Element) Click(ctx context.Context) error {
	return e.write(func(n *html.Node) error {
		if hasAttr(n, "disabled") {
			return fmt.Errorf("<%s> is disabled", n.Data)
		}
		tag := strings.ToLower(n.Data)
		inputType := strings.ToLower(htmlquery.SelectAttr(n, "type"))
		switch {
		case tag == "input" && inputType == "checkbox":
			if hasAttr(n, "checked") {
				removeAttr(n, "checked")
			} else {
				setAttr(n, "checked", "checked")
			}
		case tag == "input" && inputType == "radio":
			selectRadio(n)
		case tag == "option":
			selectOption(n)
		default:
			e.doc.logger.Debug("Click has no effect on a static document.", zap.String("tag", tag))
		}
		return nil
	})
}

// SendKeys appends text to the element's value.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.write(func(n *html.Node) error {
		if strings.EqualFold(n.Data, "textarea") {
			setText(n, textContent(n)+text)
			return nil
		}
		setAttr(n, "value", htmlquery.SelectAttr(n, "value")+text)
		return nil
	})
}

func (e *Element) Clear(ctx context.Context) error {
	return e.write(func(n *html.Node) error {
		if strings.EqualFold(n.Data, "textarea") {
			setText(n, "")
			return nil
		}
		removeAttr(n, "value")
		return nil
	})
}

// Text returns the element's text with whitespace runs collapsed.
func (e *Element) Text(ctx context.Context) (string, error) {
	var out string
	err := e.read(func(n *html.Node) error {
		out = strings.Join(strings.Fields(goquery.NewDocumentFromNode(n).Text()), " ")
		return nil
	})
	return out, err
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	var out string
	err := e.read(func(n *html.Node) error {
		out = strings.ToLower(n.Data)
		return nil
	})
	return out, err
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	var out string
	err := e.read(func(n *html.Node) error {
		out = htmlquery.SelectAttr(n, name)
		return nil
	})
	return out, err
}

// IsDisplayed reports false when the element or an ancestor is hidden by the
// hidden attribute, an inline display:none or type=hidden.
func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	var out bool
	err := e.read(func(n *html.Node) error {
		out = displayed(n)
		return nil
	})
	return out, err
}

func displayed(n *html.Node) bool {
	if strings.EqualFold(n.Data, "input") && strings.EqualFold(htmlquery.SelectAttr(n, "type"), "hidden") {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		switch strings.ToLower(p.Data) {
		case "head", "script", "style", "template":
			return false
		}
		if hasAttr(p, "hidden") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(htmlquery.SelectAttr(p, "style")), " ", "")
		if strings.Contains(style, "display:none") {
			return false
		}
	}
	return true
}

func selectRadio(n *html.Node) {
	name := htmlquery.SelectAttr(n, "name")
	if name == "" {
		setAttr(n, "checked", "checked")
		return
	}

	scope := findAncestor(n, "form")
	if scope == nil {
		scope = n
		for scope.Parent != nil {
			scope = scope.Parent
		}
	}
	xpath := fmt.Sprintf(".//input[@type='radio' and @name=%s]", locator.XPathLiteral(name))
	for _, radio := range htmlquery.Find(scope, xpath) {
		if radio == n {
			setAttr(radio, "checked", "checked")
		} else {
			removeAttr(radio, "checked")
		}
	}
}

func selectOption(n *html.Node) {
	sel := findAncestor(n, "select")
	if sel == nil {
		setAttr(n, "selected", "selected")
		return
	}
	if hasAttr(sel, "multiple") {
		if hasAttr(n, "selected") {
			removeAttr(n, "selected")
		} else {
			setAttr(n, "selected", "selected")
		}
		return
	}
	for _, opt := range htmlquery.Find(sel, ".//option") {
		if opt == n {
			setAttr(opt, "selected", "selected")
		} else {
			removeAttr(opt, "selected")
		}
	}
}

func findAncestor(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, tag) {
			return p
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
