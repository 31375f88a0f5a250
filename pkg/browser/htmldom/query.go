package htmldom

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/lazydom/pkg/locator"
)

// query evaluates loc below root. CSS runs through goquery, XPath through
// htmlquery. Only element nodes are returned, in document order.
func query(root *html.Node, loc locator.Locator, first bool) ([]*html.Node, error) {
	q, err := loc.Query()
	if err != nil {
		return nil, err
	}

	switch q.Kind {
	case locator.QueryXPath:
		if first {
			n, err := htmlquery.Query(root, q.Expr)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", locator.ErrInvalidLocator, err)
			}
			if n == nil || n.Type != html.ElementNode {
				return elementsOnly(htmlquery.Find(root, q.Expr)), nil
			}
			return []*html.Node{n}, nil
		}
		nodes, err := htmlquery.QueryAll(root, q.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", locator.ErrInvalidLocator, err)
		}
		return elementsOnly(nodes), nil
	default:
		sel, err := cascadia.Compile(q.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", locator.ErrInvalidLocator, err)
		}
		found := goquery.NewDocumentFromNode(root).FindMatcher(sel)
		if first && found.Length() > 1 {
			found = found.First()
		}
		return found.Nodes, nil
	}
}

func elementsOnly(nodes []*html.Node) []*html.Node {
	out := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out
}
