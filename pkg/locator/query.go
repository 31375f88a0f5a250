package locator

import (
	"fmt"
	"strings"
)

// QueryKind is the query language a driver must evaluate.
type QueryKind int

const (
	QueryCSS QueryKind = iota
	QueryXPath
)

func (k QueryKind) String() string {
	if k == QueryXPath {
		return "xpath"
	}
	return "css"
}

// Query is the driver-native form of a Locator.
type Query struct {
	Kind QueryKind
	Expr string
}

// Query translates the locator into a CSS selector or an XPath expression.
// Link text strategies are expressed relative to the search root.
func (l Locator) Query() (Query, error) {
	if err := l.Validate(); err != nil {
		return Query{}, err
	}
	switch l.strategy {
	case ClassName:
		return Query{Kind: QueryCSS, Expr: "." + cssIdent(l.value)}, nil
	case CSS:
		return Query{Kind: QueryCSS, Expr: l.value}, nil
	case ID:
		return Query{Kind: QueryCSS, Expr: fmt.Sprintf(`[id=%s]`, cssString(l.value))}, nil
	case Name:
		return Query{Kind: QueryCSS, Expr: fmt.Sprintf(`[name=%s]`, cssString(l.value))}, nil
	case TagName:
		return Query{Kind: QueryCSS, Expr: l.value}, nil
	case XPath:
		return Query{Kind: QueryXPath, Expr: l.value}, nil
	case LinkText:
		return Query{Kind: QueryXPath, Expr: fmt.Sprintf(`.//a[normalize-space(string(.))=%s]`, XPathLiteral(l.value))}, nil
	case PartialLinkText:
		return Query{Kind: QueryXPath, Expr: fmt.Sprintf(`.//a[contains(string(.), %s)]`, XPathLiteral(l.value))}, nil
	}
	return Query{}, ErrInvalidLocator
}

// XPathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// cssIdent escapes characters that cannot appear unescaped in a class selector.
func cssIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\%x `, r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
