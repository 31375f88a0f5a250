package enrich

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/xkilldash9x/lazydom/pkg/lazy"
	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

var (
	// ErrInvalidTarget is returned when Enrich is not given a non-nil pointer to a struct.
	ErrInvalidTarget = errors.New("enrich target must be a non-nil pointer to a struct")
	// ErrDuplicateRoot is returned for fragments with more than one root field.
	ErrDuplicateRoot = errors.New("fragment declares more than one root field")
	// ErrUnsupportedField is returned for tagged fields lazydom cannot fill.
	ErrUnsupportedField = errors.New("unsupported field")
)

// Tag keys understood on fragment fields. A field carries at most one
// locator; when several are present the first in this order wins.
const (
	tagRoot            = "lazy"
	tagClass           = "class"
	tagCSS             = "css"
	tagID              = "id"
	tagXPath           = "xpath"
	tagName            = "name"
	tagTag             = "tag"
	tagLinkText        = "linkText"
	tagPartialLinkText = "partialLinkText"
)

var locatorKeys = []string{tagClass, tagCSS, tagID, tagXPath, tagName, tagTag, tagLinkText, tagPartialLinkText}

var (
	elementType          = reflect.TypeFor[webdriver.Element]()
	locatableType        = reflect.TypeFor[webdriver.Locatable]()
	locatableElementType = reflect.TypeFor[webdriver.LocatableElement]()
	listType             = reflect.TypeFor[*lazy.List]()
)

type fieldKind int

const (
	kindElement fieldKind = iota
	kindList
	kindFragment
	kindFragmentPtr
)

type field struct {
	index    int
	name     string
	kind     fieldKind
	loc      locator.Locator
	caps     webdriver.Capability
	fragment reflect.Type
}

// schema is the compiled form of one fragment type.
type schema struct {
	typ    reflect.Type
	root   int
	fields []field
}

var schemas sync.Map // reflect.Type -> *schema

func schemaFor(t reflect.Type) (*schema, error) {
	if s, ok := schemas.Load(t); ok {
		return s.(*schema), nil
	}
	s, err := compile(t, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	actual, _ := schemas.LoadOrStore(t, s)
	return actual.(*schema), nil
}

// compile builds the schema of t. chain holds the fragment types currently
// being compiled; a fragment that contains itself would be instantiated
// forever and is rejected.
func compile(t reflect.Type, chain map[reflect.Type]bool) (*schema, error) {
	chain[t] = true
	defer delete(chain, t)

	s := &schema{typ: t, root: -1}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		if f.Tag.Get(tagRoot) == "root" {
			if !f.IsExported() {
				return nil, fmt.Errorf("%w: %s.%s is unexported", ErrUnsupportedField, t, f.Name)
			}
			if s.root >= 0 {
				return nil, fmt.Errorf("%w: %s has %s and %s", ErrDuplicateRoot, t, t.Field(s.root).Name, f.Name)
			}
			if f.Type != elementType && f.Type != locatableElementType {
				return nil, fmt.Errorf("%w: root %s.%s must be webdriver.Element or webdriver.LocatableElement, not %s",
					ErrUnsupportedField, t, f.Name, f.Type)
			}
			s.root = i
			continue
		}

		loc, tagged, err := fieldLocator(f.Tag)
		if !tagged {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("%w: %s.%s is unexported", ErrUnsupportedField, t, f.Name)
		}

		fd := field{index: i, name: f.Name, loc: loc}
		switch {
		case f.Type == elementType:
			fd.kind, fd.caps = kindElement, webdriver.CapElement
		case f.Type == locatableElementType || f.Type == locatableType:
			fd.kind, fd.caps = kindElement, webdriver.CapElement|webdriver.CapLocatable
		case f.Type == listType:
			fd.kind = kindList
		case f.Type.Kind() == reflect.Struct:
			fd.kind, fd.fragment = kindFragment, f.Type
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
			fd.kind, fd.fragment = kindFragmentPtr, f.Type.Elem()
		default:
			return nil, fmt.Errorf("%w: %s.%s has type %s", ErrUnsupportedField, t, f.Name, f.Type)
		}
		if fd.fragment != nil {
			if chain[fd.fragment] {
				return nil, fmt.Errorf("%w: %s.%s makes %s recursive", ErrUnsupportedField, t, f.Name, fd.fragment)
			}
			if _, ok := schemas.Load(fd.fragment); !ok {
				nested, err := compile(fd.fragment, chain)
				if err != nil {
					return nil, err
				}
				schemas.LoadOrStore(fd.fragment, nested)
			}
		}
		s.fields = append(s.fields, fd)
	}
	return s, nil
}

// fieldLocator reads the locator keys of a struct tag. tagged reports
// whether any key was present at all.
func fieldLocator(tag reflect.StructTag) (loc locator.Locator, tagged bool, err error) {
	var fb locator.FindBy
	targets := map[string]*string{
		tagClass:           &fb.ClassName,
		tagCSS:             &fb.CSS,
		tagID:              &fb.ID,
		tagXPath:           &fb.XPath,
		tagName:            &fb.Name,
		tagTag:             &fb.TagName,
		tagLinkText:        &fb.LinkText,
		tagPartialLinkText: &fb.PartialLinkText,
	}
	for _, key := range locatorKeys {
		if v, ok := tag.Lookup(key); ok {
			*targets[key] = v
			tagged = true
		}
	}
	if !tagged {
		return locator.Locator{}, false, nil
	}
	loc, err = fb.Locator()
	return loc, true, err
}
