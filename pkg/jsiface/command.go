package jsiface

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidName is returned for namespaces or method names that are not
// dotted JavaScript identifier paths.
var ErrInvalidName = errors.New("invalid script name")

var identPath = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidName reports whether name is a dotted identifier path such as
// "window.app.api".
func ValidName(name string) bool {
	return identPath.MatchString(name)
}

// Command renders the script that calls namespace.method with argc
// positional arguments. The arguments themselves travel separately so the
// driver marshals them.
func Command(namespace, method string, argc int) (string, error) {
	if !ValidName(namespace) {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidName, namespace)
	}
	if !ValidName(method) {
		return "", fmt.Errorf("%w: method %q", ErrInvalidName, method)
	}

	var b strings.Builder
	b.WriteString("return ")
	b.WriteString(namespace)
	b.WriteByte('.')
	b.WriteString(method)
	b.WriteByte('(')
	for i := 0; i < argc; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "arguments[%d]", i)
	}
	b.WriteString(");")
	return b.String(), nil
}
