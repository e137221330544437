package csf

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// namedChildren returns n's named children.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, int(n.NamedChildCount()))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// hasToken reports whether n has an anonymous child with the given type,
// such as the "default" keyword of an export statement.
func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

// unwrap strips parentheses and TypeScript `as`, `satisfies` and
// non-null wrappers around an expression.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression", "type_assertion":
			var inner *sitter.Node
			for _, c := range namedChildren(n) {
				if c.Type() != "type_arguments" {
					inner = c
					break
				}
			}
			if inner == nil {
				return n
			}
			n = inner
		default:
			return n
		}
	}
	return nil
}

// stringValue returns the value of a string literal or a template literal
// without substitutions.
func stringValue(n *sitter.Node, src []byte) (string, bool) {
	n = unwrap(n)
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
		text := n.Content(src)
		if len(text) < 2 {
			return "", false
		}
		return unescape(text[1 : len(text)-1]), true
	case "template_string":
		for _, c := range namedChildren(n) {
			if c.Type() == "template_substitution" {
				return "", false
			}
		}
		text := n.Content(src)
		return text[1 : len(text)-1], true
	}
	return "", false
}

// unescape resolves the common backslash escapes of a JavaScript string.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// stringArray returns the values of an array of string literals.
func stringArray(n *sitter.Node, src []byte) ([]string, bool) {
	n = unwrap(n)
	if n == nil || n.Type() != "array" {
		return nil, false
	}
	out := []string{}
	for _, c := range namedChildren(n) {
		if c.Type() == "comment" {
			continue
		}
		v, ok := stringValue(c, src)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// propertyKey returns the name of an object key.
func propertyKey(n *sitter.Node, src []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "property_identifier", "identifier", "shorthand_property_identifier":
		return n.Content(src), true
	case "string":
		return stringValue(n, src)
	}
	return "", false
}

// objectProperties maps the keys of an object literal to their value nodes.
// Shorthand properties map to their identifier.
func objectProperties(n *sitter.Node, src []byte) map[string]*sitter.Node {
	props := make(map[string]*sitter.Node)
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "pair":
			if key, ok := propertyKey(c.ChildByFieldName("key"), src); ok {
				props[key] = c.ChildByFieldName("value")
			}
		case "shorthand_property_identifier":
			props[c.Content(src)] = c
		}
	}
	return props
}

// firstError returns a description of the first syntax error below n.
func firstError(n *sitter.Node) string {
	if n == nil || !n.HasError() {
		return ""
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		p := n.StartPoint()
		return fmt.Sprintf("syntax error at line %d, column %d", p.Row+1, p.Column+1)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if msg := firstError(n.Child(i)); msg != "" {
			return msg
		}
	}
	p := n.StartPoint()
	return fmt.Sprintf("syntax error at line %d, column %d", p.Row+1, p.Column+1)
}
