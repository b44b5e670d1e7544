package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// The selector engine supports the subset storefront heuristics need:
//   - groups: "a, b"
//   - tag, #id, one or more .class
//   - [attr], [attr=val], [attr*=val], [attr^=val]
//   - descendant combinator (whitespace)

type attrMatch struct {
	key string
	op  string // "", "=", "*=", "^="
	val string
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

// complexSel is a chain of compounds joined by descendant combinators.
type complexSel []compound

func parseGroup(group string) ([]complexSel, error) {
	var out []complexSel
	for _, part := range splitTopLevel(group, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var chain complexSel
		for _, tok := range splitTopLevel(part, ' ') {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			c, err := parseCompound(tok)
			if err != nil {
				return nil, err
			}
			chain = append(chain, c)
		}
		if len(chain) > 0 {
			out = append(out, chain)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("htmldoc: empty selector %q", group)
	}
	return out, nil
}

// splitTopLevel splits s on sep, ignoring separators inside [...] or quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseCompound(tok string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		j := i
		for j < len(tok) && tok[j] != '.' && tok[j] != '#' && tok[j] != '[' {
			j++
		}
		name := tok[i:j]
		i = j
		return name
	}

	c.tag = strings.ToLower(readName())
	if c.tag == "*" {
		c.tag = ""
	}
	if !validName(c.tag, true) {
		return c, fmt.Errorf("htmldoc: unsupported selector %q", tok)
	}
	for i < len(tok) {
		switch tok[i] {
		case '.':
			i++
			name := readName()
			if !validName(name, false) {
				return c, fmt.Errorf("htmldoc: bad class in %q", tok)
			}
			c.classes = append(c.classes, name)
		case '#':
			i++
			c.id = readName()
			if !validName(c.id, false) {
				return c, fmt.Errorf("htmldoc: bad id in %q", tok)
			}
		case '[':
			end := strings.IndexByte(tok[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("htmldoc: unterminated attribute selector in %q", tok)
			}
			c.attrs = append(c.attrs, parseAttr(tok[i+1:i+end]))
			i += end + 1
		default:
			return c, fmt.Errorf("htmldoc: unsupported selector %q", tok)
		}
	}
	return c, nil
}

func validName(name string, allowEmpty bool) bool {
	if name == "" {
		return allowEmpty
	}
	for _, r := range name {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func parseAttr(s string) attrMatch {
	for _, op := range []string{"*=", "^=", "="} {
		if idx := strings.Index(s, op); idx >= 0 {
			return attrMatch{
				key: strings.TrimSpace(s[:idx]),
				op:  op,
				val: strings.Trim(strings.TrimSpace(s[idx+len(op):]), `"'`),
			}
		}
	}
	return attrMatch{key: strings.TrimSpace(s)}
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			if !containsString(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		val, ok := lookupAttr(n, a.key)
		if !ok {
			return false
		}
		switch a.op {
		case "=":
			if val != a.val {
				return false
			}
		case "*=":
			if a.val == "" || !strings.Contains(val, a.val) {
				return false
			}
		case "^=":
			if a.val == "" || !strings.HasPrefix(val, a.val) {
				return false
			}
		}
	}
	return true
}

// matches checks the chain right to left against n and its ancestors.
func (s complexSel) matches(n *html.Node) bool {
	last := len(s) - 1
	if !s[last].matches(n) {
		return false
	}
	i := last - 1
	for p := n.Parent; i >= 0 && p != nil; p = p.Parent {
		if s[i].matches(p) {
			i--
		}
	}
	return i < 0
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
