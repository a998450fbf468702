package capture

import (
	"strings"

	"golang.org/x/net/html"
)

// maskStyle is the inline style applied to masked elements. Blur
// rather than removal keeps the page layout intact in the capture.
const maskStyle = "filter: blur(12px)"

// maskedElement remembers one element's pre-mask style so masking can
// be reversed exactly.
type maskedElement struct {
	node     *html.Node
	hadStyle bool
	previous string
}

// applyMasking visually obscures every element under doc matching one
// of the configured selectors. The returned list restores the original
// visual state via restoreMasking; it must be restored after sampling
// regardless of outcome.
func applyMasking(doc *html.Node, selectors []string) []maskedElement {
	if len(selectors) == 0 || doc == nil {
		return nil
	}

	var masked []maskedElement
	walkElements(doc, func(n *html.Node) {
		for _, selector := range selectors {
			if !matchSelector(n, selector) {
				continue
			}
			previous, had := attrValue(n, "style")
			masked = append(masked, maskedElement{node: n, hadStyle: had, previous: previous})
			style := maskStyle
			if had && strings.TrimSpace(previous) != "" {
				style = strings.TrimRight(strings.TrimSpace(previous), ";") + "; " + maskStyle
			}
			setAttr(n, "style", style)
			break
		}
	})
	return masked
}

// restoreMasking reverses applyMasking in any order.
func restoreMasking(masked []maskedElement) {
	for _, m := range masked {
		if m.hadStyle {
			setAttr(m.node, "style", m.previous)
		} else {
			removeAttr(m.node, "style")
		}
	}
}

// matchSelector reports whether the element matches a simple selector:
// "#id", ".class", "[attr]", "[attr=value]", or a tag name. Compound
// selectors are not supported; the privacy config lists one feature
// per selector.
func matchSelector(n *html.Node, selector string) bool {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return false
	}

	switch selector[0] {
	case '#':
		id, _ := attrValue(n, "id")
		return id == selector[1:]
	case '.':
		classes, _ := attrValue(n, "class")
		for _, c := range strings.Fields(classes) {
			if c == selector[1:] {
				return true
			}
		}
		return false
	case '[':
		body := strings.TrimSuffix(selector[1:], "]")
		name, want, hasValue := strings.Cut(body, "=")
		want = strings.Trim(want, `"'`)
		got, ok := attrValue(n, strings.TrimSpace(name))
		if !ok {
			return false
		}
		return !hasValue || got == want
	default:
		return strings.EqualFold(n.Data, selector)
	}
}

// walkElements calls fn for every element node under root.
func walkElements(root *html.Node, fn func(*html.Node)) {
	for n := range root.Descendants() {
		if n.Type == html.ElementNode {
			fn(n)
		}
	}
}

// attrValue returns the value of the named attribute and whether it
// is present.
func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or replaces the named attribute.
func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// removeAttr deletes the named attribute if present.
func removeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// findBody returns the body element under doc, or doc itself when the
// tree has no body (fragments in tests).
func findBody(doc *html.Node) *html.Node {
	for n := range doc.Descendants() {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
	}
	return doc
}
