package capture

import (
	"regexp"

	"golang.org/x/net/html"
)

// RedactionMarker replaces every substring matched by a redaction
// pattern. The fixed marker keeps redacted captures recognizable.
const RedactionMarker = "[redacted]"

// textChange remembers one text node's pre-redaction content.
type textChange struct {
	node     *html.Node
	previous string
}

// CompileRedactPatterns compiles the configured pattern strings.
// Patterns that fail to compile as regular expressions are treated as
// literal substrings rather than dropped, so a typo in a pattern can
// only over-redact, never leak.
func CompileRedactPatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			re = regexp.MustCompile(regexp.QuoteMeta(p))
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// redactText replaces pattern matches in every text node under the
// document body with the redaction marker. The returned list reverses
// the mutation via restoreText; like masking it must be restored after
// sampling regardless of outcome.
func redactText(doc *html.Node, patterns []*regexp.Regexp) []textChange {
	if len(patterns) == 0 || doc == nil {
		return nil
	}

	body := findBody(doc)
	var changes []textChange
	for n := range body.Descendants() {
		if n.Type != html.TextNode {
			continue
		}
		replaced := n.Data
		for _, re := range patterns {
			replaced = re.ReplaceAllString(replaced, RedactionMarker)
		}
		if replaced != n.Data {
			changes = append(changes, textChange{node: n, previous: n.Data})
			n.Data = replaced
		}
	}
	return changes
}

// restoreText reverses redactText.
func restoreText(changes []textChange) {
	for _, c := range changes {
		c.node.Data = c.previous
	}
}
