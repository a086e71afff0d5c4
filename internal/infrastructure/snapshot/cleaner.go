// Package snapshot turns a live page's HTML into a small artifact that still
// shows the attributes the page objects select on.
package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var ErrNoBody = errors.New("snapshot: document has no body")

type Options struct {
	DropTags  []string
	DropAttrs []string
	// MaxBytes caps the rendered output; zero means no cap.
	MaxBytes int
}

// DefaultOptions keeps class, id, aria-* and data-* since XPath probes match
// on them, and drops everything that only adds noise to a failure report.
func DefaultOptions() Options {
	return Options{
		DropTags:  []string{"script", "style", "noscript", "svg", "iframe", "link", "meta"},
		DropAttrs: []string{"style", "srcset", "sizes", "loading", "decoding", "fetchpriority"},
		MaxBytes:  512 << 10,
	}
}

// Clean parses rawHTML and renders only the cleaned <body>.
func Clean(rawHTML string, opts Options) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	body := findBody(doc)
	if body == nil {
		return "", ErrNoBody
	}

	prune(body, opts)

	var sb strings.Builder
	if err := html.Render(&sb, body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	out := sb.String()
	if opts.MaxBytes > 0 && len(out) > opts.MaxBytes {
		out = out[:opts.MaxBytes] + "\n<!-- truncated -->"
	}
	return out, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func prune(n *html.Node, opts Options) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && contains(opts.DropTags, c.Data):
			n.RemoveChild(c)
		case c.Type == html.ElementNode:
			c.Attr = keepAttrs(c.Attr, opts.DropAttrs)
			prune(c, opts)
		}
		c = next
	}
}

func keepAttrs(attrs []html.Attribute, drop []string) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		// inline handlers: onclick, onload, ...
		if contains(drop, a.Key) || strings.HasPrefix(a.Key, "on") {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
