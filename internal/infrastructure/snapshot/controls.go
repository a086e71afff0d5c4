package snapshot

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const controlSelector = "button, [role='button'], a[href], input:not([type='hidden']), textarea, select"

// Control is one interactive element found in a snapshot.
type Control struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	Label    string `json:"label,omitempty"`
	Selector string `json:"selector"`
}

// Controls lists the interactive elements of rawHTML in document order,
// at most max of them (zero means all). Elements sharing a selector and
// text are reported once.
func Controls(rawHTML string, max int) ([]Control, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Control
	seen := make(map[string]bool)
	doc.Find(controlSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(out) >= max {
			return false
		}
		c := Control{
			Kind:     kindOf(s),
			Text:     collapse(s.Text()),
			Label:    firstNonEmpty(s.AttrOr("aria-label", ""), s.AttrOr("title", ""), s.AttrOr("placeholder", "")),
			Selector: selectorOf(s),
		}
		key := c.Selector + "\x00" + c.Text
		if seen[key] {
			return true
		}
		seen[key] = true
		out = append(out, c)
		return true
	})
	return out, nil
}

func kindOf(s *goquery.Selection) string {
	switch tag := goquery.NodeName(s); tag {
	case "a":
		return "link"
	case "input", "textarea", "select":
		return "field"
	default:
		return "button"
	}
}

// selectorOf prefers an id, then the first class, then the bare tag.
func selectorOf(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if class := strings.Fields(s.AttrOr("class", "")); len(class) > 0 {
		return tag + "." + class[0]
	}
	return tag
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
