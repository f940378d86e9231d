// Package content prepares previously-collected page markup for model
// prompts. Accessibility criteria are judged from the markup itself (alt
// attributes, labels, aria-* wiring), so the markup is kept; only nodes the
// model cannot use (scripts, styles, comments) are stripped.
package content

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Page is one sanitized stored page.
type Page struct {
	Title  string
	Markup string
}

// Load reads a stored page file with charset-aware decoding and sanitizes it.
// maxChars caps the markup length; 0 keeps everything.
func Load(path string, maxChars int) (Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return Page{}, err
	}
	defer f.Close()
	r, err := charset.NewReader(f, "")
	if err != nil {
		return Page{}, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return Page{}, err
	}
	p := Sanitize(buf.Bytes())
	p.Markup = truncate(p.Markup, maxChars)
	return p, nil
}

// Sanitize parses markup, drops script/style/noscript/iframe/template nodes
// and comments, and re-renders what remains. Unparsable input comes back as
// an empty page rather than an error.
func Sanitize(input []byte) Page {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return Page{}
	}
	prune(node)
	title := strings.TrimSpace(findTitle(node))
	var b bytes.Buffer
	if err := html.Render(&b, node); err != nil {
		return Page{Title: title}
	}
	return Page{Title: title, Markup: b.String()}
}

var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"template": true,
}

func prune(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && droppedTags[strings.ToLower(c.Data)]:
			n.RemoveChild(c)
		default:
			prune(c)
		}
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "title") && n.FirstChild != nil {
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// truncate caps s at max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
