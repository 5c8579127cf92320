// Package htmldoc parses template markup into an html.Node tree without the
// HTML5 tree construction rules.
//
// Email layouts are Blade templates: directives sit between table rows, views
// are often fragments and head/body may be missing. html.Parse would move such
// text out of tables and synthesize html/head/body. Parse instead nests
// elements exactly as written, closing only the few elements whose end tag is
// commonly implied, so Render(Parse(s)) keeps the document shape of s.
package htmldoc

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// impliedEnd lists, per opening tag, the open elements it closes implicitly.
var impliedEnd = map[string]map[string]bool{
	"td":     {"td": true, "th": true},
	"th":     {"td": true, "th": true},
	"tr":     {"tr": true, "td": true, "th": true},
	"li":     {"li": true},
	"option": {"option": true},
	"p":      {"p": true},
}

// Parse builds a tree rooted at a DocumentNode from s.
func Parse(s string) (*html.Node, error) {
	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	current := func() *html.Node { return stack[len(stack)-1] }

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return root, nil
		case html.TextToken:
			current().AppendChild(&html.Node{Type: html.TextNode, Data: string(z.Text())})
		case html.CommentToken:
			current().AppendChild(&html.Node{Type: html.CommentNode, Data: string(z.Text())})
		case html.DoctypeToken:
			current().AppendChild(&html.Node{Type: html.DoctypeNode, Data: string(z.Text())})
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if closes, ok := impliedEnd[tok.Data]; ok {
				for len(stack) > 1 && closes[current().Data] {
					stack = stack[:len(stack)-1]
				}
			}
			n := &html.Node{
				Type:     html.ElementNode,
				Data:     tok.Data,
				DataAtom: tok.DataAtom,
				Attr:     tok.Attr,
			}
			current().AppendChild(n)
			if tt == html.StartTagToken && !voidElements[tok.Data] {
				stack = append(stack, n)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Data == string(name) {
					stack = stack[:i]
					break
				}
			}
		}
	}
}

// Render serializes the children of root.
func Render(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Element creates a detached element node.
func Element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

// Attr returns the value of key on n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether n carries key.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets key on n, replacing an existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Walk calls fn for n and its descendants in document order. The next sibling
// is read before fn runs, so fn may detach or replace the node it is given.
func Walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// Elements returns the element nodes below n with tag name tag.
func Elements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	Walk(n, func(c *html.Node) {
		if c != n && c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	})
	return out
}

// TextContent concatenates the text below n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// MoveChildren moves every child of src to the end of dst.
func MoveChildren(dst, src *html.Node) {
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		dst.AppendChild(c)
		c = next
	}
}
