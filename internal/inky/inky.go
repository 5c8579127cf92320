// Package inky converts Inky email markup (<container>, <row>, <columns>,
// <button>, ...) into the table layout expected by Foundation for Emails.
//
// Template expressions are protected around the transform, so Blade syntax in
// text and attribute values reaches the output verbatim. Markup inside <raw>
// is copied without conversion.
package inky

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/emailbuilder/internal/htmldoc"
	"git.home.luguber.info/inful/emailbuilder/internal/placeholder"
)

// DefaultColumnCount is the width of the Foundation grid.
const DefaultColumnCount = 12

var expressionSpans = regexp.MustCompile(`(?s)(\{\{.+?\}\}|\{!!.+?!!\})`)

// passthroughIgnored lists attributes consumed by components and not copied
// to the generated markup.
var passthroughIgnored = map[string]bool{
	"class": true, "href": true, "size": true, "size-sm": true, "size-lg": true,
	"large": true, "no-expander": true, "small": true, "target": true, "up": true,
}

// Inky transforms Inky markup.
type Inky struct {
	columnCount int
	components  map[string]component
}

// component builds the replacement for el. Children of el are moved into slot
// when slot is non-nil, and discarded otherwise.
type component func(el *html.Node) (nodes []*html.Node, slot *html.Node)

// Option configures an Inky.
type Option func(*Inky)

// WithColumnCount sets the grid width used for default column sizes.
func WithColumnCount(n int) Option {
	return func(k *Inky) {
		if n > 0 {
			k.columnCount = n
		}
	}
}

// New returns a transformer with the standard component set.
func New(opts ...Option) *Inky {
	k := &Inky{columnCount: DefaultColumnCount}
	for _, opt := range opts {
		opt(k)
	}
	k.components = map[string]component{
		"container":  k.container,
		"row":        k.row,
		"columns":    k.columns,
		"button":     k.button,
		"spacer":     k.spacer,
		"wrapper":    k.wrapper,
		"callout":    k.callout,
		"h-line":     k.hLine,
		"menu":       k.menu,
		"item":       k.item,
		"block-grid": k.blockGrid,
	}
	return k
}

// Transform converts one template.
func (k *Inky) Transform(src string) (string, error) {
	expressions := placeholder.New("blade")
	protected := expressions.Protect(src, expressionSpans)

	root, err := htmldoc.Parse(protected)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	k.walk(root)

	out, err := htmldoc.Render(root)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return expressions.Restore(out)
}

func (k *Inky) walk(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.ElementNode {
			c = next
			continue
		}
		switch {
		case c.Data == "raw":
			for gc := c.FirstChild; gc != nil; {
				n := gc.NextSibling
				c.RemoveChild(gc)
				parent.InsertBefore(gc, c)
				gc = n
			}
			parent.RemoveChild(c)
		case c.Data == "center":
			k.center(c)
			k.walk(c)
		case k.components[c.Data] != nil:
			nodes, slot := k.components[c.Data](c)
			for _, n := range nodes {
				parent.InsertBefore(n, c)
			}
			if slot != nil {
				htmldoc.MoveChildren(slot, c)
			}
			parent.RemoveChild(c)
			for _, n := range nodes {
				k.walk(n)
			}
		default:
			k.walk(c)
		}
		c = next
	}
}

// chain nests each node inside the previous one and returns the innermost.
func chain(nodes ...*html.Node) *html.Node {
	for i := 1; i < len(nodes); i++ {
		nodes[i-1].AppendChild(nodes[i])
	}
	return nodes[len(nodes)-1]
}

func el(tag string, attrs ...string) *html.Node {
	n := htmldoc.Element(tag)
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func nbsp() *html.Node { return &html.Node{Type: html.RawNode, Data: "&nbsp;"} }

// classes joins base with the class attribute of src.
func classes(src *html.Node, base ...string) string {
	if extra := strings.TrimSpace(htmldoc.Attr(src, "class")); extra != "" {
		base = append(base, extra)
	}
	return strings.Join(base, " ")
}

// passthrough copies the attributes of src that no component consumes.
func passthrough(dst, src *html.Node) {
	for _, a := range src.Attr {
		if !passthroughIgnored[a.Key] {
			dst.Attr = append(dst.Attr, a)
		}
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(htmldoc.Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	htmldoc.SetAttr(n, "class", strings.TrimSpace(htmldoc.Attr(n, "class")+" "+class))
}

func (k *Inky) container(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "align", "center", "class", classes(e, "container"))
	passthrough(table, e)
	return []*html.Node{table}, chain(table, el("tbody"), el("tr"), el("td"))
}

func (k *Inky) row(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", classes(e, "row"))
	passthrough(table, e)
	return []*html.Node{table}, chain(table, el("tbody"), el("tr"))
}

func (k *Inky) columns(e *html.Node) ([]*html.Node, *html.Node) {
	siblings := 0
	for s := e.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			siblings++
		}
	}
	small := htmldoc.Attr(e, "small")
	if small == "" {
		small = strconv.Itoa(k.columnCount)
	}
	large := htmldoc.Attr(e, "large")
	if large == "" {
		large = htmldoc.Attr(e, "small")
	}
	if large == "" {
		large = strconv.Itoa(k.columnCount / max(siblings, 1))
	}

	names := []string{"small-" + small, "large-" + large, "columns"}
	if !isColumn(prevElement(e)) {
		names = append(names, "first")
	}
	if !isColumn(nextElement(e)) {
		names = append(names, "last")
	}
	th := el("th", "class", classes(e, names...))
	passthrough(th, e)

	tr := chain(th, el("table"), el("tbody"), el("tr"))
	slot := el("th")
	tr.AppendChild(slot)

	noExpander := htmldoc.HasAttr(e, "no-expander") && htmldoc.Attr(e, "no-expander") != "false"
	if large == strconv.Itoa(k.columnCount) && !containsRow(e) && !noExpander {
		tr.AppendChild(el("th", "class", "expander"))
	}
	return []*html.Node{th}, slot
}

func (k *Inky) button(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", classes(e, "button"))
	tr := chain(table, el("tbody"), el("tr"))
	slot := chain(tr, el("td"), el("table"), el("tbody"), el("tr"), el("td"))

	expanded := hasClass(e, "expand") || hasClass(e, "expanded")
	if expanded {
		slot = chain(slot, el("center"))
	}
	if htmldoc.HasAttr(e, "href") {
		a := el("a")
		passthrough(a, e)
		a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: htmldoc.Attr(e, "href")})
		if target := htmldoc.Attr(e, "target"); target != "" {
			a.Attr = append(a.Attr, html.Attribute{Key: "target", Val: target})
		}
		slot = chain(slot, a)
	}
	if expanded {
		tr.AppendChild(el("td", "class", "expander"))
	}
	return []*html.Node{table}, slot
}

func (k *Inky) spacer(e *html.Node) ([]*html.Node, *html.Node) {
	build := func(size, extra string) *html.Node {
		cls := classes(e, "spacer")
		if extra != "" {
			cls += " " + extra
		}
		table := el("table", "class", cls)
		passthrough(table, e)
		td := chain(table, el("tbody"), el("tr"),
			el("td", "height", size+"px", "style", "font-size:"+size+"px;line-height:"+size+"px;"))
		td.AppendChild(nbsp())
		return table
	}

	sm, lg := htmldoc.Attr(e, "size-sm"), htmldoc.Attr(e, "size-lg")
	if sm == "" && lg == "" {
		size := htmldoc.Attr(e, "size")
		if size == "" {
			size = "16"
		}
		return []*html.Node{build(size, "")}, nil
	}
	var nodes []*html.Node
	if sm != "" {
		nodes = append(nodes, build(sm, "hide-for-large"))
	}
	if lg != "" {
		nodes = append(nodes, build(lg, "show-for-large"))
	}
	return nodes, nil
}

func (k *Inky) wrapper(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", classes(e, "wrapper"), "align", "center")
	passthrough(table, e)
	return []*html.Node{table}, chain(table, el("tbody"), el("tr"), el("td", "class", "wrapper-inner"))
}

func (k *Inky) callout(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", "callout")
	passthrough(table, e)
	tr := chain(table, el("tbody"), el("tr"))
	slot := el("th", "class", classes(e, "callout-inner"))
	tr.AppendChild(slot)
	tr.AppendChild(el("th", "class", "expander"))
	return []*html.Node{table}, slot
}

func (k *Inky) hLine(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", classes(e, "h-line"))
	passthrough(table, e)
	th := chain(table, el("tr"), el("th"))
	th.AppendChild(nbsp())
	return []*html.Node{table}, nil
}

func (k *Inky) menu(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", classes(e, "menu"))
	passthrough(table, e)
	return []*html.Node{table}, chain(table, el("tbody"), el("tr"), el("td"), el("table"), el("tbody"), el("tr"))
}

func (k *Inky) item(e *html.Node) ([]*html.Node, *html.Node) {
	th := el("th", "class", classes(e, "menu-item"))
	passthrough(th, e)
	a := el("a", "href", htmldoc.Attr(e, "href"))
	if target := htmldoc.Attr(e, "target"); target != "" {
		a.Attr = append(a.Attr, html.Attribute{Key: "target", Val: target})
	}
	th.AppendChild(a)
	return []*html.Node{th}, a
}

func (k *Inky) blockGrid(e *html.Node) ([]*html.Node, *html.Node) {
	table := el("table", "class", classes(e, "block-grid", "up-"+htmldoc.Attr(e, "up")))
	passthrough(table, e)
	return []*html.Node{table}, chain(table, el("tbody"), el("tr"))
}

// center aligns the direct children of e and floats nested menu items.
func (k *Inky) center(e *html.Node) {
	for c := e.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		htmldoc.SetAttr(c, "align", "center")
		addClass(c, "float-center")
	}
	htmldoc.Walk(e, func(n *html.Node) {
		if n != e && n.Type == html.ElementNode && (n.Data == "item" || hasClass(n, "menu-item")) {
			addClass(n, "float-center")
		}
	})
	htmldoc.SetAttr(e, "data-parsed", "")
}

func isColumn(n *html.Node) bool {
	return n != nil && (n.Data == "columns" || (n.Data == "th" && hasClass(n, "columns")))
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func containsRow(n *html.Node) bool {
	found := false
	htmldoc.Walk(n, func(c *html.Node) {
		if c != n && c.Type == html.ElementNode && (c.Data == "row" || hasClass(c, "row")) {
			found = true
		}
	})
	return found
}

// entityFixes undoes the escaping the renderer applies to operators and quotes
// in template syntax outside of protected expressions.
var entityFixes = strings.NewReplacer(
	"-&gt;", "->",
	"=&gt;", "=>",
	"&quot;", `"`,
	"&apos;", "'",
	"&#34;", `"`,
	"&#39;", "'",
)

// Unescape reverts the entity sequences produced for arrows and quotes.
func Unescape(s string) string { return entityFixes.Replace(s) }
