package inliner

import (
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/emailbuilder/internal/htmldoc"
	"git.home.luguber.info/inful/emailbuilder/internal/styles"
)

// Options controls a CSSInliner pass.
type Options struct {
	// ApplyStyleTags inlines the rules found in the document's <style> elements.
	ApplyStyleTags bool
	// RemoveStyleTags deletes <style> elements after inlining.
	RemoveStyleTags bool
	// PreserveMediaQueries keeps @media rules of removed <style> elements in place.
	PreserveMediaQueries bool
	// RemoveLinkTags deletes <link rel="stylesheet"> elements.
	RemoveLinkTags bool
	// ExtraCSS is inlined after the document's own rules.
	ExtraCSS string
}

// CSSInliner applies CSS rules as inline style attributes.
type CSSInliner interface {
	Inline(doc string, opts Options) (string, error)
}

// DefaultCSSInliner matches rules with cascadia and resolves conflicts by
// importance, specificity and source order. Declarations already present in a
// style attribute win over sheet rules unless the sheet rule is !important.
type DefaultCSSInliner struct{}

type candidate struct {
	decl      *css.Declaration
	important bool
	inline    bool
	spec      cascadia.Specificity
	order     int
}

// outranks reports whether a takes precedence over b.
func (a candidate) outranks(b candidate) bool {
	if a.important != b.important {
		return a.important
	}
	if a.inline != b.inline {
		return a.inline
	}
	if a.spec != b.spec {
		return b.spec.Less(a.spec)
	}
	return a.order > b.order
}

func (DefaultCSSInliner) Inline(doc string, opts Options) (string, error) {
	root, err := htmldoc.Parse(doc)
	if err != nil {
		return "", err
	}

	var sources []string
	for _, el := range htmldoc.Elements(root, "style") {
		if opts.ApplyStyleTags {
			sources = append(sources, htmldoc.TextContent(el))
		}
		if !opts.RemoveStyleTags {
			continue
		}
		if opts.PreserveMediaQueries {
			if mq, err := styles.ExtractMediaQueries(htmldoc.TextContent(el)); err == nil && mq != "" {
				for c := el.FirstChild; c != nil; c = el.FirstChild {
					el.RemoveChild(c)
				}
				el.AppendChild(&html.Node{Type: html.TextNode, Data: mq})
				continue
			}
		}
		htmldoc.Detach(el)
	}
	if opts.RemoveLinkTags {
		for _, el := range htmldoc.Elements(root, "link") {
			if strings.EqualFold(htmldoc.Attr(el, "rel"), "stylesheet") {
				htmldoc.Detach(el)
			}
		}
	}
	if opts.ExtraCSS != "" {
		sources = append(sources, opts.ExtraCSS)
	}

	matches := make(map[*html.Node][]candidate)
	order := 0
	for _, src := range sources {
		sheet, err := parser.Parse(src)
		if err != nil {
			return "", err
		}
		for _, rule := range sheet.Rules {
			// Only top-level style rules can be expressed inline.
			if rule.Kind != css.QualifiedRule {
				continue
			}
			for _, selector := range rule.Selectors {
				sel, err := cascadia.Parse(selector)
				if err != nil || sel.PseudoElement() != "" {
					continue
				}
				spec := sel.Specificity()
				for _, n := range cascadia.QueryAll(root, sel) {
					for _, d := range rule.Declarations {
						order++
						matches[n] = append(matches[n], candidate{decl: d, important: d.Important, spec: spec, order: order})
					}
				}
			}
		}
	}

	for n, cands := range matches {
		var raw []string
		if existing := htmldoc.Attr(n, "style"); existing != "" {
			decls, rest := splitStyle(existing)
			raw = rest
			if len(decls) > 0 {
				parsed, err := parser.ParseDeclarations(strings.Join(decls, ";"))
				if err != nil {
					// Keep the attribute text as written and only add sheet rules.
					parsed, raw = nil, []string{existing}
				}
				for _, d := range parsed {
					order++
					cands = append(cands, candidate{decl: d, important: d.Important, inline: true, order: order})
				}
			}
		}
		style := resolve(cands)
		if len(raw) > 0 {
			style += " " + strings.Join(raw, "; ")
		}
		htmldoc.SetAttr(n, "style", style)
	}

	return htmldoc.Render(root)
}

var declarationStart = regexp.MustCompile(`^\s*-*[A-Za-z_][A-Za-z0-9_-]*\s*:`)

// splitStyle splits a style attribute into declarations and fragments that are
// not declarations, such as template expression markers. Semicolons inside
// parentheses or quotes do not split.
func splitStyle(s string) (decls, raw []string) {
	for _, seg := range splitDeclarations(s) {
		if declarationStart.MatchString(seg) {
			decls = append(decls, seg)
		} else {
			raw = append(raw, seg)
		}
	}
	return decls, raw
}

func splitDeclarations(s string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		if seg := strings.TrimSpace(s[start:end]); seg != "" {
			out = append(out, seg)
		}
	}
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case r == ';' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(s))
	return out
}

// resolve applies cands in ascending precedence and serializes the winners.
// A property keeps the position where it was first set.
func resolve(cands []candidate) string {
	sort.SliceStable(cands, func(i, j int) bool { return cands[j].outranks(cands[i]) })
	var props []string
	values := make(map[string]string)
	for _, c := range cands {
		prop := strings.ToLower(c.decl.Property)
		if _, ok := values[prop]; !ok {
			props = append(props, prop)
		}
		values[prop] = c.decl.Value
	}
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p+": "+values[p]+";")
	}
	return strings.Join(parts, " ")
}
