package styles

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

var (
	sourceMapComment = regexp.MustCompile(`/\*#\s*sourceMappingURL=[^*]*\*/`)
	pseudoSelector   = regexp.MustCompile(`::?[a-zA-Z-]+(\([^)]*\))?`)
)

// Purge drops the style rules of src whose selectors match no element in docs.
//
// Selectors listed in safelist are always kept; an entry wrapped in slashes is
// treated as a regular expression. Pseudo-classes and pseudo-elements are
// ignored for matching. @media blocks are purged recursively and dropped when
// empty; other at-rules are kept as they are. A source map comment in src is
// carried over to the output.
func Purge(src string, docs []*html.Node, safelist []string) (string, error) {
	sheet, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	p := &purger{docs: docs, used: make(map[string]bool)}
	for _, s := range safelist {
		s = strings.TrimSpace(s)
		if len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
			if re, err := regexp.Compile(s[1 : len(s)-1]); err == nil {
				p.patterns = append(p.patterns, re)
				continue
			}
		}
		p.used[s] = true
	}

	sheet.Rules = p.filter(sheet.Rules)
	out := sheet.String()
	if m := sourceMapComment.FindString(src); m != "" {
		out += "\n" + m
	}
	return out, nil
}

// ParseDocuments parses each HTML source for use with Purge. Documents that fail
// to parse are skipped.
func ParseDocuments(sources []string) []*html.Node {
	docs := make([]*html.Node, 0, len(sources))
	for _, s := range sources {
		doc, err := html.Parse(strings.NewReader(s))
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

type purger struct {
	docs     []*html.Node
	patterns []*regexp.Regexp
	used     map[string]bool // selector -> matched, memoized
}

func (p *purger) filter(rules []*css.Rule) []*css.Rule {
	kept := make([]*css.Rule, 0, len(rules))
	for _, rule := range rules {
		switch {
		case rule.Kind == css.QualifiedRule:
			selectors := make([]string, 0, len(rule.Selectors))
			for _, sel := range rule.Selectors {
				if p.isUsed(sel) {
					selectors = append(selectors, sel)
				}
			}
			if len(selectors) == 0 {
				continue
			}
			rule.Selectors = selectors
		case IsMediaRule(rule):
			rule.Rules = p.filter(rule.Rules)
			if len(rule.Rules) == 0 {
				continue
			}
		}
		kept = append(kept, rule)
	}
	return kept
}

func (p *purger) isUsed(selector string) bool {
	selector = strings.TrimSpace(selector)
	if used, ok := p.used[selector]; ok {
		return used
	}
	used := p.match(selector)
	p.used[selector] = used
	return used
}

func (p *purger) match(selector string) bool {
	for _, re := range p.patterns {
		if re.MatchString(selector) {
			return true
		}
	}
	bare := strings.TrimSpace(pseudoSelector.ReplaceAllString(selector, ""))
	if bare == "" || strings.HasSuffix(bare, ">") || strings.HasSuffix(bare, "+") || strings.HasSuffix(bare, "~") {
		// Nothing left to match against, keep the rule.
		return true
	}
	sel, err := cascadia.Parse(bare)
	if err != nil {
		return true
	}
	for _, doc := range p.docs {
		if cascadia.Query(doc, sel) != nil {
			return true
		}
	}
	return false
}
