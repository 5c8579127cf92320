// Package inliner makes compiled email views resilient to clients that strip
// <style> and <link> tags.
//
// Process moves the compiled stylesheet into inline style attributes, minifies
// the document and re-embeds a single <style> element holding the view's own
// screen styles followed by the stylesheet's media queries. Template
// expressions ({{ }} and {!! !!}) are swapped for markers around the lossy
// passes and restored verbatim in their original order.
package inliner

import (
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/emailbuilder/internal/placeholder"
	"git.home.luguber.info/inful/emailbuilder/internal/styles"
)

// ErrPlaceholderMismatch is returned when the lossy passes dropped or
// duplicated a template expression marker.
var ErrPlaceholderMismatch = placeholder.ErrMismatch

// StyleComment marks where the combined <style> element is re-inserted.
const StyleComment = "<!-- <style> -->"

var (
	screenStyle     = regexp.MustCompile(`(?s)<style type="text/css" media="screen">(.+?)</style>`)
	stylesheetLink  = regexp.MustCompile(`<link rel="stylesheet" type="text/css" href="[^"]+?">`)
	expressionSpans = regexp.MustCompile(`(?s)(\{\{.+?\}\}|\{!!.+?!!\})`)
	headClose       = regexp.MustCompile(`(?i)</head\s*>`)
)

// Inliner processes rendered views against one compiled stylesheet.
type Inliner struct {
	css      string
	mq       string
	inliner  CSSInliner
	minifier Minifier
}

// Option configures an Inliner.
type Option func(*Inliner)

// WithCSSInliner replaces the default CSS inliner.
func WithCSSInliner(c CSSInliner) Option { return func(in *Inliner) { in.inliner = c } }

// WithMinifier replaces the default HTML minifier.
func WithMinifier(m Minifier) Option { return func(in *Inliner) { in.minifier = m } }

// New prepares an Inliner for css, extracting its media queries once.
func New(css string, opts ...Option) (*Inliner, error) {
	mq, err := styles.ExtractMediaQueries(css)
	if err != nil {
		return nil, fmt.Errorf("extract media queries: %w", err)
	}
	in := &Inliner{
		css:      css,
		mq:       mq,
		inliner:  DefaultCSSInliner{},
		minifier: NewHTMLMinifier(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// MediaQueries returns the media query CSS appended to every view.
func (in *Inliner) MediaQueries() string { return in.mq }

// Process runs the inline pipeline over one view.
func (in *Inliner) Process(doc string) (string, error) {
	var additional strings.Builder
	doc = screenStyle.ReplaceAllStringFunc(doc, func(match string) string {
		additional.WriteString("\n")
		additional.WriteString(screenStyle.FindStringSubmatch(match)[1])
		return ""
	})

	if loc := stylesheetLink.FindStringIndex(doc); loc != nil {
		doc = doc[:loc[0]] + doc[loc[1]:]
	}

	expressions := placeholder.New("blade")
	doc = expressions.Protect(doc, expressionSpans)

	// The style marker lives in a comment so it stays put inside <head>.
	styleMarker := "<!--" + placeholder.New("style").Marker() + "-->"
	doc = strings.Replace(doc, StyleComment, styleMarker, 1)

	doc, err := in.inliner.Inline(doc, Options{
		ApplyStyleTags:       false,
		RemoveStyleTags:      true,
		PreserveMediaQueries: true,
		RemoveLinkTags:       false,
		ExtraCSS:             in.css,
	})
	if err != nil {
		return "", fmt.Errorf("inline css: %w", err)
	}

	doc, err = in.minifier.Minify(doc)
	if err != nil {
		return "", fmt.Errorf("minify html: %w", err)
	}

	doc = insertStyle(doc, styleMarker, "<style>"+additional.String()+"\n"+in.mq+"</style>")

	return expressions.Restore(doc)
}

// insertStyle replaces marker with block. Without a marker the block goes
// before </head>, or to the front of the document when there is no head.
func insertStyle(doc, marker, block string) string {
	if strings.Contains(doc, marker) {
		return strings.Replace(doc, marker, block, 1)
	}
	if loc := headClose.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + block + doc[loc[0]:]
	}
	return block + doc
}
