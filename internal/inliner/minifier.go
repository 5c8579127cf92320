package inliner

import (
	"bytes"
	"io"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
)

// Minifier compacts an HTML document.
type Minifier interface {
	Minify(doc string) (string, error)
}

// HTMLMinifier collapses whitespace and minifies inline CSS. Comments, document
// tags, end tags, quotes and default attribute values are kept so that
// template markup and client-specific hacks survive.
type HTMLMinifier struct {
	m *minify.M
}

// NewHTMLMinifier returns the default Minifier.
func NewHTMLMinifier() *HTMLMinifier {
	m := minify.New()
	m.AddFunc("text/css", minifyCSS)
	m.Add("text/html", &html.Minifier{
		KeepComments:        true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
		KeepDefaultAttrVals: true,
	})
	return &HTMLMinifier{m: m}
}

func (h *HTMLMinifier) Minify(doc string) (string, error) {
	return h.m.String("text/html", doc)
}

// minifyCSS minifies style attributes one declaration at a time so fragments
// that are not declarations pass through verbatim. Style sheets go straight
// to the CSS minifier.
func minifyCSS(m *minify.M, w io.Writer, r io.Reader, params map[string]string) error {
	if params["inline"] != "1" {
		return css.Minify(m, w, r, params)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	segments := splitDeclarations(string(src))
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if !declarationStart.MatchString(seg) {
			out = append(out, seg)
			continue
		}
		var buf bytes.Buffer
		if err := css.Minify(m, &buf, strings.NewReader(seg), params); err != nil {
			return err
		}
		if buf.Len() > 0 {
			out = append(out, buf.String())
		}
	}
	_, err = io.WriteString(w, strings.Join(out, ";"))
	return err
}
