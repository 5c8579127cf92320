package styles

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// ExtractMediaQueries returns the top-level @media rules of src, one per line,
// in source order. Everything else is dropped.
func ExtractMediaQueries(src string) (string, error) {
	sheet, err := parser.Parse(src)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, rule := range sheet.Rules {
		if IsMediaRule(rule) {
			parts = append(parts, rule.String())
		}
	}
	return strings.Join(parts, "\n"), nil
}

// IsMediaRule reports whether rule is an @media block.
func IsMediaRule(rule *css.Rule) bool {
	return rule.Kind == css.AtRule && strings.EqualFold(rule.Name, "@media")
}
