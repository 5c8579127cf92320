package placeholder

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expr = regexp.MustCompile(`(?s)(\{\{.+?\}\}|\{!!.+?!!\})`)

func TestProtectRestore_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		spans int
	}{
		{name: "none", input: "<p>plain</p>", spans: 0},
		{name: "one", input: "<p>{{ $name }}</p>", spans: 1},
		{name: "duplicates", input: "<a href=\"{{ $url }}\">{{ $url }}</a>{{ $url }}", spans: 3},
		{name: "mixed and multiline", input: "{!! $html !!}<b>{{ $a\n  ->b() }}</b>{{ $c }}", spans: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New("blade")
			protected := q.Protect(tt.input, expr)
			assert.Equal(t, tt.spans, q.Len())
			assert.Equal(t, tt.spans, strings.Count(protected, q.Marker()))
			assert.NotContains(t, protected, "{{")

			restored, err := q.Restore(protected)
			require.NoError(t, err)
			assert.Equal(t, tt.input, restored)
			assert.Equal(t, 0, q.Len())
		})
	}
}

func TestRestore_PreservesOrder(t *testing.T) {
	q := New("blade")
	protected := q.Protect("{{ $first }} and {{ $second }}", expr)

	// Simulate a transform that rewrites the surrounding text.
	transformed := strings.ToUpper(strings.ReplaceAll(protected, " and ", "|"))
	transformed = strings.ReplaceAll(transformed, strings.ToUpper(q.Marker()), q.Marker())

	restored, err := q.Restore(transformed)
	require.NoError(t, err)
	assert.Equal(t, "{{ $first }}|{{ $second }}", restored)
}

func TestRestore_Mismatch(t *testing.T) {
	q := New("blade")
	protected := q.Protect("{{ $a }}{{ $b }}", expr)

	_, err := q.Restore(strings.Replace(protected, q.Marker(), "", 1))
	require.ErrorIs(t, err, ErrMismatch)
}

func TestMarkersAreUniquePerQueue(t *testing.T) {
	a, b := New("blade"), New("blade")
	assert.NotEqual(t, a.Marker(), b.Marker())
	assert.Regexp(t, `^[a-z0-9]+$`, a.Marker())
}
