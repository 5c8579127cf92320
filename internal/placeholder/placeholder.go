// Package placeholder swaps literal substrings for opaque markers so they
// survive a lossy text transform, and puts them back afterwards.
//
// Markers are lowercase alphanumerics with a per-queue random nonce, which the
// HTML parser, the inliner and the minifier all leave untouched. Substitutions
// are drained first in, first out: the n-th marker in the output receives the
// n-th protected span.
package placeholder

import (
	stdErrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrMismatch is returned by Restore when the number of markers in the text
// differs from the number of queued spans.
var ErrMismatch = stdErrors.New("placeholder count mismatch")

// Queue holds protected spans in extraction order.
type Queue struct {
	marker string
	items  []string
}

// New returns an empty queue whose marker embeds kind and a fresh nonce.
func New(kind string) *Queue {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Queue{marker: "ebph" + strings.ToLower(kind) + nonce + "x"}
}

// Marker is the sentinel substituted for each protected span.
func (q *Queue) Marker() string { return q.marker }

// Len reports the number of spans still queued.
func (q *Queue) Len() int { return len(q.items) }

// Protect replaces every match of re in s with the marker and queues the
// matched text in document order.
func (q *Queue) Protect(s string, re *regexp.Regexp) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		q.items = append(q.items, match)
		return q.marker
	})
}

// Restore replaces each marker in s, in order, with the next queued span and
// empties the queue.
func (q *Queue) Restore(s string) (string, error) {
	if n := strings.Count(s, q.marker); n != len(q.items) {
		return s, fmt.Errorf("%w: %d markers, %d queued", ErrMismatch, n, len(q.items))
	}
	return q.RestoreWith(s, func(_ int, original string) string { return original }), nil
}

// RestoreWith replaces the i-th marker in s with fn(i, span) where span is the
// i-th queued span, or "" when the queue ran short. The queue is emptied.
func (q *Queue) RestoreWith(s string, fn func(i int, original string) string) string {
	parts := strings.Split(s, q.marker)
	var b strings.Builder
	b.Grow(len(s))
	for i, part := range parts {
		if i > 0 {
			var original string
			if i-1 < len(q.items) {
				original = q.items[i-1]
			}
			b.WriteString(fn(i-1, original))
		}
		b.WriteString(part)
	}
	q.items = nil
	return b.String()
}
