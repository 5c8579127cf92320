// Package foundation holds small generic helpers shared across packages.
package foundation

import (
	"fmt"
	"strings"
)

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalizer maps case- and whitespace-insensitive strings onto enum values.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

// NewNormalizer creates a normalizer from accepted spellings to values.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return &Normalizer[T]{values: normalized, defaultValue: defaultValue}
}

// Normalize returns the value for raw, or the default when raw is not recognized.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.values[normalizeKey(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// NormalizeWithError returns the value for raw or an error naming the bad input.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if value, ok := n.values[normalizeKey(raw)]; ok {
		return value, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value: %s", raw)
}
