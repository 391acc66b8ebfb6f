// Package enums holds the closed string sets stored in the database and carried on the wire.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// closedSet is the list of legal values for one string enum. normalize runs on raw
// input before matching; nil means exact match.
type closedSet[T ~string] struct {
	kind      string
	normalize func(string) string
	values    []T
}

func exact[T ~string](kind string, values ...T) closedSet[T] {
	return closedSet[T]{kind: kind, values: values}
}

func upper[T ~string](kind string, values ...T) closedSet[T] {
	return closedSet[T]{kind: kind, values: values, normalize: func(s string) string {
		return strings.ToUpper(strings.TrimSpace(s))
	}}
}

func lower[T ~string](kind string, values ...T) closedSet[T] {
	return closedSet[T]{kind: kind, values: values, normalize: func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}}
}

func (c closedSet[T]) has(v T) bool {
	return slices.Contains(c.values, v)
}

func (c closedSet[T]) parse(raw string) (T, error) {
	candidate := raw
	if c.normalize != nil {
		candidate = c.normalize(raw)
	}
	if c.has(T(candidate)) {
		return T(candidate), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", c.kind, raw)
}
