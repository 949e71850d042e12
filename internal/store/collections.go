package store

import "slices"

// Keyed is satisfied by every entity type.
type Keyed interface {
	Key() string
}

// IndexOf returns the position of id in items, or -1.
func IndexOf[T Keyed](items []T, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(items, func(v T) bool { return v.Key() == id })
}

// Prepend inserts v at the front, for most-recent-first collections.
func Prepend[T any](items []T, v T) []T {
	return append([]T{v}, items...)
}

// Remove deletes the element with the given id and reports whether it existed.
func Remove[T Keyed](items []T, id string) ([]T, bool) {
	i := IndexOf(items, id)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}

// Modify applies fn to the element with the given id in place.
func Modify[T Keyed](items []T, id string, fn func(*T)) bool {
	i := IndexOf(items, id)
	if i < 0 {
		return false
	}
	fn(&items[i])
	return true
}
