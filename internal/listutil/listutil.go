// Package listutil holds the id-keyed slice helpers shared by services and
// stores. Every helper returns a fresh slice and never mutates its input.
package listutil

// Keyed is any entity carrying a stable int64 id.
type Keyed interface {
	GetID() int64
}

// ReplaceByID returns items with every element whose id matches item.GetID()
// replaced by item. When nothing matches the result equals items.
func ReplaceByID[T Keyed](items []T, item T) []T {
	out := make([]T, len(items))
	for i, existing := range items {
		if existing.GetID() == item.GetID() {
			out[i] = item
			continue
		}
		out[i] = existing
	}
	return out
}

// RemoveByID returns items without the elements whose id equals id.
func RemoveByID[T Keyed](items []T, id int64) []T {
	out := make([]T, 0, len(items))
	for _, existing := range items {
		if existing.GetID() != id {
			out = append(out, existing)
		}
	}
	return out
}

// FindByID returns the first element with the given id.
func FindByID[T Keyed](items []T, id int64) (T, bool) {
	for _, existing := range items {
		if existing.GetID() == id {
			return existing, true
		}
	}
	var zero T
	return zero, false
}

// Contains reports whether an element with id is present.
func Contains[T Keyed](items []T, id int64) bool {
	_, ok := FindByID(items, id)
	return ok
}

// Filter keeps the elements for which keep returns true, in order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Clone deep-copies items using clone for each element. A nil clone makes a
// shallow element copy, which is enough for value types without slices.
func Clone[T any](items []T, clone func(T) T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		if clone != nil {
			out[i] = clone(item)
			continue
		}
		out[i] = item
	}
	return out
}

// MaxID returns the largest id in items, or 0 when empty.
func MaxID[T Keyed](items []T) int64 {
	var top int64
	for _, item := range items {
		if item.GetID() > top {
			top = item.GetID()
		}
	}
	return top
}
