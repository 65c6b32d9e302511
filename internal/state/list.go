package state

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIndexOutOfRange is returned by positional ListCell operations.
var ErrIndexOutOfRange = errors.New("index out of range")

// ListCell is an observable ordered list.
//
// Every call that changes the logical sequence notifies the observer exactly
// once, no matter how many elements it touches. Calls that leave the
// sequence unchanged notify nobody. A nil list and an empty list are equal.
// Elements are compared like Cell values.
type ListCell[T comparable] struct {
	items    []T
	onChange func()
}

// NewListCell creates a list cell holding a copy of items.
func NewListCell[T comparable](items ...T) *ListCell[T] {
	return &ListCell[T]{items: slices.Clone(items)}
}

// Items returns a copy of the current elements.
func (l *ListCell[T]) Items() []T {
	return slices.Clone(l.items)
}

// Len returns the number of elements.
func (l *ListCell[T]) Len() int {
	return len(l.items)
}

// At returns the element at index i.
func (l *ListCell[T]) At(i int) (T, error) {
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, fmt.Errorf("at %d (len %d): %w", i, len(l.items), ErrIndexOutOfRange)
	}
	return l.items[i], nil
}

// Set replaces the whole list. Element-wise equal content is a no-op.
func (l *ListCell[T]) Set(items []T) {
	if slices.EqualFunc(l.items, items, equal[T]) {
		return
	}
	l.items = slices.Clone(items)
	l.notify()
}

// Append adds items at the end.
func (l *ListCell[T]) Append(items ...T) {
	if len(items) == 0 {
		return
	}
	l.items = append(l.items, items...)
	l.notify()
}

// Insert adds items before index i. i == Len() appends.
func (l *ListCell[T]) Insert(i int, items ...T) error {
	if i < 0 || i > len(l.items) {
		return fmt.Errorf("insert at %d (len %d): %w", i, len(l.items), ErrIndexOutOfRange)
	}
	if len(items) == 0 {
		return nil
	}
	l.items = slices.Insert(l.items, i, items...)
	l.notify()
	return nil
}

// RemoveAt removes the element at index i.
func (l *ListCell[T]) RemoveAt(i int) error {
	return l.RemoveRange(i, 1)
}

// Remove removes the first element equal to v and reports whether one was found.
func (l *ListCell[T]) Remove(v T) bool {
	i := slices.IndexFunc(l.items, func(have T) bool { return equal(have, v) })
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	l.notify()
	return true
}

// RemoveRange removes n elements starting at index i.
func (l *ListCell[T]) RemoveRange(i, n int) error {
	if i < 0 || n < 0 || i+n > len(l.items) {
		return fmt.Errorf("remove range [%d:%d] (len %d): %w", i, i+n, len(l.items), ErrIndexOutOfRange)
	}
	if n == 0 {
		return nil
	}
	l.items = slices.Delete(l.items, i, i+n)
	l.notify()
	return nil
}

// Clear removes every element.
func (l *ListCell[T]) Clear() {
	if len(l.items) == 0 {
		return
	}
	l.items = nil
	l.notify()
}

// Bind implements Observable.
func (l *ListCell[T]) Bind(fn func()) {
	l.onChange = fn
}

// Unbind implements Observable.
func (l *ListCell[T]) Unbind() {
	l.onChange = nil
}

func (l *ListCell[T]) notify() {
	if l.onChange != nil {
		l.onChange()
	}
}
