package state

// Observable is implemented by every cell type.
//
// The runtime consumes cells only through this interface: it binds a
// callback on contextualize and unbinds it on decontextualize.
type Observable interface {
	// Bind registers fn as the change callback, replacing any previous one.
	Bind(fn func())

	// Unbind clears the change callback. Later mutations notify nobody.
	Unbind()
}

// Cell is an observable single value.
//
// The zero value is ready to use and holds the zero value of T.
//
// Values are compared with ==, except that NaN equals NaN, so setting NaN
// over NaN does nothing. As with ==, a Cell[any] (or any interface T)
// panics in Set if both the old and the new value hold the same
// non-comparable dynamic type, such as a slice or a map.
type Cell[T comparable] struct {
	value    T
	onChange func()
}

// NewCell creates a cell holding v.
func NewCell[T comparable](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	return c.value
}

// Set replaces the value and notifies the observer once.
// Setting a value equal to the current one does nothing.
func (c *Cell[T]) Set(v T) {
	if equal(c.value, v) {
		return
	}
	c.value = v
	c.notify()
}

// Bind implements Observable.
func (c *Cell[T]) Bind(fn func()) {
	c.onChange = fn
}

// Unbind implements Observable.
func (c *Cell[T]) Unbind() {
	c.onChange = nil
}

func (c *Cell[T]) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// equal is == with NaN equal to itself. x != x holds only for NaN
// (including NaN inside complex numbers or interfaces).
func equal[T comparable](a, b T) bool {
	return a == b || (a != a && b != b)
}
