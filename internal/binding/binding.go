// Package binding models values owned by one component and edited by another.
//
// A Binding is a getter/setter pair. The owner keeps the value; whoever holds
// the binding reads and writes through it and never keeps a private copy.
package binding

// Binding is a two-way reference to a value owned elsewhere. The zero Binding
// reads the zero value and ignores writes.
type Binding[T any] struct {
	get func() T
	set func(T)
}

// New returns a binding backed by get and set. A nil set makes the binding
// read-only: Set becomes a no-op.
func New[T any](get func() T, set func(T)) Binding[T] {
	return Binding[T]{get: get, set: set}
}

// Var binds directly to the variable p points to.
func Var[T any](p *T) Binding[T] {
	return Binding[T]{
		get: func() T { return *p },
		set: func(v T) { *p = v },
	}
}

// Constant returns a read-only binding that always yields v.
func Constant[T any](v T) Binding[T] {
	return Binding[T]{get: func() T { return v }}
}

// Get returns the current value.
func (b Binding[T]) Get() T {
	if b.get == nil {
		var zero T
		return zero
	}
	return b.get()
}

// Set writes v through to the owner.
func (b Binding[T]) Set(v T) {
	if b.set != nil {
		b.set(v)
	}
}

// ReadOnly reports whether writes are discarded.
func (b Binding[T]) ReadOnly() bool {
	return b.set == nil
}

// Map derives a binding of another type. Reads convert with to, writes
// convert back with from. The derived binding stores nothing.
func Map[T, U any](b Binding[T], to func(T) U, from func(U) T) Binding[U] {
	var set func(U)
	if b.set != nil {
		set = func(v U) { b.set(from(v)) }
	}
	return Binding[U]{
		get: func() U { return to(b.Get()) },
		set: set,
	}
}
