package invitation

type fieldState uint8

const (
	fieldKeep fieldState = iota
	fieldSet
	fieldClear
)

// Field is a partial-update value: keep the stored value, set a new one, or clear it to NULL.
// The zero value keeps.
type Field[T any] struct {
	state fieldState
	value T
}

// Keep leaves the stored column untouched.
func Keep[T any]() Field[T] { return Field[T]{} }

// Set writes v.
func Set[T any](v T) Field[T] { return Field[T]{state: fieldSet, value: v} }

// Clear writes NULL.
func Clear[T any]() Field[T] { return Field[T]{state: fieldClear} }

// SetIfPresent keeps when v is nil and sets *v otherwise.
func SetIfPresent[T any](v *T) Field[T] {
	if v == nil {
		return Keep[T]()
	}
	return Set(*v)
}

// Changed reports whether the field writes the column.
func (f Field[T]) Changed() bool { return f.state != fieldKeep }

// Value returns the value to write: nil for Keep and Clear.
func (f Field[T]) Value() *T {
	if f.state != fieldSet {
		return nil
	}
	v := f.value
	return &v
}
