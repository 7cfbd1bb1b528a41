// Package fn provides small generic helpers for result handling and bounded
// concurrency, used by the offline indexing pipeline.
package fn

// Result[T] carries a value or an error.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// FromPair creates a Result from a (value, error) pair.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// Collect returns all values if every result is ok, or the first error.
func Collect[T any](results []Result[T]) ([]T, error) {
	out := make([]T, len(results))
	for i, r := range results {
		if !r.ok {
			return nil, r.err
		}
		out[i] = r.val
	}
	return out, nil
}
