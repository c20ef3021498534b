// Package xslices holds small generic slice helpers shared by the code
// generators and their tests.
package xslices

import "golang.org/x/exp/constraints"

// Map applies fn to each element of in and returns the resulting slice.
func Map[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// Max returns the largest element of the slice, or the zero value for an
// empty slice.
func Max[T constraints.Ordered](values []T) T {
	var max T
	for i, v := range values {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

// Iota returns a slice {start, start+1, …} of the given length.
func Iota[T constraints.Integer | constraints.Float](start T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = start + T(i)
	}
	return out
}

// Fill returns a slice of the given length with every element set to value.
func Fill[T any](n int, value T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = value
	}
	return out
}
