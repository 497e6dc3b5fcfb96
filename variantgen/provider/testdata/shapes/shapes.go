// Package shapes is a fixture for the source provider.
package shapes

import "io"

// Point is decomposed into the cases that inline it.
type Point struct {
	X, Y float64
}

// Circle is a round shape.
//
//variant:case Shape
type Circle struct {
	Center Point `variant:"inline"`
	Radius float64
}

//variant:case Shape tag=5 factory=MakeLabel
type Label struct {
	Text   string
	At     Point `variant:"inline"`
	Cached string `variant:"-"`
}

//variant:case Shape
type Nothing struct{}

//variant:case Result
type Ok[T any] struct {
	Value T
}

//variant:case Result
type Count[N ~int | ~int64] struct {
	N N
}

//variant:case Result
type Failed struct {
	Err  error
	Body io.Reader
	Code [2]int
}

// NotACase has no directive.
type NotACase struct{ A int }
