// Package ops defines the scalar, unary, binary and fold operators used by
// the column-group algebra.
//
// Operators are plain function values rather than an operator class
// hierarchy; a ScalarOp pairs a binary function with a bound constant so the
// same function set serves both scalar and row-vector operations.
package ops

import "math"

// UnaryFn maps a single value.
type UnaryFn func(v float64) float64

// BinaryFn combines two values.
type BinaryFn func(left, right float64) float64

// Builtin folds an accumulator with a value (min, max, sum and friends).
type Builtin func(acc, v float64) float64

// ScalarOp applies a binary function with a bound right-hand constant.
type ScalarOp struct {
	Fn       BinaryFn
	Constant float64
}

// Apply evaluates the operator for a single cell value.
func (o ScalarOp) Apply(v float64) float64 {
	return o.Fn(v, o.Constant)
}

// Common binary functions.
var (
	Plus     BinaryFn = func(l, r float64) float64 { return l + r }
	Minus    BinaryFn = func(l, r float64) float64 { return l - r }
	Multiply BinaryFn = func(l, r float64) float64 { return l * r }
	Divide   BinaryFn = func(l, r float64) float64 { return l / r }
	Power    BinaryFn = math.Pow
)

// Common unary functions.
var (
	Abs   UnaryFn = math.Abs
	Sqrt  UnaryFn = math.Sqrt
	Round UnaryFn = math.Round
	Floor UnaryFn = math.Floor
	Ceil  UnaryFn = math.Ceil
	Neg   UnaryFn = func(v float64) float64 { return -v }
)

// Fold builtins.
var (
	Min Builtin = math.Min
	Max Builtin = math.Max
	Sum Builtin = func(acc, v float64) float64 { return acc + v }
)
