package model

import (
	"fmt"
	"math/bits"
	"strings"
)

// OpKind is the closed set of transforms a worker can apply to an item.
type OpKind int

const (
	OpAdd OpKind = iota
	OpMultiply
	OpSquare
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpMultiply:
		return "multiply"
	case OpSquare:
		return "square"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// ParseOpKind accepts the names used in scenario files as well as the
// operator shorthands "+", "*" and "**".
func ParseOpKind(s string) (OpKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "add", "+":
		return OpAdd, nil
	case "multiply", "mul", "*":
		return OpMultiply, nil
	case "square", "**":
		return OpSquare, nil
	}
	return 0, fmt.Errorf("unknown op %q", s)
}

// Transform is the per-worker rule applied to an item before it is reduced.
// Operand is ignored for OpSquare.
type Transform struct {
	Kind    OpKind
	Operand uint64
}

func Add(k uint64) Transform      { return Transform{Kind: OpAdd, Operand: k} }
func Multiply(k uint64) Transform { return Transform{Kind: OpMultiply, Operand: k} }
func Square() Transform           { return Transform{Kind: OpSquare} }

// ApplyChecked evaluates the transform, reporting ErrArithmeticOverflow when
// the result does not fit in a uint64.
func (t Transform) ApplyChecked(v uint64) (uint64, error) {
	var hi, lo uint64
	switch t.Kind {
	case OpAdd:
		lo, hi = bits.Add64(v, t.Operand, 0)
	case OpMultiply:
		hi, lo = bits.Mul64(v, t.Operand)
	case OpSquare:
		hi, lo = bits.Mul64(v, v)
	default:
		return 0, fmt.Errorf("invalid transform kind %d", int(t.Kind))
	}
	if hi != 0 {
		return 0, fmt.Errorf("%w: %s applied to %d", ErrArithmeticOverflow, t, v)
	}
	return lo, nil
}

func (t Transform) validate() error {
	switch t.Kind {
	case OpAdd, OpMultiply, OpSquare:
		return nil
	}
	return fmt.Errorf("invalid transform kind %d", int(t.Kind))
}

func (t Transform) String() string {
	switch t.Kind {
	case OpAdd:
		return fmt.Sprintf("old + %d", t.Operand)
	case OpMultiply:
		return fmt.Sprintf("old * %d", t.Operand)
	case OpSquare:
		return "old * old"
	}
	return t.Kind.String()
}
