// Package detector composes matcher primitives into named boolean detectors
// and evaluates them per frame with edge-triggered event output.
package detector

import (
	"fmt"
	"strings"
)

// Op identifies an expression node variant.
type Op int

const (
	// OpLeaf references a matcher or another detector by name.
	OpLeaf Op = iota
	// OpAnd is true when every child is true.
	OpAnd
	// OpOr is true when any child is true.
	OpOr
	// OpNot negates its single child.
	OpNot
)

// Expr is one node of a composite detector expression.
type Expr struct {
	Op       Op
	Name     string  // OpLeaf only
	Children []*Expr // OpAnd, OpOr: 1..n children; OpNot: exactly 1
}

// Leaf references a matcher or detector by name.
func Leaf(name string) *Expr {
	return &Expr{Op: OpLeaf, Name: name}
}

// And is true when every child expression is true.
func And(children ...*Expr) *Expr {
	return &Expr{Op: OpAnd, Children: children}
}

// Or is true when any child expression is true.
func Or(children ...*Expr) *Expr {
	return &Expr{Op: OpOr, Children: children}
}

// Not negates a child expression.
func Not(child *Expr) *Expr {
	return &Expr{Op: OpNot, Children: []*Expr{child}}
}

// String renders the expression in configuration syntax, for logs and errors.
func (e *Expr) String() string {
	switch e.Op {
	case OpLeaf:
		return e.Name
	case OpNot:
		return fmt.Sprintf("not(%s)", e.Children[0])
	case OpAnd, OpOr:
		op := "and"
		if e.Op == OpOr {
			op = "or"
		}
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)", op, strings.Join(parts, ", "))
	}
	return "invalid"
}

// validate checks structural invariants of the node itself; name resolution
// and cycle checks happen at registry build.
func (e *Expr) validate() error {
	switch e.Op {
	case OpLeaf:
		if e.Name == "" {
			return fmt.Errorf("%w: empty leaf name", ErrInvalidExpression)
		}
	case OpNot:
		if len(e.Children) != 1 {
			return fmt.Errorf("%w: not() takes exactly one operand", ErrInvalidExpression)
		}
	case OpAnd, OpOr:
		if len(e.Children) == 0 {
			return fmt.Errorf("%w: %s with no operands", ErrInvalidExpression, e)
		}
	default:
		return fmt.Errorf("%w: unknown op %d", ErrInvalidExpression, int(e.Op))
	}
	for _, c := range e.Children {
		if c == nil {
			return fmt.Errorf("%w: nil child in %s", ErrInvalidExpression, e)
		}
		if err := c.validate(); err != nil {
			return err
		}
	}
	return nil
}

// leaves appends every leaf name in the expression to dst.
func (e *Expr) leaves(dst []string) []string {
	if e.Op == OpLeaf {
		return append(dst, e.Name)
	}
	for _, c := range e.Children {
		dst = c.leaves(dst)
	}
	return dst
}
