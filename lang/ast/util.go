// Mgmt
// Copyright (C) 2013-2018+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package ast

import (
	"fmt"
	"strings"

	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/util/errwrap"
)

const (
	// AndName is the name of the conjunction operator.
	AndName = "&"

	// OrName is the name of the disjunction operator.
	OrName = "|"

	// NotName is the name of the negation operator.
	NotName = "~"
)

var (
	// True is the boolean true constant.
	True = &Constant{T: types.TypeBool, V: types.NewBool(true)}

	// False is the boolean false constant.
	False = &Constant{T: types.TypeBool, V: types.NewBool(false)}

	// AndFunc is the functor of a conjunction.
	AndFunc = operator(AndName, func(a, b bool) bool { return a && b })

	// OrFunc is the functor of a disjunction.
	OrFunc = operator(OrName, func(a, b bool) bool { return a || b })

	// NotFunc is the functor of a negation.
	NotFunc = operator(NotName, func(a bool) bool { return !a })
)

func operator(name string, fn interface{}) *Constant {
	c, err := NewFuncConstant(name, fn)
	if err != nil {
		panic(fmt.Sprintf("invalid operator %s: %+v", name, err))
	}
	return c
}

// And builds the conjunction of the expressions. It nests to the left.
func And(a, b interfaces.Expr, more ...interfaces.Expr) *FunctionApplication {
	result := Call(AndFunc, a, b)
	for _, x := range more {
		result = Call(AndFunc, result, x)
	}
	return result
}

// Or builds the disjunction of two expressions.
func Or(a, b interfaces.Expr) *FunctionApplication { return Call(OrFunc, a, b) }

// Not builds the negation of an expression.
func Not(a interfaces.Expr) *FunctionApplication { return Call(NotFunc, a) }

// Operator returns the name of the logical operator that the expression
// applies, if it is one.
func Operator(expr interfaces.Expr) (string, bool) {
	fa, ok := expr.(*FunctionApplication)
	if !ok {
		return "", false
	}
	c, ok := fa.Functor.(*Constant)
	if !ok {
		return "", false
	}
	fn, ok := c.V.(*types.FuncValue)
	if !ok {
		return "", false
	}
	switch fn.Name {
	case AndName, OrName, NotName:
		return fn.Name, true
	}
	return "", false
}

// NewFuncConstant wraps a golang function as a named constant. The type comes
// from the signature of the function.
func NewFuncConstant(name string, fn interface{}) (*Constant, error) {
	f, err := types.NewFunc(name, fn)
	if err != nil {
		return nil, err
	}
	return &Constant{T: f.Type(), V: f}, nil
}

// ValueToConstant converts a golang value, a types.Value or a constant into a
// constant whose type is that of the value.
func ValueToConstant(x interface{}) (*Constant, error) {
	switch v := x.(type) {
	case *Constant:
		return v, nil
	case types.Value:
		return NewConstant(nil, v)
	}
	v, err := types.ValueOfGolang(x)
	if err != nil {
		return nil, err
	}
	return NewConstant(nil, v)
}

// C builds a constant from a golang value. It panics on values that can't be
// represented, so it is only meant for literals.
func C(x interface{}) *Constant {
	c, err := ValueToConstant(x)
	if err != nil {
		panic(fmt.Sprintf("invalid constant %v: %+v", x, err))
	}
	return c
}

func values(xs []interface{}) []types.Value {
	out := []types.Value{}
	for _, x := range xs {
		out = append(out, C(x).V)
	}
	return out
}

// Tuple builds a tuple constant out of the elements. Each element may be a
// constant or a golang value.
func Tuple(xs ...interface{}) *Constant {
	return C(types.NewTuple(values(xs)...))
}

// Set builds a set constant out of the elements. Each element may be a
// constant or a golang value.
func Set(xs ...interface{}) *Constant {
	return C(types.NewSet(values(xs)...))
}

// GetTypeAndValue returns the type and the value of the input. A symbol is
// resolved through the symbol table first. A raw golang value gets its type by
// reflection, which for a function gives a callable type built from its
// signature. An expression that is not a constant has no value yet, so only
// its declared type is returned.
func GetTypeAndValue(obj interface{}, table *interfaces.SymbolTable) (*types.Type, types.Value, error) {
	switch x := obj.(type) {
	case nil:
		return nil, nil, fmt.Errorf("can't get the type of nil")

	case *Symbol:
		if table == nil {
			return nil, nil, errwrap.Wrapf(interfaces.ErrUnboundSymbol, "no table to look up `%s`", x.Name)
		}
		expr, exists := table.Lookup(x.Name)
		if !exists {
			return nil, nil, errwrap.Wrapf(interfaces.ErrUnboundSymbol, "symbol `%s`", x.Name)
		}
		if c, ok := expr.(*Constant); ok {
			return c.Type(), c.V, nil
		}
		if expr == nil {
			return x.Type(), nil, nil
		}
		return expr.Type(), nil, nil

	case *Constant:
		return x.Type(), x.V, nil

	case interfaces.Expr:
		return x.Type(), nil, nil

	case types.Value:
		return x.Type(), x, nil
	}

	v, err := types.ValueOfGolang(obj)
	if err != nil {
		return nil, nil, err
	}
	return v.Type(), v, nil
}

// ValidateValue checks that the input structurally conforms to the type. The
// input is resolved with GetTypeAndValue first. An expression without a value
// conforms if its declared type is a subtype of the type.
func ValidateValue(obj interface{}, typ *types.Type, table *interfaces.SymbolTable) (bool, error) {
	if typ == nil || typ.HasVariable() {
		return types.ValidateValue(nil, typ) // errors
	}
	t, v, err := GetTypeAndValue(obj, table)
	if err != nil {
		return false, err
	}
	if v == nil {
		return types.IsSubtype(t, typ)
	}
	return types.ValidateValue(v, typ)
}

func typeOrInfer(typ *types.Type) *types.Type {
	if typ == nil {
		return types.TypeInfer
	}
	return typ
}

func typeOrBool(typ *types.Type) *types.Type {
	if typ == nil {
		return types.TypeBool
	}
	return typ
}

func typeMismatchf(format string, v ...interface{}) error {
	return errwrap.Wrapf(interfaces.ErrTypeMismatch, format, v...)
}

func cmpType(a, b *types.Type) error {
	return typeOrInfer(a).Cmp(typeOrInfer(b))
}

func cmpExpr(a, b interfaces.Expr) error {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return fmt.Errorf("expression %v != %v", a, b)
	}
	return a.Cmp(b)
}

func cmpExprList(a, b []interfaces.Expr) error {
	if (a == nil) != (b == nil) {
		return fmt.Errorf("applied and unapplied expressions differ")
	}
	if len(a) != len(b) {
		return fmt.Errorf("length differs (%d != %d)", len(a), len(b))
	}
	for i := range a {
		if err := cmpExpr(a[i], b[i]); err != nil {
			return err
		}
	}
	return nil
}

func exprList(list []interfaces.Expr) string {
	s := []string{}
	for _, x := range list {
		s = append(s, fmt.Sprintf("%v", x))
	}
	return strings.Join(s, ", ")
}

func orEllipsis(expr interfaces.Expr) string {
	if expr == nil {
		return "..."
	}
	return expr.String()
}

func applyAll(fn func(interfaces.Expr) error, exprs ...interfaces.Expr) error {
	for _, x := range exprs {
		if x == nil {
			continue
		}
		if err := x.Apply(fn); err != nil {
			return err
		}
	}
	return nil
}
