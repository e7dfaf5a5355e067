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

// Package ast contains the structs implementing the expression tree. All of the
// nodes are immutable once built. Child fields are typed as interfaces.Expr so
// that a partially filled in node can double as a pattern for the walker.
package ast

import (
	"fmt"
	"strings"

	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
)

// Symbol is a free or bound identifier. Two symbols are equal if their names
// are equal.
type Symbol struct {
	Name string
	T    *types.Type // declared type, nil if it is to be inferred
}

// S builds a symbol with a type that is to be inferred.
func S(name string) *Symbol {
	return &Symbol{Name: name}
}

// String returns a short representation of this expression.
func (obj *Symbol) String() string { return obj.Name }

// Type returns the declared type of this expression.
func (obj *Symbol) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another. Only the name matters.
func (obj *Symbol) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Symbol)
	if !ok {
		return fmt.Errorf("expected symbol, got: %T", expr)
	}
	if obj.Name != other.Name {
		return fmt.Errorf("symbol %s != %s", obj.Name, other.Name)
	}
	return nil
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Symbol) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// NameSeparator joins the parts of a hierarchical symbol name.
const NameSeparator = "."

// Child returns the symbol of the name nested under this one, so the child b
// of a is a.b. Its type is to be inferred.
func (obj *Symbol) Child(name string) *Symbol {
	return S(obj.Name + NameSeparator + name)
}

// Parent returns the symbol one level up, or nil for a top level name.
func (obj *Symbol) Parent() *Symbol {
	i := strings.LastIndex(obj.Name, NameSeparator)
	if i < 0 {
		return nil
	}
	return S(obj.Name[:i])
}

// Call applies this symbol to the arguments, which usually builds an atom.
func (obj *Symbol) Call(args ...interfaces.Expr) *FunctionApplication {
	return Call(obj, args...)
}

// Constant is a literal value together with its type. The value always
// validates against the type when built with NewConstant. A constant with a
// nil value is only ever used as a pattern that matches any constant.
type Constant struct {
	T *types.Type
	V types.Value
}

// NewConstant builds a constant and validates the value against the type. A
// nil type is taken from the value.
func NewConstant(typ *types.Type, v types.Value) (*Constant, error) {
	if v == nil {
		return nil, fmt.Errorf("constant has no value")
	}
	if typ == nil {
		return &Constant{T: v.Type(), V: v}, nil
	}
	ok, err := types.ValidateValue(v, typ)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, typeMismatchf("value %s is not of type %s", v, typ)
	}
	return &Constant{T: typ, V: v}, nil
}

// String returns a short representation of this expression.
func (obj *Constant) String() string {
	if obj.V == nil {
		return "C(...)"
	}
	return obj.V.String()
}

// Type returns the declared type of this expression.
func (obj *Constant) Type() *types.Type {
	if obj.T == nil && obj.V != nil {
		return obj.V.Type()
	}
	return typeOrInfer(obj.T)
}

// Cmp compares this expression to another. Both the type and the value must
// be equal.
func (obj *Constant) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Constant)
	if !ok {
		return fmt.Errorf("expected constant, got: %T", expr)
	}
	if err := obj.Type().Cmp(other.Type()); err != nil {
		return err
	}
	if obj.V == nil || other.V == nil {
		if obj.V != other.V {
			return fmt.Errorf("constant value differs")
		}
		return nil
	}
	return obj.V.Cmp(other.V)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Constant) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }

// FunctionApplication applies a functor to a list of arguments. If Args is nil
// the function is not applied, which is different from a call with zero args.
type FunctionApplication struct {
	T       *types.Type
	Functor interfaces.Expr
	Args    []interfaces.Expr
}

// Call builds a function application. The args are never nil.
func Call(functor interfaces.Expr, args ...interfaces.Expr) *FunctionApplication {
	if args == nil {
		args = []interfaces.Expr{}
	}
	return &FunctionApplication{
		Functor: functor,
		Args:    args,
	}
}

// String returns a short representation of this expression.
func (obj *FunctionApplication) String() string {
	if obj.Args == nil {
		return fmt.Sprintf("%s(...)", obj.Functor)
	}
	if op, ok := Operator(obj); ok {
		switch {
		case op == NotName && len(obj.Args) == 1:
			return fmt.Sprintf("%s%s", op, obj.Args[0])
		case len(obj.Args) == 2:
			return fmt.Sprintf("(%s %s %s)", obj.Args[0], op, obj.Args[1])
		}
	}
	return fmt.Sprintf("%s(%s)", obj.Functor, exprList(obj.Args))
}

// Type returns the declared type of this expression. If none was declared, it
// is the return type of the functor when that is known.
func (obj *FunctionApplication) Type() *types.Type {
	if obj.T != nil {
		return obj.T
	}
	if obj.Functor != nil {
		if typ := obj.Functor.Type(); typ.IsCallable() && typ.Out != nil {
			return typ.Out
		}
	}
	return types.TypeInfer
}

// Cmp compares this expression to another.
func (obj *FunctionApplication) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*FunctionApplication)
	if !ok {
		return fmt.Errorf("expected function application, got: %T", expr)
	}
	if err := cmpType(obj.T, other.T); err != nil {
		return err
	}
	if err := cmpExpr(obj.Functor, other.Functor); err != nil {
		return err
	}
	return cmpExprList(obj.Args, other.Args)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *FunctionApplication) Apply(fn func(interfaces.Expr) error) error {
	if obj.Functor != nil {
		if err := obj.Functor.Apply(fn); err != nil {
			return err
		}
	}
	for _, x := range obj.Args {
		if err := x.Apply(fn); err != nil {
			return err
		}
	}
	return fn(obj)
}

// Statement binds a symbol to a value in the current scope. When the symbol is
// an atom instead, the statement is a rule definition.
type Statement struct {
	T      *types.Type
	Symbol interfaces.Expr
	Value  interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *Statement) String() string {
	return fmt.Sprintf("%s := %s", obj.Symbol, orEllipsis(obj.Value))
}

// Type returns the declared type of this expression.
func (obj *Statement) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *Statement) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Statement)
	if !ok {
		return fmt.Errorf("expected statement, got: %T", expr)
	}
	if err := cmpType(obj.T, other.T); err != nil {
		return err
	}
	if err := cmpExpr(obj.Symbol, other.Symbol); err != nil {
		return err
	}
	return cmpExpr(obj.Value, other.Value)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Statement) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Symbol, obj.Value); err != nil {
		return err
	}
	return fn(obj)
}

// Implication is a rule. The head is an atom and the body is a conjunction.
type Implication struct {
	T    *types.Type
	Head interfaces.Expr
	Body interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *Implication) String() string {
	return fmt.Sprintf("%s :- %s", obj.Head, orEllipsis(obj.Body))
}

// Type returns the declared type of this expression.
func (obj *Implication) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *Implication) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Implication)
	if !ok {
		return fmt.Errorf("expected implication, got: %T", expr)
	}
	if err := cmpType(obj.T, other.T); err != nil {
		return err
	}
	if err := cmpExpr(obj.Head, other.Head); err != nil {
		return err
	}
	return cmpExpr(obj.Body, other.Body)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Implication) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Head, obj.Body); err != nil {
		return err
	}
	return fn(obj)
}

// Fact is a ground atom. It is an implication whose body is always true.
type Fact struct {
	T    *types.Type
	Head interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *Fact) String() string { return fmt.Sprintf("%s.", obj.Head) }

// Type returns the declared type of this expression.
func (obj *Fact) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *Fact) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Fact)
	if !ok {
		return fmt.Errorf("expected fact, got: %T", expr)
	}
	if err := cmpType(obj.T, other.T); err != nil {
		return err
	}
	return cmpExpr(obj.Head, other.Head)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Fact) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Head); err != nil {
		return err
	}
	return fn(obj)
}

// Implication returns the equivalent rule with the trivially true body.
func (obj *Fact) Implication() *Implication {
	return &Implication{
		T:    obj.T,
		Head: obj.Head,
		Body: True,
	}
}

// Query asks for the values of the head variables that satisfy the body. If
// Tuple is false the head is a single variable and the answer is a set of
// values, otherwise the answer is a set of tuples.
type Query struct {
	T     *types.Type
	Head  []*Symbol
	Tuple bool
	Body  interfaces.Expr
}

// NewQuery builds a query with a single variable head.
func NewQuery(head *Symbol, body interfaces.Expr) *Query {
	return &Query{
		Head: []*Symbol{head},
		Body: body,
	}
}

// NewTupleQuery builds a query whose head is a tuple of variables.
func NewTupleQuery(body interfaces.Expr, head ...*Symbol) *Query {
	return &Query{
		Head:  head,
		Tuple: true,
		Body:  body,
	}
}

// Name returns the name the answer of this query is bound to.
func (obj *Query) Name() string {
	if !obj.Tuple && len(obj.Head) == 1 {
		return obj.Head[0].Name
	}
	names := []string{}
	for _, x := range obj.Head {
		names = append(names, x.Name)
	}
	return fmt.Sprintf("(%s)", strings.Join(names, ", "))
}

// String returns a short representation of this expression.
func (obj *Query) String() string {
	return fmt.Sprintf("?%s :- %s", obj.Name(), orEllipsis(obj.Body))
}

// Type returns the declared type of this expression.
func (obj *Query) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *Query) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Query)
	if !ok {
		return fmt.Errorf("expected query, got: %T", expr)
	}
	if err := cmpType(obj.T, other.T); err != nil {
		return err
	}
	if obj.Tuple != other.Tuple || obj.Name() != other.Name() {
		return fmt.Errorf("query head %s != %s", obj.Name(), other.Name())
	}
	return cmpExpr(obj.Body, other.Body)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Query) Apply(fn func(interfaces.Expr) error) error {
	for _, x := range obj.Head {
		if err := x.Apply(fn); err != nil {
			return err
		}
	}
	if err := applyAll(fn, obj.Body); err != nil {
		return err
	}
	return fn(obj)
}

// ExistentialPredicate is true if the body holds for some value of the head.
type ExistentialPredicate struct {
	T    *types.Type
	Head interfaces.Expr // a *Symbol
	Body interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *ExistentialPredicate) String() string {
	return fmt.Sprintf("exists(%s; %s)", obj.Head, obj.Body)
}

// Type returns the declared type of this expression.
func (obj *ExistentialPredicate) Type() *types.Type { return typeOrBool(obj.T) }

// Cmp compares this expression to another.
func (obj *ExistentialPredicate) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*ExistentialPredicate)
	if !ok {
		return fmt.Errorf("expected existential predicate, got: %T", expr)
	}
	if err := cmpExpr(obj.Head, other.Head); err != nil {
		return err
	}
	return cmpExpr(obj.Body, other.Body)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExistentialPredicate) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Head, obj.Body); err != nil {
		return err
	}
	return fn(obj)
}

// UniversalPredicate is true if the body holds for every value of the head.
type UniversalPredicate struct {
	T    *types.Type
	Head interfaces.Expr // a *Symbol
	Body interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *UniversalPredicate) String() string {
	return fmt.Sprintf("forall(%s; %s)", obj.Head, obj.Body)
}

// Type returns the declared type of this expression.
func (obj *UniversalPredicate) Type() *types.Type { return typeOrBool(obj.T) }

// Cmp compares this expression to another.
func (obj *UniversalPredicate) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*UniversalPredicate)
	if !ok {
		return fmt.Errorf("expected universal predicate, got: %T", expr)
	}
	if err := cmpExpr(obj.Head, other.Head); err != nil {
		return err
	}
	return cmpExpr(obj.Body, other.Body)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *UniversalPredicate) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Head, obj.Body); err != nil {
		return err
	}
	return fn(obj)
}

// Projection indexes into a tuple or a list.
type Projection struct {
	T          *types.Type
	Collection interfaces.Expr
	Item       interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *Projection) String() string {
	return fmt.Sprintf("%s[%s]", obj.Collection, obj.Item)
}

// Type returns the declared type of this expression.
func (obj *Projection) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *Projection) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Projection)
	if !ok {
		return fmt.Errorf("expected projection, got: %T", expr)
	}
	if err := cmpType(obj.T, other.T); err != nil {
		return err
	}
	if err := cmpExpr(obj.Collection, other.Collection); err != nil {
		return err
	}
	return cmpExpr(obj.Item, other.Item)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Projection) Apply(fn func(interfaces.Expr) error) error {
	if err := applyAll(fn, obj.Collection, obj.Item); err != nil {
		return err
	}
	return fn(obj)
}

// Lambda is an unevaluated body closed over the argument symbols. Applying it
// substitutes the arguments into the body.
type Lambda struct {
	T    *types.Type
	Args []interfaces.Expr // each one is a *Symbol
	Body interfaces.Expr
}

// String returns a short representation of this expression.
func (obj *Lambda) String() string {
	return fmt.Sprintf("lambda(%s): %s", exprList(obj.Args), obj.Body)
}

// Type returns the declared type of this expression.
func (obj *Lambda) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *Lambda) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*Lambda)
	if !ok {
		return fmt.Errorf("expected lambda, got: %T", expr)
	}
	if err := cmpExprList(obj.Args, other.Args); err != nil {
		return err
	}
	return cmpExpr(obj.Body, other.Body)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *Lambda) Apply(fn func(interfaces.Expr) error) error {
	for _, x := range obj.Args {
		if err := x.Apply(fn); err != nil {
			return err
		}
	}
	if err := applyAll(fn, obj.Body); err != nil {
		return err
	}
	return fn(obj)
}

// ExpressionBlock is an ordered list of statements. It is the unit a program is
// submitted in, and it is also how the solver stores a predicate definition.
type ExpressionBlock struct {
	T     *types.Type
	Exprs []interfaces.Expr
}

// Block builds an expression block.
func Block(exprs ...interfaces.Expr) *ExpressionBlock {
	if exprs == nil {
		exprs = []interfaces.Expr{}
	}
	return &ExpressionBlock{Exprs: exprs}
}

// String returns a short representation of this expression.
func (obj *ExpressionBlock) String() string {
	s := []string{}
	for _, x := range obj.Exprs {
		s = append(s, x.String())
	}
	return fmt.Sprintf("{%s}", strings.Join(s, "; "))
}

// Type returns the declared type of this expression.
func (obj *ExpressionBlock) Type() *types.Type { return typeOrInfer(obj.T) }

// Cmp compares this expression to another.
func (obj *ExpressionBlock) Cmp(expr interfaces.Expr) error {
	other, ok := expr.(*ExpressionBlock)
	if !ok {
		return fmt.Errorf("expected expression block, got: %T", expr)
	}
	return cmpExprList(obj.Exprs, other.Exprs)
}

// Apply is a general purpose iterator method that operates on any AST node.
func (obj *ExpressionBlock) Apply(fn func(interfaces.Expr) error) error {
	for _, x := range obj.Exprs {
		if err := x.Apply(fn); err != nil {
			return err
		}
	}
	return fn(obj)
}
