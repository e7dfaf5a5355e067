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

package walker

import (
	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/util/errwrap"
)

// Evaluator is the basic evaluator. It resolves symbols through its table,
// binds statements and queries into it, and eagerly evaluates projections and
// function applications once all of their operands are constants. Walking an
// expression that is already in normal form returns an equal expression.
type Evaluator struct {
	*PatternMatcher

	// Table is the scope that symbols are resolved in and that statements
	// are bound into. A new one is created by Init if it is nil.
	Table *interfaces.SymbolTable

	// Simplify turns unbound symbols into a best effort. Instead of the
	// ErrUnboundSymbol error, the symbol is returned unevaluated.
	Simplify bool
}

// Init must be called before the evaluator is used. It resets the rules.
func (obj *Evaluator) Init(data *interfaces.Data) error {
	if obj.Table == nil {
		obj.Table = interfaces.NewSymbolTable()
	}
	obj.PatternMatcher = &PatternMatcher{
		Data: interfaces.NewData(data),
	}
	obj.Rules = []*Rule{
		{
			Name:    "constant",
			Pattern: &ast.Constant{},
			Handler: func(expr interfaces.Expr) (interfaces.Expr, error) { return expr, nil },
		},
		{
			Name:    "symbol",
			Pattern: &ast.Symbol{},
			Handler: obj.symbol,
		},
		{
			Name:    "statement",
			Pattern: &ast.Statement{Symbol: &ast.Symbol{}},
			Guard:   func(expr interfaces.Expr) bool { return expr.(*ast.Statement).Value != nil },
			Handler: obj.statement,
		},
		{
			Name:    "query",
			Pattern: &ast.Query{},
			Guard:   func(expr interfaces.Expr) bool { return expr.(*ast.Query).Body != nil },
			Handler: obj.query,
		},
		{
			Name:    "evaluate projection",
			Pattern: &ast.Projection{Collection: &ast.Constant{}, Item: &ast.Constant{}},
			Handler: obj.evaluateProjection,
		},
		{
			Name:    "projection",
			Pattern: &ast.Projection{},
			Handler: obj.projection,
		},
		{
			Name:    "evaluate function",
			Pattern: &ast.FunctionApplication{Functor: &ast.Constant{}},
			Guard:   groundApplication,
			Handler: obj.evaluateFunction,
		},
		{
			Name:    "apply lambda",
			Pattern: &ast.FunctionApplication{Functor: &ast.Lambda{}},
			Guard:   func(expr interfaces.Expr) bool { return expr.(*ast.FunctionApplication).Args != nil },
			Handler: obj.applyLambda,
		},
		{
			Name:    "function",
			Pattern: &ast.FunctionApplication{},
			Handler: obj.function,
		},
		{
			Name:    "expression block",
			Pattern: &ast.ExpressionBlock{},
			Handler: obj.block,
		},
		{
			Name:    "lambda",
			Pattern: &ast.Lambda{},
			Handler: func(expr interfaces.Expr) (interfaces.Expr, error) { return expr, nil },
		},
	}
	return nil
}

// groundApplication returns true if the application has args and every one of
// them is a constant.
func groundApplication(expr interfaces.Expr) bool {
	fa := expr.(*ast.FunctionApplication)
	if fa.Args == nil {
		return false
	}
	for _, x := range fa.Args {
		if _, ok := x.(*ast.Constant); !ok {
			return false
		}
	}
	return true
}

func (obj *Evaluator) symbol(expr interfaces.Expr) (interfaces.Expr, error) {
	s := expr.(*ast.Symbol)
	value, exists := obj.Table.Lookup(s.Name)
	if !exists {
		if obj.Simplify {
			return expr, nil
		}
		return nil, errwrap.Wrapf(interfaces.ErrUnboundSymbol, "symbol `%s`", s.Name)
	}
	if value == nil { // declared, but without a value yet
		return expr, nil
	}
	return value, nil
}

// retype returns the expression with the type. Only constants can be retyped,
// since other nodes carry their declared type on their own.
func retype(expr interfaces.Expr, typ *types.Type) (interfaces.Expr, error) {
	c, ok := expr.(*ast.Constant)
	if !ok || c.Type().Cmp(typ) == nil || typ.Kind == types.KindInfer {
		return expr, nil
	}
	return ast.NewConstant(typ, c.V)
}

func (obj *Evaluator) statement(expr interfaces.Expr) (interfaces.Expr, error) {
	st := expr.(*ast.Statement)
	sym := st.Symbol.(*ast.Symbol)

	value, err := obj.Walk(st.Value)
	if err != nil {
		return nil, err
	}
	typ, err := types.Unify(st.Type(), value.Type())
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't unify statement `%s`", sym.Name)
	}
	if value, err = retype(value, typ); err != nil {
		return nil, err
	}

	if !changed(value, st.Value) && typ.Cmp(st.Type()) == nil {
		if err := obj.Table.Set(sym.Name, value); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return obj.Walk(&ast.Statement{
		T:      typ,
		Symbol: sym,
		Value:  value,
	})
}

func (obj *Evaluator) query(expr interfaces.Expr) (interfaces.Expr, error) {
	q := expr.(*ast.Query)

	body, err := obj.Walk(q.Body)
	if err != nil {
		return nil, err
	}
	typ, err := types.Unify(q.Type(), body.Type())
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't unify query `%s`", q.Name())
	}

	if !changed(body, q.Body) && typ.Cmp(q.Type()) == nil {
		var bound interfaces.Expr = q
		if _, ok := body.(*ast.Constant); ok {
			bound = body
		}
		if err := obj.Table.Set(q.Name(), bound); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return obj.Walk(&ast.Query{
		T:     typ,
		Head:  q.Head,
		Tuple: q.Tuple,
		Body:  body,
	})
}

func (obj *Evaluator) evaluateProjection(expr interfaces.Expr) (interfaces.Expr, error) {
	p := expr.(*ast.Projection)
	collection := p.Collection.(*ast.Constant)
	item := p.Item.(*ast.Constant)

	index, ok := item.V.(*types.IntValue)
	if !ok {
		return nil, errwrap.Wrapf(interfaces.ErrTypeMismatch, "index %s is not an int", item)
	}
	i := int(index.V)

	var elems []types.Value
	var typ *types.Type
	switch v := collection.V.(type) {
	case *types.TupleValue:
		elems = v.V
		if t := collection.Type(); t.Kind == types.KindTuple && i >= 0 && i < len(t.Elems) {
			typ = t.Elems[i]
		}
	case *types.ListValue:
		elems = v.V
		if t := collection.Type(); t.Kind == types.KindList {
			typ = t.Val
		}
	default:
		return nil, errwrap.Wrapf(interfaces.ErrTypeMismatch, "can't index into %s", collection.Type())
	}
	if i < 0 || i >= len(elems) {
		return nil, errwrap.Wrapf(interfaces.ErrTypeMismatch, "index %d out of range for %s", i, collection)
	}
	return ast.NewConstant(typ, elems[i])
}

func (obj *Evaluator) projection(expr interfaces.Expr) (interfaces.Expr, error) {
	p := expr.(*ast.Projection)

	collection, err := obj.Walk(p.Collection)
	if err != nil {
		return nil, err
	}
	item, err := obj.Walk(p.Item)
	if err != nil {
		return nil, err
	}
	if !changed(collection, p.Collection) && !changed(item, p.Item) {
		return expr, nil
	}
	return obj.Walk(&ast.Projection{
		T:          p.T,
		Collection: collection,
		Item:       item,
	})
}

// checkCallable errors with ErrNotCallable if the functor is proven not to be
// callable. A functor whose type is still to be inferred passes, unless it is a
// constant that does not hold a function.
func checkCallable(functor interfaces.Expr) error {
	typ := functor.Type()
	if typ.Kind != types.KindInfer {
		ok, err := types.IsSubtype(typ, types.TypeFunc)
		if err != nil {
			return err
		}
		if !ok {
			return errwrap.Wrapf(interfaces.ErrNotCallable, "function %s has type %s", functor, typ)
		}
	}
	if c, ok := functor.(*ast.Constant); ok {
		if _, ok := c.V.(*types.FuncValue); !ok {
			return errwrap.Wrapf(interfaces.ErrNotCallable, "function %s is not of callable type", functor)
		}
	}
	return nil
}

func (obj *Evaluator) evaluateFunction(expr interfaces.Expr) (interfaces.Expr, error) {
	fa := expr.(*ast.FunctionApplication)
	functor := fa.Functor.(*ast.Constant)
	if err := checkCallable(functor); err != nil {
		return nil, err
	}

	args := []types.Value{}
	for _, x := range fa.Args {
		args = append(args, x.(*ast.Constant).V)
	}
	result, err := functor.V.(*types.FuncValue).Call(args)
	if err != nil {
		return nil, errwrap.Wrapf(err, "calling %s failed", functor)
	}
	if result == nil {
		return nil, errwrap.Wrapf(interfaces.ErrTypeMismatch, "function %s returned nothing", functor)
	}

	var typ *types.Type // from the value
	if out := functor.Type().Out; out != nil && out.Kind != types.KindAny && out.Kind != types.KindInfer {
		typ = out
	}
	return ast.NewConstant(typ, result)
}

func (obj *Evaluator) function(expr interfaces.Expr) (interfaces.Expr, error) {
	fa := expr.(*ast.FunctionApplication)

	functor, err := obj.Walk(fa.Functor)
	if err != nil {
		return nil, err
	}
	if fa.Args == nil { // unapplied
		if !changed(functor, fa.Functor) {
			return expr, nil
		}
		return obj.Walk(&ast.FunctionApplication{T: fa.T, Functor: functor})
	}

	args, err := obj.WalkList(fa.Args)
	if err != nil {
		return nil, err
	}
	if !changed(functor, fa.Functor) && !changedList(args, fa.Args) {
		return expr, nil
	}

	if err := checkCallable(functor); err != nil {
		return nil, err
	}
	result, err := obj.invoke(fa.T, functor, args)
	if err != nil {
		return nil, err
	}
	return obj.Walk(result)
}

func (obj *Evaluator) applyLambda(expr interfaces.Expr) (interfaces.Expr, error) {
	fa := expr.(*ast.FunctionApplication)
	args, err := obj.WalkList(fa.Args)
	if err != nil {
		return nil, err
	}
	result, err := obj.invoke(fa.T, fa.Functor, args)
	if err != nil {
		return nil, err
	}
	return obj.Walk(result)
}

// invoke applies the functor to the args. A lambda is applied by substituting
// the args into its body, anything else builds a new application.
func (obj *Evaluator) invoke(typ *types.Type, functor interfaces.Expr, args []interfaces.Expr) (interfaces.Expr, error) {
	lambda, ok := functor.(*ast.Lambda)
	if !ok {
		return &ast.FunctionApplication{
			T:       typ,
			Functor: functor,
			Args:    args,
		}, nil
	}

	if len(args) != len(lambda.Args) {
		return nil, errwrap.Wrapf(interfaces.ErrArityMismatch, "lambda takes %d args, got %d", len(lambda.Args), len(args))
	}
	subst := make(map[string]interfaces.Expr)
	for i, x := range lambda.Args {
		s, ok := x.(*ast.Symbol)
		if !ok {
			return nil, errwrap.Wrapf(interfaces.ErrTypeMismatch, "lambda arg %s is not a symbol", x)
		}
		subst[s.Name] = args[i]
	}
	return Replace(lambda.Body, subst, obj.Data)
}

func (obj *Evaluator) block(expr interfaces.Expr) (interfaces.Expr, error) {
	b := expr.(*ast.ExpressionBlock)
	exprs, err := obj.WalkList(b.Exprs)
	if err != nil {
		return nil, err
	}
	if !changedList(exprs, b.Exprs) {
		return expr, nil
	}
	return &ast.ExpressionBlock{T: b.T, Exprs: exprs}, nil
}
