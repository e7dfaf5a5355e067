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
)

// ReplaceSymbols is a walker that substitutes free symbols. A symbol that is
// bound by an enclosing quantifier, lambda or query head is left alone, even if
// its name is in the substitution.
type ReplaceSymbols struct {
	*PatternMatcher

	// Subst maps symbol names to their replacement.
	Subst map[string]interfaces.Expr
}

// Replace runs a ReplaceSymbols walker over the expression.
func Replace(expr interfaces.Expr, subst map[string]interfaces.Expr, data *interfaces.Data) (interfaces.Expr, error) {
	if len(subst) == 0 {
		return expr, nil
	}
	obj := &ReplaceSymbols{Subst: subst}
	if err := obj.Init(data); err != nil {
		return nil, err
	}
	return obj.Walk(expr)
}

// Init must be called before the walker is used.
func (obj *ReplaceSymbols) Init(data *interfaces.Data) error {
	obj.PatternMatcher = &PatternMatcher{
		Data: interfaces.NewData(data),
	}
	obj.Rules = []*Rule{
		{Name: "replace symbol", Pattern: &ast.Symbol{}, Handler: obj.symbol},
		{Name: "replace function", Pattern: &ast.FunctionApplication{}, Handler: obj.function},
		{Name: "replace statement", Pattern: &ast.Statement{}, Handler: obj.statement},
		{Name: "replace implication", Pattern: &ast.Implication{}, Handler: obj.implication},
		{Name: "replace fact", Pattern: &ast.Fact{}, Handler: obj.fact},
		{Name: "replace query", Pattern: &ast.Query{}, Handler: obj.query},
		{Name: "replace existential", Pattern: &ast.ExistentialPredicate{}, Handler: obj.existential},
		{Name: "replace universal", Pattern: &ast.UniversalPredicate{}, Handler: obj.universal},
		{Name: "replace projection", Pattern: &ast.Projection{}, Handler: obj.projection},
		{Name: "replace lambda", Pattern: &ast.Lambda{}, Handler: obj.lambda},
		{Name: "replace block", Pattern: &ast.ExpressionBlock{}, Handler: obj.block},
	}
	return nil
}

// without returns a walker for a scope in which the names are bound.
func (obj *ReplaceSymbols) without(names ...string) (*ReplaceSymbols, error) {
	subst := make(map[string]interfaces.Expr)
	for k, v := range obj.Subst {
		subst[k] = v
	}
	for _, name := range names {
		delete(subst, name)
	}
	r := &ReplaceSymbols{Subst: subst}
	if err := r.Init(obj.Data); err != nil {
		return nil, err
	}
	return r, nil
}

// walkMaybe walks the expression unless it is nil.
func (obj *ReplaceSymbols) walkMaybe(expr interfaces.Expr) (interfaces.Expr, error) {
	if expr == nil {
		return nil, nil
	}
	return obj.Walk(expr)
}

// walkPair walks two children and reports if either one changed.
func (obj *ReplaceSymbols) walkPair(a, b interfaces.Expr) (interfaces.Expr, interfaces.Expr, bool, error) {
	x, err := obj.walkMaybe(a)
	if err != nil {
		return nil, nil, false, err
	}
	y, err := obj.walkMaybe(b)
	if err != nil {
		return nil, nil, false, err
	}
	return x, y, changed(x, a) || changed(y, b), nil
}

func (obj *ReplaceSymbols) symbol(expr interfaces.Expr) (interfaces.Expr, error) {
	s := expr.(*ast.Symbol)
	value, exists := obj.Subst[s.Name]
	if !exists {
		return expr, nil
	}
	// a constant takes on the declared type of the symbol it replaces
	if c, ok := value.(*ast.Constant); ok && s.T != nil {
		typ, err := types.Unify(s.T, c.Type())
		if err != nil {
			return nil, err
		}
		return retype(c, typ)
	}
	return value, nil
}

func (obj *ReplaceSymbols) function(expr interfaces.Expr) (interfaces.Expr, error) {
	fa := expr.(*ast.FunctionApplication)
	functor, err := obj.walkMaybe(fa.Functor)
	if err != nil {
		return nil, err
	}
	args, err := obj.WalkList(fa.Args)
	if err != nil {
		return nil, err
	}
	if !changed(functor, fa.Functor) && !changedList(args, fa.Args) {
		return expr, nil
	}
	return &ast.FunctionApplication{T: fa.T, Functor: functor, Args: args}, nil
}

func (obj *ReplaceSymbols) statement(expr interfaces.Expr) (interfaces.Expr, error) {
	st := expr.(*ast.Statement)
	symbol, value, ch, err := obj.walkPair(st.Symbol, st.Value)
	if err != nil || !ch {
		return expr, err
	}
	return &ast.Statement{T: st.T, Symbol: symbol, Value: value}, nil
}

func (obj *ReplaceSymbols) implication(expr interfaces.Expr) (interfaces.Expr, error) {
	imp := expr.(*ast.Implication)
	head, body, ch, err := obj.walkPair(imp.Head, imp.Body)
	if err != nil || !ch {
		return expr, err
	}
	return &ast.Implication{T: imp.T, Head: head, Body: body}, nil
}

func (obj *ReplaceSymbols) fact(expr interfaces.Expr) (interfaces.Expr, error) {
	f := expr.(*ast.Fact)
	head, err := obj.walkMaybe(f.Head)
	if err != nil || !changed(head, f.Head) {
		return expr, err
	}
	return &ast.Fact{T: f.T, Head: head}, nil
}

func (obj *ReplaceSymbols) query(expr interfaces.Expr) (interfaces.Expr, error) {
	q := expr.(*ast.Query)
	names := []string{}
	for _, x := range q.Head {
		names = append(names, x.Name)
	}
	inner, err := obj.without(names...)
	if err != nil {
		return nil, err
	}
	body, err := inner.walkMaybe(q.Body)
	if err != nil || !changed(body, q.Body) {
		return expr, err
	}
	return &ast.Query{T: q.T, Head: q.Head, Tuple: q.Tuple, Body: body}, nil
}

// quantified walks the body of a quantifier with its head bound.
func (obj *ReplaceSymbols) quantified(head, body interfaces.Expr) (interfaces.Expr, bool, error) {
	inner := obj
	if s, ok := head.(*ast.Symbol); ok {
		var err error
		if inner, err = obj.without(s.Name); err != nil {
			return nil, false, err
		}
	}
	out, err := inner.walkMaybe(body)
	if err != nil {
		return nil, false, err
	}
	return out, changed(out, body), nil
}

func (obj *ReplaceSymbols) existential(expr interfaces.Expr) (interfaces.Expr, error) {
	ep := expr.(*ast.ExistentialPredicate)
	body, ch, err := obj.quantified(ep.Head, ep.Body)
	if err != nil || !ch {
		return expr, err
	}
	return &ast.ExistentialPredicate{T: ep.T, Head: ep.Head, Body: body}, nil
}

func (obj *ReplaceSymbols) universal(expr interfaces.Expr) (interfaces.Expr, error) {
	up := expr.(*ast.UniversalPredicate)
	body, ch, err := obj.quantified(up.Head, up.Body)
	if err != nil || !ch {
		return expr, err
	}
	return &ast.UniversalPredicate{T: up.T, Head: up.Head, Body: body}, nil
}

func (obj *ReplaceSymbols) projection(expr interfaces.Expr) (interfaces.Expr, error) {
	p := expr.(*ast.Projection)
	collection, item, ch, err := obj.walkPair(p.Collection, p.Item)
	if err != nil || !ch {
		return expr, err
	}
	return &ast.Projection{T: p.T, Collection: collection, Item: item}, nil
}

func (obj *ReplaceSymbols) lambda(expr interfaces.Expr) (interfaces.Expr, error) {
	l := expr.(*ast.Lambda)
	names := []string{}
	for _, x := range l.Args {
		if s, ok := x.(*ast.Symbol); ok {
			names = append(names, s.Name)
		}
	}
	inner, err := obj.without(names...)
	if err != nil {
		return nil, err
	}
	body, err := inner.walkMaybe(l.Body)
	if err != nil || !changed(body, l.Body) {
		return expr, err
	}
	return &ast.Lambda{T: l.T, Args: l.Args, Body: body}, nil
}

func (obj *ReplaceSymbols) block(expr interfaces.Expr) (interfaces.Expr, error) {
	b := expr.(*ast.ExpressionBlock)
	exprs, err := obj.WalkList(b.Exprs)
	if err != nil || !changedList(exprs, b.Exprs) {
		return expr, err
	}
	return &ast.ExpressionBlock{T: b.T, Exprs: exprs}, nil
}
