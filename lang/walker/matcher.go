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

// Package walker contains the pattern matching rewrite engine. A matcher holds
// an ordered list of rules, and walking an expression runs the handler of the
// first rule whose pattern and guard both accept it. Rule sets are extended by
// embedding a matcher and prepending rules to it.
package walker

import (
	"fmt"
	"reflect"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
)

// Any is a pattern that matches every expression.
var Any interfaces.Expr = &wildcard{}

type wildcard struct{}

func (obj *wildcard) String() string                             { return "..." }
func (obj *wildcard) Type() *types.Type                          { return types.TypeAny }
func (obj *wildcard) Apply(fn func(interfaces.Expr) error) error { return fn(obj) }
func (obj *wildcard) Cmp(expr interfaces.Expr) error {
	if _, ok := expr.(*wildcard); !ok {
		return fmt.Errorf("expected wildcard, got: %T", expr)
	}
	return nil
}

// Rule is a single arm of a pattern matcher.
type Rule struct {
	// Name is used for logging only.
	Name string

	// Pattern is a partially filled in expression. A nil pattern or a nil
	// child field matches anything. See Matches for the details.
	Pattern interfaces.Expr

	// Guard is an optional extra check that runs after the pattern matched.
	Guard func(interfaces.Expr) bool

	// Handler rewrites the matched expression.
	Handler func(interfaces.Expr) (interfaces.Expr, error)
}

// PatternMatcher dispatches each expression to the first matching rule. When
// no rule matches, the expression is returned unchanged.
type PatternMatcher struct {
	Rules []*Rule

	Data *interfaces.Data
}

func (obj *PatternMatcher) data() *interfaces.Data {
	if obj.Data == nil || obj.Data.Logf == nil {
		obj.Data = interfaces.NewData(obj.Data)
	}
	return obj.Data
}

// Prepend adds rules in front of the existing ones, so that they take priority.
func (obj *PatternMatcher) Prepend(rules ...*Rule) {
	obj.Rules = append(append([]*Rule{}, rules...), obj.Rules...)
}

// Walk rewrites the expression with the first matching rule.
func (obj *PatternMatcher) Walk(expr interfaces.Expr) (interfaces.Expr, error) {
	if data := obj.data(); data.Debug {
		data.Logf("walking: %s", expr)
	}
	return obj.Match(expr)
}

// WalkList walks every expression of the list in order and returns the list of
// results. A nil list stays nil.
func (obj *PatternMatcher) WalkList(exprs []interfaces.Expr) ([]interfaces.Expr, error) {
	if exprs == nil {
		return nil, nil
	}
	result := []interfaces.Expr{}
	for _, x := range exprs {
		out, err := obj.Walk(x)
		if err != nil {
			return nil, err
		}
		result = append(result, out)
	}
	return result, nil
}

// Match runs the handler of the first rule that accepts the expression.
func (obj *PatternMatcher) Match(expr interfaces.Expr) (interfaces.Expr, error) {
	for _, rule := range obj.Rules {
		if !Matches(rule.Pattern, expr) {
			continue
		}
		if rule.Guard != nil && !rule.Guard(expr) {
			continue
		}
		if data := obj.data(); data.Debug {
			data.Logf("rule: %s", rule.Name)
		}
		return rule.Handler(expr)
	}
	return expr, nil // default
}

// Matches returns true if the expression has the shape of the pattern. The
// pattern must be the same kind of node, and each non-nil child of the pattern
// must match the corresponding child of the expression. A symbol pattern with
// a name only matches that name. A constant pattern with a value only matches
// that value, and one with a type only matches constants of a subtype of it.
func Matches(pattern, expr interfaces.Expr) bool {
	if pattern == nil {
		return true
	}
	if _, ok := pattern.(*wildcard); ok {
		return true
	}
	if expr == nil {
		return false
	}

	switch p := pattern.(type) {
	case *ast.Symbol:
		e, ok := expr.(*ast.Symbol)
		return ok && (p.Name == "" || p.Name == e.Name)

	case *ast.Constant:
		e, ok := expr.(*ast.Constant)
		if !ok {
			return false
		}
		if p.V != nil && (e.V == nil || p.V.Cmp(e.V) != nil) {
			return false
		}
		if p.T == nil || p.T.Kind == types.KindInfer {
			return true
		}
		ok, err := types.IsSubtype(e.Type(), p.T)
		return err == nil && ok

	case *ast.FunctionApplication:
		e, ok := expr.(*ast.FunctionApplication)
		if !ok || !Matches(p.Functor, e.Functor) {
			return false
		}
		if p.Args == nil {
			return true
		}
		if len(p.Args) != len(e.Args) {
			return false
		}
		for i := range p.Args {
			if !Matches(p.Args[i], e.Args[i]) {
				return false
			}
		}
		return true

	case *ast.Statement:
		e, ok := expr.(*ast.Statement)
		return ok && Matches(p.Symbol, e.Symbol) && Matches(p.Value, e.Value)

	case *ast.Implication:
		e, ok := expr.(*ast.Implication)
		return ok && Matches(p.Head, e.Head) && Matches(p.Body, e.Body)

	case *ast.Fact:
		e, ok := expr.(*ast.Fact)
		return ok && Matches(p.Head, e.Head)

	case *ast.Query:
		e, ok := expr.(*ast.Query)
		return ok && Matches(p.Body, e.Body)

	case *ast.ExistentialPredicate:
		e, ok := expr.(*ast.ExistentialPredicate)
		return ok && Matches(p.Head, e.Head) && Matches(p.Body, e.Body)

	case *ast.UniversalPredicate:
		e, ok := expr.(*ast.UniversalPredicate)
		return ok && Matches(p.Head, e.Head) && Matches(p.Body, e.Body)

	case *ast.Projection:
		e, ok := expr.(*ast.Projection)
		return ok && Matches(p.Collection, e.Collection) && Matches(p.Item, e.Item)

	case *ast.Lambda:
		e, ok := expr.(*ast.Lambda)
		return ok && Matches(p.Body, e.Body)
	}

	// other kinds of nodes match on their type alone
	return reflect.TypeOf(pattern) == reflect.TypeOf(expr)
}

// changed returns true if the two expressions are not structurally equal.
func changed(a, b interfaces.Expr) bool {
	if a == nil || b == nil {
		return a != b
	}
	return a.Cmp(b) != nil
}

// changedList is the list version of changed.
func changedList(a, b []interfaces.Expr) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if changed(a[i], b[i]) {
			return true
		}
	}
	return false
}
