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

// +build !root

package walker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"

	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/pretty"
)

func add() *ast.Constant {
	c, err := ast.NewFuncConstant("add", func(a, b int64) int64 { return a + b })
	if err != nil {
		panic(err)
	}
	return c
}

func newEvaluator(t *testing.T, simplify bool) *Evaluator {
	obj := &Evaluator{Simplify: simplify}
	if err := obj.Init(&interfaces.Data{
		Debug: testing.Verbose(),
		Logf: func(format string, v ...interface{}) {
			t.Logf("walker: "+format, v...)
		},
	}); err != nil {
		t.Fatalf("could not init: %+v", err)
	}
	return obj
}

func TestMatches0(t *testing.T) {
	Q, x := ast.S("Q"), ast.S("x")

	testCases := []struct {
		name    string
		pattern interfaces.Expr
		expr    interfaces.Expr
		match   bool
	}{
		{"nil", nil, x, true},
		{"any", Any, ast.C(1), true},
		{"any symbol", &ast.Symbol{}, x, true},
		{"named symbol", ast.S("x"), x, true},
		{"other symbol", ast.S("y"), x, false},
		{"symbol kind", &ast.Symbol{}, ast.C(1), false},
		{"any constant", &ast.Constant{}, ast.C("a"), true},
		{"constant value", ast.C(1), ast.C(1), true},
		{"constant other value", ast.C(1), ast.C(2), false},
		{"constant subtype", &ast.Constant{T: types.TypeFloat}, ast.C(1), true},
		{"constant not subtype", &ast.Constant{T: types.TypeInt}, ast.C("a"), false},
		{"any atom", &ast.FunctionApplication{}, Q.Call(x), true},
		{"atom functor", &ast.FunctionApplication{Functor: ast.S("Q")}, Q.Call(x), true},
		{"atom other functor", &ast.FunctionApplication{Functor: ast.S("R")}, Q.Call(x), false},
		{"atom args", ast.Call(nil, &ast.Symbol{}, &ast.Constant{}), Q.Call(x, ast.C(1)), true},
		{"atom arg count", ast.Call(nil, &ast.Symbol{}), Q.Call(x, ast.C(1)), false},
		{"atom arg kind", ast.Call(nil, &ast.Constant{}, Any), Q.Call(x, ast.C(1)), false},
		{"statement", &ast.Statement{Symbol: &ast.Symbol{}}, &ast.Statement{Symbol: x, Value: ast.C(1)}, true},
		{"statement rule", &ast.Statement{Symbol: &ast.Symbol{}}, &ast.Statement{Symbol: Q.Call(x)}, false},
		{"projection", &ast.Projection{Collection: &ast.Constant{}}, &ast.Projection{Collection: ast.Tuple(1), Item: x}, true},
		{"block", &ast.ExpressionBlock{}, ast.Block(x), true},
		{"block kind", &ast.ExpressionBlock{}, &ast.Lambda{Body: x}, false},
	}

	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			if m := Matches(tc.pattern, tc.expr); m != tc.match {
				t.Errorf("test #%d: pattern %v against %v: got %t, expected %t", index, tc.pattern, tc.expr, m, tc.match)
			}
		})
	}
}

func TestPatternMatcher0(t *testing.T) {
	seen := []string{}
	rule := func(name string) func(interfaces.Expr) (interfaces.Expr, error) {
		return func(expr interfaces.Expr) (interfaces.Expr, error) {
			seen = append(seen, name)
			return ast.C(name), nil
		}
	}
	obj := &PatternMatcher{
		Rules: []*Rule{
			{Name: "x", Pattern: ast.S("x"), Handler: rule("x")},
			{Name: "guarded", Pattern: &ast.Symbol{}, Guard: func(expr interfaces.Expr) bool {
				return strings.HasPrefix(expr.(*ast.Symbol).Name, "g")
			}, Handler: rule("guarded")},
			{Name: "symbol", Pattern: &ast.Symbol{}, Handler: rule("symbol")},
		},
	}

	for _, name := range []string{"x", "gx", "y"} {
		if _, err := obj.Walk(ast.S(name)); err != nil {
			t.Errorf("walk failed: %+v", err)
		}
	}
	if diff := pretty.Compare(seen, []string{"x", "guarded", "symbol"}); diff != "" {
		t.Errorf("unexpected rules, diff: (-got +want)\n%s", diff)
	}

	// default rule
	c := ast.C(3)
	if out, err := obj.Walk(c); err != nil || out != c {
		t.Errorf("expected the default rule to return the input, got: %v", out)
	}

	obj.Prepend(&Rule{Name: "first", Pattern: Any, Handler: rule("first")})
	if out, _ := obj.Walk(ast.S("x")); out.String() != `"first"` {
		t.Errorf("expected a prepended rule to win, got: %v", out)
	}

	out, err := obj.WalkList([]interfaces.Expr{ast.S("a"), ast.C(1)})
	if err != nil || len(out) != 2 {
		t.Errorf("unexpected list walk: %v, %+v", out, err)
	}
	if out, _ := obj.WalkList(nil); out != nil {
		t.Errorf("expected a nil list to stay nil")
	}
}

func TestEvaluator0(t *testing.T) {
	x, y, f, lst := ast.S("x"), ast.S("y"), ast.S("f"), ast.S("lst")
	list := ast.C([]int64{4, 5, 6})

	testCases := []struct {
		name   string
		expr   interfaces.Expr
		result string
	}{
		{"constant", ast.C(1), "1"},
		{"symbol", x, "2"},
		{"function", ast.Call(add(), ast.C(1), ast.C(2)), "3"},
		{"function of symbols", ast.Call(add(), x, y), "5"},
		{"nested function", ast.Call(add(), ast.Call(add(), x, x), y), "7"},
		{"operators", ast.And(ast.True, ast.Not(ast.False)), "true"},
		{"projection", &ast.Projection{Collection: ast.Tuple(1, "a"), Item: ast.C(1)}, `"a"`},
		{"list projection", &ast.Projection{Collection: lst, Item: ast.C(2)}, "6"},
		{"projection of symbols", &ast.Projection{Collection: ast.Tuple(7, 8), Item: ast.Call(add(), x, ast.C(-1))}, "8"},
		{"lambda", ast.Call(f, ast.C(1)), "3"},
		{"lambda literal", ast.Call(&ast.Lambda{Args: []interfaces.Expr{y}, Body: ast.Call(add(), y, y)}, ast.C(4)), "8"},
		{"unapplied", &ast.FunctionApplication{Functor: add()}, "add(...)"},
	}

	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			obj := newEvaluator(t, false)
			obj.Table.Set("x", ast.C(2))
			obj.Table.Set("y", ast.C(3))
			obj.Table.Set("lst", list)
			obj.Table.Set("f", &ast.Lambda{Args: []interfaces.Expr{x}, Body: ast.Call(add(), x, ast.C(2))})

			out, err := obj.Walk(tc.expr)
			if err != nil {
				t.Errorf("test #%d: walk failed: %+v", index, err)
				return
			}
			if s := out.String(); s != tc.result {
				t.Errorf("test #%d: got: %s, expected: %s", index, s, tc.result)
				t.Logf("test #%d: output: %s", index, spew.Sdump(out))
			}
		})
	}
}

func TestEvaluatorErrors0(t *testing.T) {
	testCases := []struct {
		name string
		expr interfaces.Expr
		err  error
	}{
		{"unbound", ast.S("nope"), interfaces.ErrUnboundSymbol},
		{"unbound arg", ast.Call(add(), ast.S("nope"), ast.C(1)), interfaces.ErrUnboundSymbol},
		{"constant functor", ast.Call(ast.C(1), ast.C(2)), interfaces.ErrNotCallable},
		{"bound functor", ast.Call(ast.S("s"), ast.C(2)), interfaces.ErrNotCallable},
		{"bad index", &ast.Projection{Collection: ast.Tuple(1, 2), Item: ast.C(5)}, interfaces.ErrTypeMismatch},
		{"bad index type", &ast.Projection{Collection: ast.Tuple(1, 2), Item: ast.C("a")}, interfaces.ErrTypeMismatch},
		{"not indexable", &ast.Projection{Collection: ast.C(1), Item: ast.C(0)}, interfaces.ErrTypeMismatch},
		{"lambda arity", ast.Call(&ast.Lambda{Args: []interfaces.Expr{ast.S("a")}, Body: ast.S("a")}, ast.C(1), ast.C(2)), interfaces.ErrArityMismatch},
		{"statement", &ast.Statement{Symbol: ast.S("s"), Value: ast.C(1)}, interfaces.ErrTypeMismatch},
	}

	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			obj := newEvaluator(t, false)
			obj.Table.Set("s", ast.C("a"))
			obj.Table = obj.Table.CreateScope()

			out, err := obj.Walk(tc.expr)
			if !errors.Is(err, tc.err) {
				t.Errorf("test #%d: expected error %v, got: %+v (%v)", index, tc.err, err, out)
			}
		})
	}
}

func TestEvaluatorSimplify0(t *testing.T) {
	obj := newEvaluator(t, true)
	obj.Table.Set("x", ast.C(1))

	expr := ast.Call(add(), ast.S("x"), ast.S("y"))
	out, err := obj.Walk(expr)
	if err != nil {
		t.Errorf("walk failed: %+v", err)
		return
	}
	if s := out.String(); s != "add(1, y)" {
		t.Errorf("unexpected simplification: %s", s)
	}

	// once y is known the rest evaluates
	obj.Table.Set("y", ast.C(2))
	if out, err = obj.Walk(out); err != nil || out.String() != "3" {
		t.Errorf("unexpected evaluation: %v, %+v", out, err)
	}

	// declared but unset symbols stay as they are
	obj.Table.Set("z", nil)
	if out, err := obj.Walk(ast.S("z")); err != nil || out.String() != "z" {
		t.Errorf("unexpected declared symbol: %v, %+v", out, err)
	}
}

func TestEvaluatorStatement0(t *testing.T) {
	obj := newEvaluator(t, false)
	x, y, q := ast.S("x"), ast.S("y"), ast.S("q")

	block := ast.Block(
		&ast.Statement{Symbol: x, Value: ast.C(1)},
		&ast.Statement{Symbol: y, Value: ast.Call(add(), x, ast.C(2))},
		&ast.Statement{T: types.TypeFloat, Symbol: ast.S("f"), Value: ast.C(4)},
		ast.NewQuery(q, ast.S("y")),
	)
	if _, err := obj.Walk(block); err != nil {
		t.Errorf("walk failed: %+v", err)
		return
	}

	expected := map[string]string{
		"x": "1",
		"y": "3",
		"f": "4",
		"q": "3",
	}
	for name, value := range expected {
		expr, exists := obj.Table.Lookup(name)
		if !exists {
			t.Errorf("expected `%s` to be bound", name)
			continue
		}
		if s := expr.String(); s != value {
			t.Errorf("unexpected value for `%s`: %s", name, s)
		}
	}

	// a declared type wins over the type of the value
	f, _ := obj.Table.Lookup("f")
	if s := f.Type().String(); s != "float" {
		t.Errorf("expected a float, got: %s", s)
	}
	if s := block.Exprs[0].Type().String(); s != "?" {
		t.Errorf("expected the input statement to be untouched, got: %s", s)
	}

	// a query whose body does not reduce to a constant is bound as is
	obj.Simplify = true
	query := ast.NewQuery(ast.S("r"), ast.S("unknown"))
	if _, err := obj.Walk(query); err != nil {
		t.Errorf("walk failed: %+v", err)
	}
	if r, _ := obj.Table.Lookup("r"); r != query {
		t.Errorf("expected the query to be bound, got: %v", r)
	}
}

// TestEvaluatorIdempotent0 walks expressions twice, and checks that the second
// walk of the normal form changes nothing.
func TestEvaluatorIdempotent0(t *testing.T) {
	x, Q := ast.S("x"), ast.S("Q")
	exprs := []interfaces.Expr{
		ast.C(1),
		ast.Set(1, 2, 3),
		x,
		ast.Call(add(), x, ast.C(2)),
		ast.And(ast.True, ast.False),
		&ast.Projection{Collection: ast.Tuple(1, 2), Item: x},
		&ast.Lambda{Args: []interfaces.Expr{x}, Body: x},
		Q.Call(ast.C(1)),
		ast.Call(ast.Call(add(), ast.C(1), ast.C(1)), ast.C(1)),
		&ast.Implication{Head: Q.Call(x), Body: Q.Call(x)},
	}

	for index, expr := range exprs {
		obj := newEvaluator(t, true)
		obj.Table.Set("x", ast.C(1))

		once, err := obj.Walk(expr)
		if err != nil {
			// a few of these are proven not callable on the first walk
			if !errors.Is(err, interfaces.ErrNotCallable) {
				t.Errorf("test #%d: walk failed: %+v", index, err)
			}
			continue
		}
		twice, err := obj.Walk(once)
		if err != nil {
			t.Errorf("test #%d: second walk failed: %+v", index, err)
			continue
		}
		if err := twice.Cmp(once); err != nil {
			t.Errorf("test #%d: walk is not idempotent: %s != %s", index, once, twice)
		}

		// same input and same table, same output
		other := newEvaluator(t, true)
		other.Table.Set("x", ast.C(1))
		again, err := other.Walk(expr)
		if err != nil || again.Cmp(once) != nil {
			t.Errorf("test #%d: walk is not deterministic: %s != %s", index, once, again)
		}
	}
}

func TestEvaluatorLogging0(t *testing.T) {
	logs := []string{}
	obj := &Evaluator{}
	obj.Init(&interfaces.Data{
		Debug: true,
		Logf: func(format string, v ...interface{}) {
			logs = append(logs, fmt.Sprintf(format, v...))
		},
	})
	obj.Table.Set("x", ast.C(1))
	if _, err := obj.Walk(ast.S("x")); err != nil {
		t.Errorf("walk failed: %+v", err)
	}
	if diff := pretty.Compare(logs, []string{"walking: x", "rule: symbol"}); diff != "" {
		t.Errorf("unexpected logs, diff: (-got +want)\n%s", diff)
	}
}

func TestReplace0(t *testing.T) {
	Q, R, x, y, z := ast.S("Q"), ast.S("R"), ast.S("x"), ast.S("y"), ast.S("z")
	subst := map[string]interfaces.Expr{
		"x": ast.C(1),
		"y": ast.C(2),
	}

	testCases := []struct {
		name   string
		expr   interfaces.Expr
		result string
	}{
		{"symbol", x, "1"},
		{"untouched", z, "z"},
		{"atom", Q.Call(x, y, z), "Q(1, 2, z)"},
		{"conjunction", ast.And(Q.Call(x), R.Call(y, z)), "(Q(1) & R(2, z))"},
		{"existential", &ast.ExistentialPredicate{Head: y, Body: R.Call(x, y)}, "exists(y; R(1, y))"},
		{"universal", &ast.UniversalPredicate{Head: x, Body: R.Call(x, y)}, "forall(x; R(x, 2))"},
		{"lambda", &ast.Lambda{Args: []interfaces.Expr{x}, Body: R.Call(x, y)}, "lambda(x): R(x, 2)"},
		{"rule", &ast.Implication{Head: Q.Call(x), Body: R.Call(x, z)}, "Q(1) :- R(1, z)"},
		{"query", ast.NewQuery(x, R.Call(x, y)), "?x :- R(x, 2)"},
		{"block", ast.Block(&ast.Fact{Head: Q.Call(x)}, &ast.Statement{Symbol: z, Value: y}), "{Q(1).; z := 2}"},
		{"projection", &ast.Projection{Collection: z, Item: x}, "z[1]"},
	}

	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			out, err := Replace(tc.expr, subst, nil)
			if err != nil {
				t.Errorf("test #%d: replace failed: %+v", index, err)
				return
			}
			if s := out.String(); s != tc.result {
				t.Errorf("test #%d: got: %s, expected: %s", index, s, tc.result)
			}
		})
	}

	// nothing to replace returns the very same node
	expr := Q.Call(z)
	if out, _ := Replace(expr, subst, nil); out != expr {
		t.Errorf("expected an unchanged expression to be returned as is")
	}

	// the symbol's declared type is kept
	typed := &ast.Symbol{Name: "x", T: types.TypeFloat}
	out, err := Replace(typed, subst, nil)
	if err != nil || out.Type().String() != "float" {
		t.Errorf("expected a float constant, got: %v, %+v", out, err)
	}
}
