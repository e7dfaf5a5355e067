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

package datalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"

	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/pretty"
)

func newSolver(t *testing.T) *Solver {
	obj := &Solver{}
	if err := obj.Init(&interfaces.Data{
		Debug: testing.Verbose(),
		Logf: func(format string, v ...interface{}) {
			t.Logf("datalog: "+format, v...)
		},
	}); err != nil {
		t.Fatalf("could not init: %+v", err)
	}
	return obj
}

func fact(head *ast.FunctionApplication) *ast.Fact { return &ast.Fact{Head: head} }

func st(head, body interfaces.Expr) *ast.Statement {
	return &ast.Statement{Symbol: head, Value: body}
}

func imp(head, body interfaces.Expr) *ast.Implication {
	return &ast.Implication{Head: head, Body: body}
}

// walkBool walks the expression and returns the bool it evaluates to.
func walkBool(t *testing.T, obj *Solver, expr interfaces.Expr) bool {
	t.Helper()
	out, err := obj.Walk(expr)
	if err != nil {
		t.Fatalf("walk of %s failed: %+v", expr, err)
	}
	b, err := truth(out)
	if err != nil {
		t.Fatalf("walk of %s gave %s: %+v", expr, out, err)
	}
	return b
}

func walkAll(t *testing.T, obj *Solver, exprs ...interfaces.Expr) {
	t.Helper()
	if _, err := obj.Walk(ast.Block(exprs...)); err != nil {
		t.Fatalf("walk failed: %+v", err)
	}
}

// edges is the extensional database that most tests use.
func edges() []interfaces.Expr {
	Q := ast.S("Q")
	return []interfaces.Expr{
		fact(Q.Call(ast.C(1), ast.C(1))),
		fact(Q.Call(ast.C(1), ast.C(2))),
		fact(Q.Call(ast.C(1), ast.C(4))),
		fact(Q.Call(ast.C(2), ast.C(4))),
	}
}

func TestFactsConstants0(t *testing.T) {
	obj := newSolver(t)
	Q := ast.S("Q")

	walkAll(t, obj, fact(Q.Call(ast.C(1), ast.C(2))))

	expr, exists := obj.Table.Lookup("Q")
	if !exists {
		t.Fatalf("predicate was not bound")
	}
	block, ok := expr.(*ast.ExpressionBlock)
	if !ok {
		t.Fatalf("predicate is bound to a %T", expr)
	}
	c, ok := block.Exprs[0].(*ast.Constant)
	if !ok || c.Type().Kind != types.KindSet {
		t.Fatalf("facts are not a set constant: %s", block.Exprs[0])
	}
	if err := c.V.Cmp(ast.Set(ast.Tuple(1, 2)).V); err != nil {
		t.Errorf("unexpected facts: %s", c)
	}

	walkAll(t, obj, fact(Q.Call(ast.C(3), ast.C(4))))
	if err := obj.facts("Q").V.Cmp(ast.Set(ast.Tuple(1, 2), ast.Tuple(3, 4)).V); err != nil {
		t.Errorf("unexpected facts: %s", obj.facts("Q"))
	}
	// the first set is not modified
	if c.V.(*types.SetValue).Len() != 1 {
		t.Errorf("facts were modified in place: %s", c)
	}

	if !walkBool(t, obj, Q.Call(ast.C(1), ast.C(2))) {
		t.Errorf("expected Q(1, 2) to hold")
	}
	if walkBool(t, obj, Q.Call(ast.C(18), ast.C(23))) {
		t.Errorf("expected Q(18, 23) not to hold")
	}
}

func TestFactsBoundSymbols0(t *testing.T) {
	obj := newSolver(t)
	Q, a := ast.S("Q"), ast.S("a")

	walkAll(t, obj,
		st(a, ast.C(7)),
		fact(Q.Call(a, ast.C(8))),
	)
	if !walkBool(t, obj, Q.Call(ast.C(7), ast.C(8))) {
		t.Errorf("expected Q(7, 8) to hold")
	}
	// an open atom whose variables are bound evaluates too
	if !walkBool(t, obj, Q.Call(a, ast.C(8))) {
		t.Errorf("expected Q(a, 8) to hold")
	}
}

func TestAtomsVariables0(t *testing.T) {
	obj := newSolver(t)
	eq, x, y, Q := ast.S(EqualsName), ast.S("x"), ast.S("y"), ast.S("Q")

	walkAll(t, obj, st(Q.Call(x), eq.Call(x, x)))

	rules := obj.definition("Q")
	if len(rules) != 1 {
		t.Fatalf("expected one rule, got: %d", len(rules))
	}
	if n := len(rules[0].Head.(*ast.FunctionApplication).Args); n != 1 {
		t.Errorf("expected a head of arity 1, got: %d", n)
	}
	if err := rules[0].Body.Cmp(eq.Call(x, x)); err != nil {
		t.Errorf("unexpected body: %s", rules[0].Body)
	}

	walkAll(t, obj, st(Q.Call(x, y), eq.Call(x, y)))

	rules = obj.definition("Q")
	last := rules[len(rules)-1]
	if n := len(last.Head.(*ast.FunctionApplication).Args); n != 2 {
		t.Errorf("expected a head of arity 2, got: %d", n)
	}
	if err := last.Body.Cmp(eq.Call(x, y)); err != nil {
		t.Errorf("unexpected body: %s", last.Body)
	}

	if _, err := obj.Walk(st(Q.Call(x), nil)); !errors.Is(err, interfaces.ErrNonConjunctiveBody) {
		t.Errorf("expected an error for a missing body, got: %+v", err)
	}

	if !walkBool(t, obj, Q.Call(ast.C(10))) {
		t.Errorf("expected Q(10) to hold")
	}
	if walkBool(t, obj, Q.Call(ast.C(1), ast.C(5))) {
		t.Errorf("expected Q(1, 5) not to hold")
	}
	if !walkBool(t, obj, Q.Call(ast.C(1), ast.C(1))) {
		t.Errorf("expected Q(1, 1) to hold")
	}
}

func TestFactsIntensional0(t *testing.T) {
	obj := newSolver(t)
	Q, R, T, U := ast.S("Q"), ast.S("R"), ast.S("T"), ast.S("U")
	x, y, z := ast.S("x"), ast.S("y"), ast.S("z")

	walkAll(t, obj, edges()...)
	walkAll(t, obj,
		st(R.Call(x, y, z), ast.And(Q.Call(x, y), Q.Call(y, z))),
		st(T.Call(x, z), &ast.ExistentialPredicate{Head: y, Body: ast.And(Q.Call(x, y), Q.Call(y, z))}),
		st(U.Call(x), &ast.UniversalPredicate{Head: y, Body: Q.Call(x, y)}),
	)

	testCases := []struct {
		name string
		expr interfaces.Expr
		want bool
	}{
		{"join", R.Call(ast.C(1), ast.C(2), ast.C(4)), true},
		{"no join", R.Call(ast.C(1), ast.C(2), ast.C(5)), false},
		{"existential", T.Call(ast.C(1), ast.C(4)), true},
		{"no existential", T.Call(ast.C(2), ast.C(1)), false},
		{"other arity", R.Call(ast.C(1), ast.C(5)), false},
		{"universal", U.Call(ast.C(1)), true},
		{"no universal", U.Call(ast.C(2)), false},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			if got := walkBool(t, obj, tc.expr); got != tc.want {
				t.Errorf("test #%d: expected %s to be %t", index, tc.expr, tc.want)
			}
		})
	}

	_, err := obj.Walk(st(Q.Call(x, y), Q.Call(x)))
	if !errors.Is(err, interfaces.ErrArityMismatch) {
		t.Errorf("expected an arity error, got: %+v", err)
	}
}

func TestRecursion0(t *testing.T) {
	obj := newSolver(t)
	Q, T := ast.S("Q"), ast.S("T")
	x, y, z := ast.S("x"), ast.S("y"), ast.S("z")

	walkAll(t, obj,
		fact(Q.Call(ast.C(1), ast.C(2))),
		fact(Q.Call(ast.C(2), ast.C(3))),
		fact(Q.Call(ast.C(3), ast.C(1))),
		imp(T.Call(x, y), Q.Call(x, y)),
		imp(T.Call(x, y), ast.And(Q.Call(x, z), T.Call(z, y))),
		fact(Q.Call(ast.C(5), ast.C(5))),
	)

	if !walkBool(t, obj, T.Call(ast.C(1), ast.C(1))) {
		t.Errorf("expected the cycle to be closed")
	}
	if walkBool(t, obj, T.Call(ast.C(1), ast.C(5))) {
		t.Errorf("expected 5 to be unreachable")
	}
	if !walkBool(t, obj, T.Call(ast.C(5), ast.C(5))) {
		t.Errorf("expected the loop on 5")
	}

	out, err := obj.Walk(ast.NewQuery(x, T.Call(x, ast.C(3))))
	if err != nil {
		t.Fatalf("query failed: %+v", err)
	}
	if err := out.(*ast.Constant).V.Cmp(ast.Set(1, 2, 3).V); err != nil {
		t.Errorf("unexpected answer: %s", out)
	}
}

func TestQuery0(t *testing.T) {
	obj := newSolver(t)
	Q, R, T := ast.S("Q"), ast.S("R"), ast.S("T")
	x, y, z := ast.S("x"), ast.S("y"), ast.S("z")

	walkAll(t, obj, edges()...)
	walkAll(t, obj,
		st(R.Call(x, y, z), ast.And(Q.Call(x, y), Q.Call(y, z))),
		st(T.Call(x, z), ast.And(Q.Call(x, y), Q.Call(y, z))),
	)

	query := ast.NewTupleQuery(T.Call(x, y), x, y)
	out, err := obj.Walk(query)
	if err != nil {
		t.Fatalf("query failed: %+v", err)
	}
	want := ast.Set(ast.Tuple(1, 1), ast.Tuple(1, 2), ast.Tuple(1, 4))
	if err := out.Cmp(want); err != nil {
		t.Errorf("unexpected answer: %s", out)
		t.Logf("got: %s", spew.Sdump(out))
	}

	// the answer is bound under the name of the query
	bound, exists := obj.Table.Lookup(query.Name())
	if !exists || bound.Cmp(want) != nil {
		t.Errorf("answer was not bound: %v", bound)
	}

	// walking the answer again changes nothing
	again, err := obj.Walk(out)
	if err != nil || again.Cmp(out) != nil {
		t.Errorf("answer is not in normal form: %v, %+v", again, err)
	}
}

func TestExtensionalDatabase0(t *testing.T) {
	obj := newSolver(t)
	Q, R, T := ast.S("Q"), ast.S("R"), ast.S("T")
	x, y, z := ast.S("x"), ast.S("y"), ast.S("z")

	walkAll(t, obj, append(edges(), fact(R.Call(ast.C("a"), ast.C(1), ast.C(3))))...)

	check := func() {
		t.Helper()
		edb := obj.ExtensionalDatabase()
		if diff := pretty.Compare(edb.Predicates(), []string{"Q", "R"}); diff != "" {
			t.Errorf("diff: (-got +want)\n%s", diff)
		}
		want := NewInstance(map[string]*types.SetValue{
			"Q": ast.Set(ast.Tuple(1, 1), ast.Tuple(1, 2), ast.Tuple(1, 4), ast.Tuple(2, 4)).V.(*types.SetValue),
			"R": ast.Set(ast.Tuple("a", 1, 3)).V.(*types.SetValue),
		})
		if err := edb.Cmp(want); err != nil {
			t.Errorf("unexpected database: %+v", err)
		}
	}
	check()

	// R is both extensional and intensional
	walkAll(t, obj,
		st(R.Call(x, y, z), ast.And(Q.Call(x, y), Q.Call(y, z))),
		st(T.Call(x, z), ast.And(Q.Call(x, y), Q.Call(y, z))),
	)
	check()
	if n := len(obj.Rules()); n != 2 {
		t.Errorf("expected two rules, got: %d", n)
	}

	testCases := []struct {
		name string
		expr interfaces.Expr
		want bool
	}{
		{"fact", R.Call(ast.C("a"), ast.C(1), ast.C(3)), true},
		{"derived", R.Call(ast.C(1), ast.C(2), ast.C(4)), true},
		{"neither", R.Call(ast.C(2), ast.C(4), ast.C(1)), false},
		{"sibling rule", T.Call(ast.C(1), ast.C(4)), true},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			if got := walkBool(t, obj, tc.expr); got != tc.want {
				t.Errorf("test #%d: expected %s to be %t", index, tc.expr, tc.want)
			}
		})
	}

	// the derived tuples are added to the extent of the facts
	got, err := obj.Solution()
	if err != nil {
		t.Fatalf("solution failed: %+v", err)
	}
	want := ast.Set(ast.Tuple("a", 1, 3), ast.Tuple(1, 1, 1), ast.Tuple(1, 1, 2), ast.Tuple(1, 1, 4), ast.Tuple(1, 2, 4)).V
	if err := got.Tuples("R").Cmp(want); err != nil {
		t.Errorf("unexpected extent: %s", got.Tuples("R"))
	}
	check()

	// facts that come after the rules keep them
	walkAll(t, obj, fact(R.Call(ast.C(9), ast.C(9), ast.C(9))))
	if n := len(obj.definition("R")); n != 1 {
		t.Errorf("expected the rule of R to be kept, got: %d", n)
	}
	if !walkBool(t, obj, R.Call(ast.C(1), ast.C(1), ast.C(4))) {
		t.Errorf("expected R(1, 1, 4) to hold")
	}
}

func TestFactsDuplicate0(t *testing.T) {
	obj := newSolver(t)
	Q := ast.S("Q")

	walkAll(t, obj,
		fact(Q.Call(ast.C(1), ast.C(2))),
		fact(Q.Call(ast.C(1), ast.C(2))),
	)
	walkAll(t, obj, fact(Q.Call(ast.C(1), ast.C(2))))

	edb := obj.ExtensionalDatabase()
	if n := edb.Tuples("Q").Len(); n != 1 {
		t.Errorf("expected a single tuple, got: %s", edb)
	}
	if n := edb.Len(); n != 1 {
		t.Errorf("expected a single tuple in the database, got: %d", n)
	}
}

func TestConjunctive0(t *testing.T) {
	Q, R, x, y := ast.S("Q"), ast.S("R"), ast.S("x"), ast.S("y")

	testCases := []struct {
		name string
		expr interfaces.Expr
		want bool
	}{
		{"proposition", st(R.Call(x), Q.Call()), true},
		{"atom", st(R.Call(x), Q.Call(x)), true},
		{"conjunction", st(R.Call(x), ast.And(Q.Call(x), R.Call(y, ast.C(1)))), true},
		{"existential", imp(R.Call(x), &ast.ExistentialPredicate{Head: y, Body: Q.Call(x, y)}), true},
		{"disjunction", st(Q.Call(x, y), ast.Or(R.Call(x), R.Call(y))), false},
		{"nested disjunction", st(Q.Call(x, y), ast.Or(ast.And(R.Call(x), R.Call(y)), R.Call(x))), false},
		{"negation", st(Q.Call(x, y), ast.Not(R.Call(x))), false},
		{"nested atom", st(Q.Call(x, y), R.Call(Q.Call(x))), false},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			if got := IsConjunctiveExpression(tc.expr); got != tc.want {
				t.Errorf("test #%d: expected %t for %s", index, tc.want, tc.expr)
			}
		})
	}
}

func TestNotConjunctive0(t *testing.T) {
	Q, R, x, y := ast.S("Q"), ast.S("R"), ast.S("x"), ast.S("y")

	testCases := []struct {
		name string
		expr interfaces.Expr
	}{
		{"disjunction", st(Q.Call(x, y), ast.Or(R.Call(x), R.Call(y)))},
		{"nested disjunction", st(Q.Call(x, y), ast.Or(ast.And(R.Call(x), R.Call(y)), R.Call(x)))},
		{"negation", st(Q.Call(x, y), ast.Not(R.Call(x)))},
		{"nested atom", st(Q.Call(x, y), R.Call(Q.Call(x)))},
		{"nested head", imp(Q.Call(R.Call(x)), R.Call(x))},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			obj := newSolver(t)
			if _, err := obj.Walk(tc.expr); !errors.Is(err, interfaces.ErrNonConjunctiveBody) {
				t.Errorf("test #%d: expected an error, got: %+v", index, err)
			}
			if n := len(obj.Rules()); n != 0 {
				t.Errorf("test #%d: rule was added", index)
			}
		})
	}
}

func TestExtractFreeVariables0(t *testing.T) {
	Q, R, x, y := ast.S("Q"), ast.S("R"), ast.S("x"), ast.S("y")

	testCases := []struct {
		name string
		expr interfaces.Expr
		want []string
	}{
		{"symbol", Q, []string{}},
		{"atom", Q.Call(x, y), []string{"x", "y"}},
		{"constant", Q.Call(x, ast.C(1)), []string{"x"}},
		{"conjunction", ast.And(Q.Call(x), R.Call(y)), []string{"x", "y"}},
		{"existential", &ast.ExistentialPredicate{Head: x, Body: Q.Call(x, y)}, []string{"y"}},
		{"rule", st(R.Call(x), Q.Call(x, y)), []string{"y"}},
		{"rule conjunction", st(R.Call(x), ast.And(Q.Call(y), Q.Call(x))), []string{"y"}},
		{"duplicates", ast.And(Q.Call(y, x), R.Call(x, y)), []string{"x", "y"}},
		{"query", ast.NewQuery(x, Q.Call(x, y)), []string{"y"}},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			got, err := ExtractFreeVariables(tc.expr)
			if err != nil {
				t.Errorf("test #%d: failed: %+v", index, err)
				return
			}
			if diff := pretty.Compare(got, tc.want); diff != "" {
				t.Errorf("test #%d: diff: (-got +want)\n%s", index, diff)
			}
		})
	}

	for _, expr := range []interfaces.Expr{
		ast.Or(Q.Call(x), R.Call(y)),
		Q.Call(R.Call(y)),
		ast.Not(R.Call(y)),
	} {
		if _, err := ExtractFreeVariables(expr); !errors.Is(err, interfaces.ErrFreeVariable) {
			t.Errorf("expected an error for %s, got: %+v", expr, err)
		}
	}
}

func TestEquality0(t *testing.T) {
	obj := newSolver(t)
	eq := ast.S(EqualsName)

	if !walkBool(t, obj, eq.Call(ast.C(1), ast.C(1))) {
		t.Errorf("expected 1 to equal 1")
	}
	if walkBool(t, obj, eq.Call(ast.C(1), ast.C(2))) {
		t.Errorf("expected 1 not to equal 2")
	}
	if walkBool(t, obj, eq.Call(ast.C(1), ast.C(1.0))) {
		t.Errorf("expected an int not to equal a float")
	}
}

func TestSolverErrors0(t *testing.T) {
	Q, R, x, y := ast.S("Q"), ast.S("R"), ast.S("x"), ast.S("y")

	testCases := []struct {
		name  string
		setup []interfaces.Expr
		expr  interfaces.Expr
		err   error
	}{
		{
			name:  "fact arity on a rule",
			setup: []interfaces.Expr{st(Q.Call(x), ast.S(EqualsName).Call(x, x))},
			expr:  fact(Q.Call(ast.C(1), ast.C(2))),
			err:   interfaces.ErrArityMismatch,
		},
		{
			name:  "rule arity on facts",
			setup: []interfaces.Expr{fact(Q.Call(ast.C(1), ast.C(2)))},
			expr:  st(Q.Call(x), ast.S(EqualsName).Call(x, x)),
			err:   interfaces.ErrArityMismatch,
		},
		{
			name:  "fact arity",
			setup: []interfaces.Expr{fact(Q.Call(ast.C(1), ast.C(2)))},
			expr:  fact(Q.Call(ast.C(1))),
			err:   interfaces.ErrArityMismatch,
		},
		{
			name:  "body arity",
			setup: []interfaces.Expr{fact(Q.Call(ast.C(1), ast.C(2)))},
			expr:  imp(R.Call(x), &ast.ExistentialPredicate{Head: y, Body: Q.Call(x)}),
			err:   interfaces.ErrArityMismatch,
		},
		{
			name: "non ground fact",
			expr: fact(Q.Call(x)),
			err:  interfaces.ErrFreeVariable,
		},
		{
			name: "builtin as a predicate",
			expr: imp(ast.S(EqualsName).Call(x), Q.Call(x)),
			err:  interfaces.ErrExtensionalRedefinition,
		},
		{
			name: "head is not an atom",
			expr: imp(x, Q.Call(x)),
			err:  interfaces.ErrNonConjunctiveBody,
		},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			obj := newSolver(t)
			if len(tc.setup) > 0 {
				walkAll(t, obj, tc.setup...)
			}
			edb := obj.ExtensionalDatabase()
			rules := len(obj.Rules())

			out, err := obj.Walk(tc.expr)
			if !errors.Is(err, tc.err) {
				t.Errorf("test #%d: expected error %v, got: %+v (%v)", index, tc.err, err, out)
			}
			if err := obj.ExtensionalDatabase().Cmp(edb); err != nil {
				t.Errorf("test #%d: database changed: %+v", index, err)
			}
			if n := len(obj.Rules()); n != rules {
				t.Errorf("test #%d: rules changed", index)
			}
		})
	}

	obj := newSolver(t)
	walkAll(t, obj, fact(Q.Call(ast.C(1))))
	if err := obj.AddBuiltin("Q", func(a int64) bool { return true }); !errors.Is(err, interfaces.ErrExtensionalRedefinition) {
		t.Errorf("expected a redefinition error, got: %+v", err)
	}
}

func TestSolution0(t *testing.T) {
	obj := newSolver(t)
	Q, T := ast.S("Q"), ast.S("T")
	x, y, z := ast.S("x"), ast.S("y"), ast.S("z")

	walkAll(t, obj,
		fact(Q.Call(ast.C(1), ast.C(2))),
		fact(Q.Call(ast.C(2), ast.C(3))),
		imp(T.Call(x, y), Q.Call(x, y)),
		imp(T.Call(x, y), ast.And(Q.Call(x, z), T.Call(z, y))),
	)

	got, err := obj.Solution()
	if err != nil {
		t.Fatalf("solution failed: %+v", err)
	}
	want := NewInstance(map[string]*types.SetValue{
		"Q": ast.Set(ast.Tuple(1, 2), ast.Tuple(2, 3)).V.(*types.SetValue),
		"T": ast.Set(ast.Tuple(1, 2), ast.Tuple(2, 3), ast.Tuple(1, 3)).V.(*types.SetValue),
	})
	if err := got.Cmp(want); err != nil {
		t.Errorf("unexpected solution: %+v", err)
		t.Logf("got: %s", got)
	}

	// every derived tuple also holds when it is evaluated on its own
	for _, v := range got.Tuples("T").Values() {
		args := []interfaces.Expr{}
		for _, val := range v.(*types.TupleValue).V {
			args = append(args, ast.C(val))
		}
		if !walkBool(t, obj, T.Call(args...)) {
			t.Errorf("expected T%s to hold", v)
		}
	}
}

func TestBuiltin0(t *testing.T) {
	obj := newSolver(t)
	Q, S, gt := ast.S("Q"), ast.S("S"), ast.S("gt")
	x, y := ast.S("x"), ast.S("y")

	if err := obj.AddBuiltin("gt", func(a, b int64) bool { return a > b }); err != nil {
		t.Fatalf("could not add builtin: %+v", err)
	}
	walkAll(t, obj,
		fact(Q.Call(ast.C(1), ast.C(2))),
		fact(Q.Call(ast.C(8), ast.C(6))),
		imp(S.Call(x, y), ast.And(Q.Call(x, y), gt.Call(x, y))),
	)

	if !walkBool(t, obj, S.Call(ast.C(8), ast.C(6))) {
		t.Errorf("expected S(8, 6) to hold")
	}
	if walkBool(t, obj, S.Call(ast.C(1), ast.C(2))) {
		t.Errorf("expected S(1, 2) not to hold")
	}
	if _, exists := obj.Builtins()["gt"]; !exists {
		t.Errorf("builtin is missing")
	}
	if _, exists := obj.Builtins()[EqualsName]; !exists {
		t.Errorf("equality builtin is missing")
	}
}
