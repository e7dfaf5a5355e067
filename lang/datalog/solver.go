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

// Package datalog contains a naive bottom-up datalog solver. It extends the
// basic evaluator with rules that assimilate facts and rules into the symbol
// table, evaluate ground atoms, quantifiers and queries.
package datalog

import (
	"fmt"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/lang/walker"
	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"
)

const (
	// EqualsName is the name of the equality builtin that every solver has.
	EqualsName = "equals"
)

// Solver is a datalog solver. Each predicate is bound in the symbol table to
// an expression block. The block starts with a constant holding the set of
// tuples if the predicate has facts, and the rules of the predicate follow in
// the order they were declared. A predicate may have both.
type Solver struct {
	*walker.Evaluator

	// extensional maps each predicate that has facts to the arity of its
	// tuples.
	extensional map[string]int

	// intensional is the set of predicates that have rules.
	intensional map[string]struct{}

	// rules are all of the rules in declaration order.
	rules []*ast.Implication

	builtins map[string]*ast.Constant

	// goals are the ground atoms that are currently being evaluated. It is
	// used to stop the evaluation of recursive rules from looping.
	goals map[string]struct{}
}

// Init must be called before the solver is used. An evaluator may be set in
// advance to choose the symbol table or the simplify mode.
func (obj *Solver) Init(data *interfaces.Data) error {
	if obj.Evaluator == nil {
		obj.Evaluator = &walker.Evaluator{}
	}
	if err := obj.Evaluator.Init(data); err != nil {
		return err
	}
	obj.extensional = make(map[string]int)
	obj.intensional = make(map[string]struct{})
	obj.rules = []*ast.Implication{}
	obj.builtins = make(map[string]*ast.Constant)
	obj.goals = make(map[string]struct{})

	obj.Prepend(
		&walker.Rule{
			Name:    "fact",
			Pattern: &ast.Fact{},
			Handler: obj.fact,
		},
		&walker.Rule{
			Name:    "rule",
			Pattern: &ast.Implication{},
			Handler: obj.implication,
		},
		&walker.Rule{
			Name:    "rule statement",
			Pattern: &ast.Statement{Symbol: &ast.FunctionApplication{Functor: &ast.Symbol{}}},
			Handler: obj.statement,
		},
		&walker.Rule{
			Name:    "ground atom",
			Pattern: &ast.FunctionApplication{Functor: &ast.Symbol{}},
			Guard: func(expr interfaces.Expr) bool {
				return obj.isPredicate(expr) && ground(expr.(*ast.FunctionApplication).Args)
			},
			Handler: obj.groundAtom,
		},
		&walker.Rule{
			Name:    "open atom",
			Pattern: &ast.FunctionApplication{Functor: &ast.Symbol{}},
			Guard:   obj.isPredicate,
			Handler: obj.openAtom,
		},
		&walker.Rule{
			Name:    "existential",
			Pattern: &ast.ExistentialPredicate{Head: &ast.Symbol{}},
			Guard:   closed,
			Handler: obj.existential,
		},
		&walker.Rule{
			Name:    "universal",
			Pattern: &ast.UniversalPredicate{Head: &ast.Symbol{}},
			Guard:   closed,
			Handler: obj.universal,
		},
		&walker.Rule{
			Name:    "query",
			Pattern: &ast.Query{},
			Guard:   func(expr interfaces.Expr) bool { return expr.(*ast.Query).Body != nil },
			Handler: obj.query,
		},
	)

	return obj.AddBuiltin(EqualsName, func(a, b types.Value) bool {
		return a.Cmp(b) == nil
	})
}

// AddBuiltin makes a golang function available to rule bodies under the name.
// The function must return a bool to be used as a predicate.
func (obj *Solver) AddBuiltin(name string, fn interface{}) error {
	if obj.isDefined(name) {
		return errwrap.Wrapf(interfaces.ErrExtensionalRedefinition, "builtin `%s` is a predicate", name)
	}
	c, err := ast.NewFuncConstant(name, fn)
	if err != nil {
		return errwrap.Wrapf(err, "invalid builtin `%s`", name)
	}
	if err := obj.Table.Set(name, c); err != nil {
		return err
	}
	obj.builtins[name] = c
	return nil
}

// Builtins returns the builtins by name.
func (obj *Solver) Builtins() map[string]*ast.Constant {
	out := make(map[string]*ast.Constant)
	for k, v := range obj.builtins {
		out[k] = v
	}
	return out
}

// Rules returns the rules of the intensional predicates in declaration order.
func (obj *Solver) Rules() []*ast.Implication {
	return append([]*ast.Implication{}, obj.rules...)
}

// ExtensionalDatabase returns the tuples of every extensional predicate.
func (obj *Solver) ExtensionalDatabase() Instance {
	out := make(Instance)
	for name := range obj.extensional {
		out[name] = obj.facts(name)
	}
	return out
}

// Constants returns the values of the constants used in the rules. Together
// with the values of the extensional database they form the active domain.
func (obj *Solver) Constants() []types.Value {
	values := []types.Value{}
	for _, rule := range obj.rules {
		values = append(values, Constants(rule)...)
	}
	return values
}

// Domain returns the active domain of the program.
func (obj *Solver) Domain() []types.Value {
	return ActiveDomain(obj.ExtensionalDatabase(), obj.Constants()...)
}

// Solution computes the least fixpoint of the program with a naive iteration
// of all of the rules. It returns the complete instance.
func (obj *Solver) Solution() (Instance, error) {
	instance := obj.ExtensionalDatabase()
	constants := obj.Constants()
	for {
		grown := false
		for _, rule := range obj.rules {
			name, derived, err := Derive(instance, rule, obj.builtins, constants...)
			if err != nil {
				return nil, err
			}
			if derived.IsSubset(instance.Tuples(name)) {
				continue
			}
			instance = instance.Merge(Instance{name: setConstant(derived)})
			grown = true
		}
		if !grown {
			return instance, nil
		}
	}
}

// Derive applies the rule once to the instance, and returns the name of the
// predicate in its head together with every tuple the rule derives. Variables
// of the head that the body does not bind range over the active domain.
func Derive(instance Instance, rule *ast.Implication, builtins map[string]*ast.Constant, domain ...types.Value) (string, *types.SetValue, error) {
	head, name, err := headAtom(rule.Head)
	if err != nil {
		return "", nil, err
	}
	vars := util.StrRemoveDuplicatesInList(variables(head.Args))
	bindings, err := Join(instance, rule.Body, builtins, vars, append(domain, Constants(head)...)...)
	if err != nil {
		return "", nil, errwrap.Wrapf(err, "can't apply rule %s", rule)
	}
	set, err := Project(head.Args, bindings)
	if err != nil {
		return "", nil, err
	}
	return name, set, nil
}

// headAtom returns the head of a rule as an atom over a predicate symbol.
func headAtom(expr interfaces.Expr) (*ast.FunctionApplication, string, error) {
	atom, ok := expr.(*ast.FunctionApplication)
	if !ok || atom.Args == nil {
		return nil, "", errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "rule head %v is not an atom", expr)
	}
	s, ok := atom.Functor.(*ast.Symbol)
	if !ok {
		return nil, "", errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "rule head %s is not a predicate", expr)
	}
	return atom, s.Name, nil
}

// facts returns the constant holding the tuples of an extensional predicate.
func (obj *Solver) facts(name string) *ast.Constant {
	expr, _ := obj.Table.Lookup(name)
	if block, ok := expr.(*ast.ExpressionBlock); ok && len(block.Exprs) > 0 {
		if c, ok := block.Exprs[0].(*ast.Constant); ok {
			return c
		}
	}
	return setConstant(types.NewSet())
}

// definition returns the rules of an intensional predicate.
func (obj *Solver) definition(name string) []*ast.Implication {
	rules := []*ast.Implication{}
	expr, _ := obj.Table.Lookup(name)
	if block, ok := expr.(*ast.ExpressionBlock); ok {
		for _, x := range block.Exprs {
			if imp, ok := x.(*ast.Implication); ok {
				rules = append(rules, imp)
			}
		}
	}
	return rules
}

// store binds the predicate to its facts followed by its rules. The facts may
// be nil.
func (obj *Solver) store(name string, facts *ast.Constant, rules []*ast.Implication) error {
	exprs := []interfaces.Expr{}
	if facts != nil {
		exprs = append(exprs, facts)
	}
	for _, x := range rules {
		exprs = append(exprs, x)
	}
	return obj.Table.Set(name, ast.Block(exprs...))
}

// isDefined returns true if the name is a predicate.
func (obj *Solver) isDefined(name string) bool {
	if _, exists := obj.extensional[name]; exists {
		return true
	}
	_, exists := obj.intensional[name]
	return exists
}

// isPredicate returns true if the expression is an atom over a predicate.
func (obj *Solver) isPredicate(expr interfaces.Expr) bool {
	fa := expr.(*ast.FunctionApplication)
	s, ok := fa.Functor.(*ast.Symbol)
	return ok && fa.Args != nil && obj.isDefined(s.Name)
}

// ground returns true if every arg is a constant.
func ground(args []interfaces.Expr) bool {
	for _, x := range args {
		if _, ok := x.(*ast.Constant); !ok {
			return false
		}
	}
	return true
}

// closed returns true if the quantifier binds every variable of its body.
func closed(expr interfaces.Expr) bool {
	free, err := ExtractFreeVariables(expr)
	return err == nil && len(free) == 0
}

func boolConstant(b bool) *ast.Constant {
	if b {
		return ast.True
	}
	return ast.False
}

func (obj *Solver) fact(expr interfaces.Expr) (interfaces.Expr, error) {
	f := expr.(*ast.Fact)
	head, name, err := headAtom(f.Head)
	if err != nil {
		return nil, err
	}
	for _, x := range head.Args {
		if s, ok := x.(*ast.Symbol); ok && !obj.Table.Contains(s.Name) {
			return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "fact %s is not ground", f)
		}
	}
	args, err := obj.WalkList(head.Args) // resolve bound symbols
	if err != nil {
		return nil, err
	}
	values := []types.Value{}
	for _, x := range args {
		c, ok := x.(*ast.Constant)
		if !ok {
			return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "fact %s is not ground", f)
		}
		values = append(values, c.V)
	}
	if err := obj.addFacts(name, types.NewTuple(values...)); err != nil {
		return nil, err
	}
	return expr, nil
}

// addFacts adds the tuples to the extent of the predicate. The rules of the
// predicate are kept. Nothing is changed if any of the tuples can't be added.
func (obj *Solver) addFacts(name string, tuples ...*types.TupleValue) error {
	arity, exists := obj.extensional[name]
	if !exists {
		if _, bound := obj.Table.Lookup(name); bound && !obj.isDefined(name) {
			return errwrap.Wrapf(interfaces.ErrExtensionalRedefinition, "`%s` is already bound", name)
		}
		if len(tuples) > 0 {
			arity = tuples[0].Len()
		}
		// the first facts of a predicate with rules take the arity of its heads
		for _, rule := range obj.definition(name) {
			if n := len(rule.Head.(*ast.FunctionApplication).Args); n != arity {
				return errwrap.Wrapf(interfaces.ErrArityMismatch, "predicate `%s` has rules of arity %d", name, n)
			}
		}
	}
	add := types.NewSet()
	for _, t := range tuples {
		if t.Len() != arity {
			return errwrap.Wrapf(interfaces.ErrArityMismatch, "predicate `%s` has arity %d, got %s", name, arity, t)
		}
		add.Add(t)
	}

	set := add
	if exists {
		set = obj.facts(name).V.(*types.SetValue).Union(add)
	}
	if err := obj.store(name, setConstant(set), obj.definition(name)); err != nil {
		return err
	}
	obj.extensional[name] = arity
	return nil
}

func (obj *Solver) implication(expr interfaces.Expr) (interfaces.Expr, error) {
	if err := obj.addRule(expr.(*ast.Implication)); err != nil {
		return nil, err
	}
	return expr, nil
}

func (obj *Solver) statement(expr interfaces.Expr) (interfaces.Expr, error) {
	st := expr.(*ast.Statement)
	imp := &ast.Implication{
		T:    st.T,
		Head: st.Symbol,
		Body: st.Value,
	}
	if err := obj.addRule(imp); err != nil {
		return nil, err
	}
	return expr, nil
}

// addRule validates the rule and appends it to the definition of its head
// predicate. Nothing is changed if the rule is invalid.
func (obj *Solver) addRule(imp *ast.Implication) error {
	head, name, err := headAtom(imp.Head)
	if err != nil {
		return err
	}
	if imp.Body == nil {
		return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "rule %s has no body", head)
	}
	if err := checkConjunctive(head); err != nil {
		return err
	}
	if err := CheckConjunctive(imp); err != nil {
		return err
	}
	if !obj.isDefined(name) {
		if _, bound := obj.Table.Lookup(name); bound {
			return errwrap.Wrapf(interfaces.ErrExtensionalRedefinition, "`%s` is already bound", name)
		}
	}
	if arity, exists := obj.extensional[name]; exists && arity != len(head.Args) {
		return errwrap.Wrapf(interfaces.ErrArityMismatch, "predicate `%s` has facts of arity %d, got %s", name, arity, head)
	}

	// the body must use the extensional predicates with their arity
	err = imp.Body.Apply(func(x interfaces.Expr) error {
		atom, ok := x.(*ast.FunctionApplication)
		if !ok {
			return nil
		}
		if _, isOp := ast.Operator(atom); isOp {
			return nil
		}
		s, ok := atom.Functor.(*ast.Symbol)
		if !ok {
			return nil
		}
		if arity, exists := obj.extensional[s.Name]; exists && arity != len(atom.Args) {
			return errwrap.Wrapf(interfaces.ErrArityMismatch, "predicate `%s` has arity %d, got %s", s.Name, arity, atom)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var facts *ast.Constant
	if _, exists := obj.extensional[name]; exists {
		facts = obj.facts(name)
	}
	if err := obj.store(name, facts, append(obj.definition(name), imp)); err != nil {
		return err
	}
	obj.intensional[name] = struct{}{}
	obj.rules = append(obj.rules, imp)
	if obj.Data.Debug {
		obj.Data.Logf("rule: %s", imp)
	}
	return nil
}

func (obj *Solver) groundAtom(expr interfaces.Expr) (interfaces.Expr, error) {
	fa := expr.(*ast.FunctionApplication)
	name := fa.Functor.(*ast.Symbol).Name
	values := []types.Value{}
	for _, x := range fa.Args {
		values = append(values, x.(*ast.Constant).V)
	}
	ok, err := obj.holds(name, values)
	if err != nil {
		return nil, err
	}
	return boolConstant(ok), nil
}

// holds evaluates a ground atom. It holds if its tuple is a fact, or if the
// body of any of the rules of the predicate holds once the head is unified with
// the args, with the remaining variables of the body quantified existentially.
// A goal that is already being evaluated further up is taken as false, which
// stops the recursion without losing any answer.
func (obj *Solver) holds(name string, values []types.Value) (bool, error) {
	tuple := types.NewTuple(values...)
	if _, exists := obj.extensional[name]; exists && obj.facts(name).V.(*types.SetValue).Contains(tuple) {
		return true, nil
	}
	if _, exists := obj.intensional[name]; !exists {
		return false, nil
	}

	goal := fmt.Sprintf("%s%s", name, tuple)
	if _, exists := obj.goals[goal]; exists {
		return false, nil
	}
	obj.goals[goal] = struct{}{}
	defer delete(obj.goals, goal)

	for _, rule := range obj.definition(name) {
		head := rule.Head.(*ast.FunctionApplication)
		if len(head.Args) != len(values) {
			continue
		}
		subst, ok := unifyHead(head.Args, values)
		if !ok {
			continue
		}
		body, err := walker.Replace(rule.Body, subst, obj.Data)
		if err != nil {
			return false, err
		}
		free, err := ExtractFreeVariables(body)
		if err != nil {
			return false, err
		}
		for i := len(free) - 1; i >= 0; i-- {
			body = &ast.ExistentialPredicate{Head: ast.S(free[i]), Body: body}
		}

		result, err := obj.Walk(body)
		if err != nil {
			return false, err
		}
		b, err := truth(result)
		if err != nil {
			return false, errwrap.Wrapf(err, "rule %s", rule)
		}
		if b {
			return true, nil
		}
	}
	return false, nil
}

// unifyHead matches the args of a rule head against the values. It returns the
// substitution of the head variables.
func unifyHead(args []interfaces.Expr, values []types.Value) (map[string]interfaces.Expr, bool) {
	binding, ok := unify(args, values, Binding{})
	if !ok {
		return nil, false
	}
	subst := make(map[string]interfaces.Expr)
	for name, v := range binding {
		c, err := ast.ValueToConstant(v)
		if err != nil {
			return nil, false
		}
		subst[name] = c
	}
	return subst, true
}

// truth returns the value of a boolean constant.
func truth(expr interfaces.Expr) (bool, error) {
	c, ok := expr.(*ast.Constant)
	if !ok {
		return false, errwrap.Wrapf(interfaces.ErrTypeMismatch, "%s did not evaluate to a constant", expr)
	}
	b, ok := c.V.(*types.BoolValue)
	if !ok {
		return false, errwrap.Wrapf(interfaces.ErrTypeMismatch, "%s is not a bool", c)
	}
	return b.V, nil
}

func (obj *Solver) openAtom(expr interfaces.Expr) (interfaces.Expr, error) {
	fa := expr.(*ast.FunctionApplication)
	args, err := obj.WalkList(fa.Args)
	if err != nil {
		return nil, err
	}
	for i := range args {
		if args[i].Cmp(fa.Args[i]) != nil {
			return obj.Walk(&ast.FunctionApplication{T: fa.T, Functor: fa.Functor, Args: args})
		}
	}
	return expr, nil
}

// quantify evaluates the body for each value of the active domain. It stops at
// the first value for which the body evaluates to stop, and returns whether it
// stopped.
func (obj *Solver) quantify(head, body interfaces.Expr, stop bool) (bool, error) {
	s := head.(*ast.Symbol)
	for _, v := range obj.Domain() {
		c, err := ast.ValueToConstant(v)
		if err != nil {
			return false, err
		}
		inner, err := walker.Replace(body, map[string]interfaces.Expr{s.Name: c}, obj.Data)
		if err != nil {
			return false, err
		}
		result, err := obj.Walk(inner)
		if err != nil {
			return false, err
		}
		b, err := truth(result)
		if err != nil {
			return false, err
		}
		if b == stop {
			return true, nil
		}
	}
	return false, nil
}

func (obj *Solver) existential(expr interfaces.Expr) (interfaces.Expr, error) {
	ep := expr.(*ast.ExistentialPredicate)
	found, err := obj.quantify(ep.Head, ep.Body, true)
	if err != nil {
		return nil, err
	}
	return boolConstant(found), nil
}

func (obj *Solver) universal(expr interfaces.Expr) (interfaces.Expr, error) {
	up := expr.(*ast.UniversalPredicate)
	counterexample, err := obj.quantify(up.Head, up.Body, false)
	if err != nil {
		return nil, err
	}
	return boolConstant(!counterexample), nil
}

// query answers the query against the least fixpoint of the program. The
// answer is a set of values for a single variable, and a set of tuples
// otherwise. It is bound in the symbol table under the name of the query.
func (obj *Solver) query(expr interfaces.Expr) (interfaces.Expr, error) {
	q := expr.(*ast.Query)
	if err := CheckConjunctive(q.Body); err != nil {
		return nil, err
	}
	instance, err := obj.Solution()
	if err != nil {
		return nil, err
	}

	vars := []string{}
	args := []interfaces.Expr{}
	for _, s := range q.Head {
		vars = append(vars, s.Name)
		args = append(args, s)
	}
	bindings, err := Join(instance, q.Body, obj.builtins, vars, obj.Constants()...)
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't answer query %s", q)
	}

	answer := types.NewSet()
	if q.Tuple || len(q.Head) != 1 {
		if answer, err = Project(args, bindings); err != nil {
			return nil, err
		}
	} else {
		for _, b := range bindings {
			answer.Add(b[vars[0]])
		}
	}

	result := setConstant(answer)
	if err := obj.Table.Set(q.Name(), result); err != nil {
		return nil, err
	}
	return result, nil
}
