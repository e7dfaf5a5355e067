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

// Binding maps variable names to the values they are bound to.
type Binding map[string]types.Value

// copy returns a copy of the binding, so that it can be extended.
func (obj Binding) copy() Binding {
	out := make(Binding)
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// String returns a deterministic representation of this binding.
func (obj Binding) String() string {
	s := "{"
	for i, k := range util.SortedKeys(obj) {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", k, obj[k])
	}
	return s + "}"
}

// literals is a conjunctive body split up by the kind of its conjuncts.
type literals struct {
	atoms      []*ast.FunctionApplication
	builtins   []*ast.FunctionApplication
	universals []*ast.UniversalPredicate
	never      bool // a conjunct is the false constant
}

// joiner holds what is needed to join a body against an instance.
type joiner struct {
	instance Instance
	builtins map[string]*ast.Constant
	domain   []types.Value
	fresh    int
}

// Join returns every binding of the variables of the conjunctive body that
// makes it true in the instance. Positive atoms are matched against the extent
// of their predicate, existential variables are renamed apart and joined like
// any other variable, and variables that no atom binds (the ones only used by
// builtins, universal quantifiers, or in the extra vars) range over the active
// domain. That is every value found in the instance or as a constant in the
// body, plus the values in domain. The bindings are in a deterministic order.
func Join(instance Instance, body interfaces.Expr, builtins map[string]*ast.Constant, vars []string, domain ...types.Value) ([]Binding, error) {
	obj := &joiner{
		instance: instance,
		builtins: builtins,
	}
	obj.domain = ActiveDomain(instance, append(domain, Constants(body)...)...)
	return obj.join(body, vars, []Binding{{}})
}

// ActiveDomain returns the sorted set of values that occur in the tuples of the
// instance, together with the extra values.
func ActiveDomain(instance Instance, extra ...types.Value) []types.Value {
	set := types.NewSet(extra...)
	for _, name := range instance.Predicates() {
		for _, t := range instance.Tuples(name).Values() {
			tuple, ok := t.(*types.TupleValue)
			if !ok {
				continue
			}
			for _, v := range tuple.V {
				set.Add(v)
			}
		}
	}
	return set.Values()
}

// Constants returns the values of the constants in the expression. Functions
// are not part of the domain, so they are skipped.
func Constants(expr interfaces.Expr) []types.Value {
	values := []types.Value{}
	if expr == nil {
		return values
	}
	expr.Apply(func(x interfaces.Expr) error {
		c, ok := x.(*ast.Constant)
		if !ok || c.V == nil {
			return nil
		}
		if _, ok := c.V.(*types.FuncValue); ok {
			return nil
		}
		if _, ok := c.V.(*types.BoolValue); ok {
			return nil // true and false bodies
		}
		values = append(values, c.V)
		return nil
	})
	return values
}

// split flattens the conjunction into its literals.
func (obj *joiner) split(expr interfaces.Expr, lits *literals) error {
	switch x := expr.(type) {
	case *ast.Constant:
		if b, ok := x.V.(*types.BoolValue); ok {
			if !b.V {
				lits.never = true
			}
			return nil
		}
		return errwrap.Wrapf(interfaces.ErrTypeMismatch, "constant %s in a rule body", x)

	case *ast.Symbol: // a proposition
		lits.atoms = append(lits.atoms, ast.Call(x))
		return nil

	case *ast.ExistentialPredicate:
		s, ok := x.Head.(*ast.Symbol)
		if !ok {
			return errwrap.Wrapf(interfaces.ErrFreeVariable, "quantifier over %s", x.Head)
		}
		obj.fresh++
		name := fmt.Sprintf("%s#%d", s.Name, obj.fresh)
		body, err := walker.Replace(x.Body, map[string]interfaces.Expr{s.Name: ast.S(name)}, nil)
		if err != nil {
			return err
		}
		return obj.split(body, lits)

	case *ast.UniversalPredicate:
		lits.universals = append(lits.universals, x)
		return nil

	case *ast.FunctionApplication:
		if op, ok := ast.Operator(x); ok {
			if op != ast.AndName {
				return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "operator `%s` in %s", op, x)
			}
			for _, arg := range x.Args {
				if err := obj.split(arg, lits); err != nil {
					return err
				}
			}
			return nil
		}
		if err := checkConjunctive(x); err != nil {
			return err
		}
		if obj.isBuiltin(x) {
			lits.builtins = append(lits.builtins, x)
			return nil
		}
		lits.atoms = append(lits.atoms, x)
		return nil
	}
	return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "expression %s", expr)
}

// isBuiltin returns true if the atom is a call to a builtin instead of a lookup
// of a stored predicate.
func (obj *joiner) isBuiltin(atom *ast.FunctionApplication) bool {
	switch f := atom.Functor.(type) {
	case *ast.Constant:
		_, ok := f.V.(*types.FuncValue)
		return ok
	case *ast.Symbol:
		if _, exists := obj.instance[f.Name]; exists {
			return false
		}
		_, exists := obj.builtins[f.Name]
		return exists
	}
	return false
}

// value returns the value of an arg under the binding, or nil if it is an
// unbound variable.
func value(arg interfaces.Expr, binding Binding) types.Value {
	switch a := arg.(type) {
	case *ast.Constant:
		return a.V
	case *ast.Symbol:
		return binding[a.Name]
	}
	return nil
}

// variables returns the names of the variables used as args, in order.
func variables(args []interfaces.Expr) []string {
	names := []string{}
	for _, arg := range args {
		if s, ok := arg.(*ast.Symbol); ok {
			names = append(names, s.Name)
		}
	}
	return names
}

func (obj *joiner) join(body interfaces.Expr, vars []string, bindings []Binding) ([]Binding, error) {
	lits := &literals{}
	if err := obj.split(body, lits); err != nil {
		return nil, err
	}
	if lits.never {
		return []Binding{}, nil
	}

	for _, atom := range lits.atoms {
		bindings = obj.match(atom, bindings)
	}

	// whatever is still unbound ranges over the active domain
	unbound := append([]string{}, vars...)
	for _, x := range lits.builtins {
		unbound = append(unbound, variables(x.Args)...)
	}
	for _, x := range lits.universals {
		free, err := ExtractFreeVariables(x)
		if err != nil {
			return nil, err
		}
		unbound = append(unbound, free...)
	}
	for _, name := range util.StrRemoveDuplicatesInList(unbound) {
		bindings = obj.expand(name, bindings)
	}

	for _, x := range lits.builtins {
		var err error
		if bindings, err = obj.filter(x, bindings); err != nil {
			return nil, err
		}
	}

	for _, x := range lits.universals {
		out := []Binding{}
		for _, b := range bindings {
			ok, err := obj.forall(x, b)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, b)
			}
		}
		bindings = out
	}
	return bindings, nil
}

// match extends each binding with every tuple of the extent of the atom that
// is consistent with it. Tuples of a different arity are skipped.
func (obj *joiner) match(atom *ast.FunctionApplication, bindings []Binding) []Binding {
	name := atom.Functor.String()
	tuples := obj.instance.Tuples(name).Values()

	out := []Binding{}
	for _, b := range bindings {
		for _, t := range tuples {
			tuple, ok := t.(*types.TupleValue)
			if !ok || len(tuple.V) != len(atom.Args) {
				continue
			}
			if next, ok := unify(atom.Args, tuple.V, b); ok {
				out = append(out, next)
			}
		}
	}
	return out
}

// unify matches the args against the values under the binding. It returns the
// extended binding if they are consistent.
func unify(args []interfaces.Expr, values []types.Value, binding Binding) (Binding, bool) {
	out := binding
	copied := false
	for i, arg := range args {
		if v := value(arg, out); v != nil {
			if v.Cmp(values[i]) != nil {
				return nil, false
			}
			continue
		}
		s, ok := arg.(*ast.Symbol)
		if !ok {
			return nil, false
		}
		if !copied {
			out = out.copy()
			copied = true
		}
		out[s.Name] = values[i]
	}
	return out, true
}

// expand binds the variable to every value of the domain in each binding that
// does not bind it yet.
func (obj *joiner) expand(name string, bindings []Binding) []Binding {
	out := []Binding{}
	for _, b := range bindings {
		if _, exists := b[name]; exists {
			out = append(out, b)
			continue
		}
		for _, v := range obj.domain {
			next := b.copy()
			next[name] = v
			out = append(out, next)
		}
	}
	return out
}

// filter keeps the bindings for which the builtin returns true.
func (obj *joiner) filter(atom *ast.FunctionApplication, bindings []Binding) ([]Binding, error) {
	fn, err := obj.function(atom)
	if err != nil {
		return nil, err
	}
	out := []Binding{}
	for _, b := range bindings {
		args := []types.Value{}
		for _, arg := range atom.Args {
			v := value(arg, b)
			if v == nil {
				return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "argument %s of %s is unbound", arg, atom)
			}
			args = append(args, v)
		}
		result, err := fn.Call(args)
		if err != nil {
			return nil, errwrap.Wrapf(err, "builtin %s failed", atom)
		}
		ok, isBool := result.(*types.BoolValue)
		if !isBool {
			return nil, errwrap.Wrapf(interfaces.ErrTypeMismatch, "builtin %s returned %s", atom, result.Type())
		}
		if ok.V {
			out = append(out, b)
		}
	}
	return out, nil
}

// function returns the function a builtin atom calls.
func (obj *joiner) function(atom *ast.FunctionApplication) (*types.FuncValue, error) {
	c, ok := atom.Functor.(*ast.Constant)
	if s, isSymbol := atom.Functor.(*ast.Symbol); isSymbol {
		c, ok = obj.builtins[s.Name]
	}
	if !ok || c == nil {
		return nil, errwrap.Wrapf(interfaces.ErrNotCallable, "builtin %s", atom.Functor)
	}
	fn, ok := c.V.(*types.FuncValue)
	if !ok {
		return nil, errwrap.Wrapf(interfaces.ErrNotCallable, "builtin %s is a %s", atom.Functor, c.Type())
	}
	return fn, nil
}

// forall checks the universal quantifier under the binding, by joining its body
// once for every value of the domain.
func (obj *joiner) forall(up *ast.UniversalPredicate, binding Binding) (bool, error) {
	s, ok := up.Head.(*ast.Symbol)
	if !ok {
		return false, errwrap.Wrapf(interfaces.ErrFreeVariable, "quantifier over %s", up.Head)
	}
	for _, v := range obj.domain {
		b := binding.copy()
		b[s.Name] = v
		out, err := obj.join(up.Body, nil, []Binding{b})
		if err != nil {
			return false, err
		}
		if len(out) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// Project builds the tuple of the args under each binding, and returns the set
// of them. Every variable in the args must be bound.
func Project(args []interfaces.Expr, bindings []Binding) (*types.SetValue, error) {
	set := types.NewSet()
	for _, b := range bindings {
		values := []types.Value{}
		for _, arg := range args {
			v := value(arg, b)
			if v == nil {
				return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "variable %s is unbound", arg)
			}
			values = append(values, v)
		}
		set.Add(types.NewTuple(values...))
	}
	return set, nil
}
