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
	"sort"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"
)

// IsConjunctiveExpression returns true if the expression, or the body of the
// rule if it is one, is built only out of conjunctions of atoms whose args are
// variables or constants. Quantifiers are allowed if their body is conjunctive.
func IsConjunctiveExpression(expr interfaces.Expr) bool {
	return CheckConjunctive(expr) == nil
}

// CheckConjunctive is like IsConjunctiveExpression, but it returns an error of
// kind ErrNonConjunctiveBody that names the offending sub-expression.
func CheckConjunctive(expr interfaces.Expr) error {
	switch x := expr.(type) {
	case *ast.Statement:
		return checkConjunctive(x.Value)
	case *ast.Implication:
		return checkConjunctive(x.Body)
	}
	return checkConjunctive(expr)
}

func checkConjunctive(expr interfaces.Expr) error {
	switch x := expr.(type) {
	case nil:
		return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "missing body")

	case *ast.Constant, *ast.Symbol:
		return nil

	case *ast.ExistentialPredicate:
		return checkConjunctive(x.Body)

	case *ast.UniversalPredicate:
		return checkConjunctive(x.Body)

	case *ast.FunctionApplication:
		if op, ok := ast.Operator(x); ok {
			if op != ast.AndName {
				return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "operator `%s` in %s", op, x)
			}
			for _, arg := range x.Args {
				if err := checkConjunctive(arg); err != nil {
					return err
				}
			}
			return nil
		}
		for _, arg := range x.Args {
			switch arg.(type) {
			case *ast.Symbol, *ast.Constant:
				continue
			}
			return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "argument %s of %s", arg, x)
		}
		return nil
	}
	return errwrap.Wrapf(interfaces.ErrNonConjunctiveBody, "expression %s", expr)
}

// ExtractFreeVariables returns the sorted names of the variables that occur
// free in the expression. Variables bound by a quantifier, by the head of a rule
// or by the head of a query are not free. The functor of an atom is not a
// variable, so a bare symbol has no free variables. It errors with
// ErrFreeVariable on shapes outside of the conjunctive fragment.
func ExtractFreeVariables(expr interfaces.Expr) ([]string, error) {
	free, err := freeVariables(expr)
	if err != nil {
		return nil, err
	}
	free = util.StrRemoveDuplicatesInList(free)
	sort.Strings(free)
	return free, nil
}

// without removes the names from the list.
func without(list []string, names ...string) []string {
	out := []string{}
	for _, x := range list {
		if !util.StrInList(x, names) {
			out = append(out, x)
		}
	}
	return out
}

func freeVariables(expr interfaces.Expr) ([]string, error) {
	switch x := expr.(type) {
	case nil, *ast.Constant, *ast.Symbol:
		return []string{}, nil

	case *ast.ExistentialPredicate:
		return quantifiedVariables(x.Head, x.Body)

	case *ast.UniversalPredicate:
		return quantifiedVariables(x.Head, x.Body)

	case *ast.Statement:
		return ruleVariables(x.Symbol, x.Value)

	case *ast.Implication:
		return ruleVariables(x.Head, x.Body)

	case *ast.Query:
		free, err := freeVariables(x.Body)
		if err != nil {
			return nil, err
		}
		names := []string{}
		for _, s := range x.Head {
			names = append(names, s.Name)
		}
		return without(free, names...), nil

	case *ast.FunctionApplication:
		if op, ok := ast.Operator(x); ok {
			if op != ast.AndName {
				return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "operator `%s` in %s", op, x)
			}
			free := []string{}
			for _, arg := range x.Args {
				f, err := freeVariables(arg)
				if err != nil {
					return nil, err
				}
				free = append(free, f...)
			}
			return free, nil
		}
		return atomVariables(x)
	}
	return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "can't analyze %s", expr)
}

// atomVariables returns the variables used as args of the atom.
func atomVariables(atom *ast.FunctionApplication) ([]string, error) {
	free := []string{}
	for _, arg := range atom.Args {
		switch a := arg.(type) {
		case *ast.Symbol:
			free = append(free, a.Name)
		case *ast.Constant:
		default:
			return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "argument %s of %s", arg, atom)
		}
	}
	return free, nil
}

func quantifiedVariables(head, body interfaces.Expr) ([]string, error) {
	free, err := freeVariables(body)
	if err != nil {
		return nil, err
	}
	s, ok := head.(*ast.Symbol)
	if !ok {
		return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "quantifier over %s", head)
	}
	return without(free, s.Name), nil
}

func ruleVariables(head, body interfaces.Expr) ([]string, error) {
	free, err := freeVariables(body)
	if err != nil {
		return nil, err
	}
	atom, ok := head.(*ast.FunctionApplication)
	if !ok {
		return free, nil
	}
	bound, err := atomVariables(atom)
	if err != nil {
		return nil, err
	}
	return without(free, bound...), nil
}
