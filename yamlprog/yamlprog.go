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

// Package yamlprog provides the facilities for loading a datalog program from a
// yaml file.
package yamlprog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"

	"gopkg.in/yaml.v2"
)

// VariablePrefix marks a string argument as a variable. Any other scalar is a
// constant.
const VariablePrefix = "$"

// Atom maps a predicate name to its arguments. It must have exactly one key.
type Atom map[string][]interface{}

// Quantifier binds a variable over a conjunction of literals.
type Quantifier struct {
	Var  string     `yaml:"var"`
	Body []*Literal `yaml:"body"`
}

// Literal is one conjunct of a body. It is either an atom, or one of the two
// quantifiers.
type Literal struct {
	Exists *Quantifier `yaml:"exists"`
	Forall *Quantifier `yaml:"forall"`

	Atom Atom `yaml:",inline"`
}

// Rule is the data structure of a rule. The head holds if all of the literals
// of the body do.
type Rule struct {
	Head Atom       `yaml:"head"`
	Body []*Literal `yaml:"body"`
}

// Query is the data structure of a query. The answer is every binding of the
// head variables that makes the body true.
type Query struct {
	Head []string   `yaml:"head"`
	Body []*Literal `yaml:"body"`
}

// ProgramConfig is the data structure that describes a single program.
type ProgramConfig struct {
	Program string `yaml:"program"`

	// Facts maps each extensional predicate to its tuples.
	Facts   map[string][][]interface{} `yaml:"facts"`
	Rules   []*Rule                    `yaml:"rules"`
	Queries []*Query                   `yaml:"queries"`
	Comment string                     `yaml:"comment"`
}

// Parse parses a data stream into the program structure.
func (c *ProgramConfig) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	if c.Program == "" {
		return errors.New("program config: invalid program")
	}
	return nil
}

// Block transforms the facts and the rules into a block of expressions, ready
// to be walked by a solver. The facts come first, sorted by predicate name, and
// the rules follow in their order.
func (c *ProgramConfig) Block() (*ast.ExpressionBlock, error) {
	exprs := []interfaces.Expr{}
	for _, name := range util.SortedKeys(c.Facts) {
		for i, tuple := range c.Facts[name] {
			args, err := arguments(tuple)
			if err != nil {
				return nil, errwrap.Wrapf(err, "fact #%d of `%s`", i, name)
			}
			for _, x := range args {
				if _, ok := x.(*ast.Symbol); ok {
					return nil, errwrap.Wrapf(interfaces.ErrFreeVariable, "fact #%d of `%s` has variable %s", i, name, x)
				}
			}
			exprs = append(exprs, &ast.Fact{Head: ast.S(name).Call(args...)})
		}
	}

	for i, rule := range c.Rules {
		head, err := rule.Head.expr()
		if err != nil {
			return nil, errwrap.Wrapf(err, "head of rule #%d", i)
		}
		body, err := conjunction(rule.Body)
		if err != nil {
			return nil, errwrap.Wrapf(err, "body of rule #%d", i)
		}
		exprs = append(exprs, &ast.Implication{Head: head, Body: body})
	}
	return ast.Block(exprs...), nil
}

// NewQueries transforms the queries. A query with a single variable in its head
// is answered by a set of values, and any other one by a set of tuples.
func (c *ProgramConfig) NewQueries() ([]*ast.Query, error) {
	queries := []*ast.Query{}
	for i, q := range c.Queries {
		if len(q.Head) == 0 {
			return nil, fmt.Errorf("query #%d has no head", i)
		}
		head := []*ast.Symbol{}
		for _, name := range q.Head {
			head = append(head, ast.S(strings.TrimPrefix(name, VariablePrefix)))
		}
		body, err := conjunction(q.Body)
		if err != nil {
			return nil, errwrap.Wrapf(err, "body of query #%d", i)
		}
		if len(head) == 1 {
			queries = append(queries, ast.NewQuery(head[0], body))
			continue
		}
		queries = append(queries, ast.NewTupleQuery(body, head...))
	}
	return queries, nil
}

// expr builds the atom.
func (obj Atom) expr() (*ast.FunctionApplication, error) {
	if len(obj) != 1 {
		return nil, fmt.Errorf("an atom needs exactly one predicate, got %d", len(obj))
	}
	for name, list := range obj {
		args, err := arguments(list)
		if err != nil {
			return nil, errwrap.Wrapf(err, "atom `%s`", name)
		}
		return ast.S(name).Call(args...), nil
	}
	panic("unreachable")
}

// expr builds the literal.
func (obj *Literal) expr() (interfaces.Expr, error) {
	count := 0
	if obj.Exists != nil {
		count++
	}
	if obj.Forall != nil {
		count++
	}
	if len(obj.Atom) > 0 {
		count++
	}
	if count != 1 {
		return nil, fmt.Errorf("a literal is one of an atom, exists or forall")
	}

	if len(obj.Atom) > 0 {
		return obj.Atom.expr()
	}
	q := obj.Exists
	if q == nil {
		q = obj.Forall
	}
	if !strings.HasPrefix(q.Var, VariablePrefix) || len(q.Var) == len(VariablePrefix) {
		return nil, fmt.Errorf("quantifier over `%s` which is not a variable", q.Var)
	}
	head := ast.S(strings.TrimPrefix(q.Var, VariablePrefix))
	body, err := conjunction(q.Body)
	if err != nil {
		return nil, err
	}
	if obj.Exists != nil {
		return &ast.ExistentialPredicate{Head: head, Body: body}, nil
	}
	return &ast.UniversalPredicate{Head: head, Body: body}, nil
}

// conjunction builds the conjunction of the literals. An empty list is true.
func conjunction(literals []*Literal) (interfaces.Expr, error) {
	exprs := []interfaces.Expr{}
	for i, x := range literals {
		if x == nil {
			return nil, fmt.Errorf("literal #%d is empty", i)
		}
		expr, err := x.expr()
		if err != nil {
			return nil, errwrap.Wrapf(err, "literal #%d", i)
		}
		exprs = append(exprs, expr)
	}
	switch len(exprs) {
	case 0:
		return ast.True, nil
	case 1:
		return exprs[0], nil
	}
	return ast.And(exprs[0], exprs[1], exprs[2:]...), nil
}

// arguments builds the arguments of an atom. Strings with the variable prefix
// are variables, and every other scalar is a constant.
func arguments(list []interface{}) ([]interfaces.Expr, error) {
	out := []interfaces.Expr{}
	for _, x := range list {
		switch v := x.(type) {
		case string:
			if strings.HasPrefix(v, VariablePrefix) && len(v) > len(VariablePrefix) {
				out = append(out, ast.S(strings.TrimPrefix(v, VariablePrefix)))
				continue
			}
		case bool, int, int64, uint64, float64:
		default:
			return nil, fmt.Errorf("argument %v of type %T is not a scalar", x, x)
		}
		c, err := ast.ValueToConstant(x)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
