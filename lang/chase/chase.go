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

// Package chase computes the least fixpoint of a datalog program by repeatedly
// applying its rules to an instance until nothing new can be derived. It can
// build the whole tree of derivations, or only the final instance.
package chase

import (
	"fmt"
	"sync"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/datalog"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/prometheus"
	"github.com/purpleidea/datalog/util/errwrap"

	"golang.org/x/sync/errgroup"
)

// Step applies the rule once to the instance. It returns the delta, which
// holds the tuples of the head predicate that the rule derives and that are not
// in the instance yet. The delta is empty when the rule has nothing to add.
func Step(solver *datalog.Solver, instance datalog.Instance, builtins map[string]*ast.Constant, rule *ast.Implication) (datalog.Instance, error) {
	return step(instance, builtins, rule, solver.Constants())
}

func step(instance datalog.Instance, builtins map[string]*ast.Constant, rule *ast.Implication, constants []types.Value) (datalog.Instance, error) {
	name, derived, err := datalog.Derive(instance, rule, builtins, constants...)
	if err != nil {
		return nil, err
	}
	delta := derived.Difference(instance.Tuples(name))
	if delta.Len() == 0 {
		return datalog.Instance{}, nil
	}
	return datalog.NewInstance(map[string]*types.SetValue{name: delta}), nil
}

// MergeInstances returns the union of the two instances. Neither of them is
// modified.
func MergeInstances(a, b datalog.Instance) datalog.Instance {
	return a.Merge(b)
}

// BuildTree builds the chase tree of the program with the default engine.
func BuildTree(solver *datalog.Solver) (*Node, error) {
	obj := &Engine{Solver: solver}
	if err := obj.Init(nil); err != nil {
		return nil, err
	}
	return obj.Tree()
}

// BuildSolution computes the least fixpoint of the program with the default
// engine.
func BuildSolution(solver *datalog.Solver) (datalog.Instance, error) {
	obj := &Engine{Solver: solver}
	if err := obj.Init(nil); err != nil {
		return nil, err
	}
	return obj.Solution()
}

// Engine runs the chase for the program of a solver. Run Init() on it.
type Engine struct {
	Solver *datalog.Solver

	// Parallel applies all of the rules of a round concurrently against
	// the same instance, and merges their deltas at the end of the round.
	// Otherwise each delta is merged as soon as it is derived.
	Parallel bool

	// Metrics is optional. If it is set, every step is counted.
	Metrics *prometheus.Prometheus

	data *interfaces.Data

	rules     []*ast.Implication
	builtins  map[string]*ast.Constant
	constants []types.Value

	mutex *sync.Mutex // serializes logging and metrics
}

// Init takes a snapshot of the program of the solver. Rules that are added to
// the solver later on are not seen by this engine.
func (obj *Engine) Init(data *interfaces.Data) error {
	if obj.Solver == nil {
		return fmt.Errorf("the Solver is nil")
	}
	obj.data = interfaces.NewData(data)
	obj.rules = obj.Solver.Rules()
	obj.builtins = obj.Solver.Builtins()
	obj.constants = obj.Solver.Constants()
	obj.mutex = &sync.Mutex{}
	return nil
}

// step applies the rule, and records it.
func (obj *Engine) step(instance datalog.Instance, rule *ast.Implication) (datalog.Instance, error) {
	delta, err := step(instance, obj.builtins, rule, obj.constants)
	if err != nil {
		return nil, errwrap.Wrapf(err, "chase step failed")
	}

	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.Metrics != nil {
		if err := obj.Metrics.UpdateChaseStepTotal(rule.String(), len(delta) > 0); err != nil {
			return nil, err
		}
		for _, name := range delta.Predicates() {
			if err := obj.Metrics.AddTuplesDerived(name, delta.Tuples(name).Len()); err != nil {
				return nil, err
			}
		}
	}
	if obj.data.Debug && len(delta) > 0 {
		obj.data.Logf("rule %s derived %d tuple(s)", rule, delta.Len())
	}
	return delta, nil
}

// deltas applies each of the rules to the instance. The result has the delta
// of each rule at the same index.
func (obj *Engine) deltas(instance datalog.Instance) ([]datalog.Instance, error) {
	out := make([]datalog.Instance, len(obj.rules))
	if !obj.Parallel {
		for i, rule := range obj.rules {
			delta, err := obj.step(instance, rule)
			if err != nil {
				return nil, err
			}
			out[i] = delta
		}
		return out, nil
	}

	wg := &errgroup.Group{}
	for i, rule := range obj.rules {
		i, rule := i, rule
		wg.Go(func() error {
			delta, err := obj.step(instance, rule) // instance is read only
			if err != nil {
				return err
			}
			out[i] = delta
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Tree builds the chase tree. The root holds the extensional database. Each
// rule that derives something at a node gets a child, whose instance is the
// one of the node merged with that delta, and which is chased in turn. A leaf
// is an instance that no rule can add to, so each of them is the fixpoint.
func (obj *Engine) Tree() (*Node, error) {
	return obj.node(obj.Solver.ExtensionalDatabase())
}

func (obj *Engine) node(instance datalog.Instance) (*Node, error) {
	node := &Node{
		Instance: instance,
		Children: make(map[*ast.Implication]*Node),
		Order:    []*ast.Implication{},
	}
	deltas, err := obj.deltas(instance)
	if err != nil {
		return nil, err
	}
	for i, rule := range obj.rules {
		if len(deltas[i]) == 0 {
			continue
		}
		if _, exists := node.Children[rule]; exists {
			continue // the same rule was declared twice
		}
		child, err := obj.node(MergeInstances(instance, deltas[i]))
		if err != nil {
			return nil, err
		}
		node.Children[rule] = child
		node.Order = append(node.Order, rule)
	}
	return node, nil
}

// Solution applies all of the rules in rounds until a whole round derives
// nothing, and returns the final instance.
func (obj *Engine) Solution() (datalog.Instance, error) {
	instance := obj.Solver.ExtensionalDatabase()
	for {
		if obj.Metrics != nil {
			obj.Metrics.IncChaseRounds()
		}
		grown := false

		if obj.Parallel {
			deltas, err := obj.deltas(instance)
			if err != nil {
				return nil, err
			}
			for _, delta := range deltas {
				if len(delta) == 0 {
					continue
				}
				instance = MergeInstances(instance, delta)
				grown = true
			}
		} else {
			for _, rule := range obj.rules { // round-robin
				delta, err := obj.step(instance, rule)
				if err != nil {
					return nil, err
				}
				if len(delta) == 0 {
					continue
				}
				instance = MergeInstances(instance, delta)
				grown = true
			}
		}

		if !grown {
			return instance, nil
		}
	}
}
