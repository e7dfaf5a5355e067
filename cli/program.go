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

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/purpleidea/datalog/lang/chase"
	"github.com/purpleidea/datalog/lang/datalog"
	"github.com/purpleidea/datalog/lang/interfaces"
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"
	"github.com/purpleidea/datalog/yamlprog"

	"github.com/spf13/afero"
)

// Builtins are the predicates that every program can use, on top of equals.
var Builtins = map[string]interface{}{
	"gt":     func(a, b int64) bool { return a > b },
	"ge":     func(a, b int64) bool { return a >= b },
	"lt":     func(a, b int64) bool { return a < b },
	"le":     func(a, b int64) bool { return a <= b },
	"prefix": strings.HasPrefix,
	"suffix": strings.HasSuffix,
}

// Program is a program loaded from a yaml file into a solver. Run Init() on it.
type Program struct {
	Input string

	// Fs is where the input is read from. The os filesystem is used if it
	// is nil.
	Fs afero.Fs

	Debug bool
	Logf  func(format string, v ...interface{})

	Config *yamlprog.ProgramConfig
	Solver *datalog.Solver
}

// Init reads the input, and loads the facts and the rules into a new solver.
// The queries are kept in the config for later.
func (obj *Program) Init() error {
	if obj.Fs == nil {
		obj.Fs = afero.NewOsFs()
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {}
	}

	b, err := afero.ReadFile(obj.Fs, obj.Input)
	if err != nil {
		return errwrap.Wrapf(err, "can't read program from `%s`", obj.Input)
	}
	obj.Config = &yamlprog.ProgramConfig{}
	if err := obj.Config.Parse(b); err != nil {
		return errwrap.Wrapf(err, "can't parse `%s`", obj.Input)
	}
	block, err := obj.Config.Block()
	if err != nil {
		return errwrap.Wrapf(err, "invalid program `%s`", obj.Config.Program)
	}

	obj.Solver = &datalog.Solver{}
	err = obj.Solver.Init(&interfaces.Data{
		Debug: obj.Debug,
		Logf: func(format string, v ...interface{}) {
			obj.Logf("solver: "+format, v...)
		},
	})
	if err != nil {
		return err
	}
	for _, name := range util.SortedKeys(Builtins) {
		if err := obj.Solver.AddBuiltin(name, Builtins[name]); err != nil {
			return err
		}
	}
	if _, err := obj.Solver.Walk(block); err != nil {
		return errwrap.Wrapf(err, "can't load program `%s`", obj.Config.Program)
	}
	if obj.Debug {
		obj.Logf("loaded `%s` with %d rule(s)", obj.Config.Program, len(obj.Solver.Rules()))
	}
	return nil
}

// Engine returns a chase engine for this program.
func (obj *Program) Engine(parallel bool) (*chase.Engine, error) {
	engine := &chase.Engine{
		Solver:   obj.Solver,
		Parallel: parallel,
	}
	err := engine.Init(&interfaces.Data{
		Debug: obj.Debug,
		Logf: func(format string, v ...interface{}) {
			obj.Logf("chase: "+format, v...)
		},
	})
	return engine, err
}

// printInstance writes each tuple as a fact, one per line, sorted by predicate.
func printInstance(w io.Writer, instance datalog.Instance) error {
	for _, name := range instance.Predicates() {
		for _, v := range instance.Tuples(name).Values() {
			if _, err := fmt.Fprintf(w, "%s.\n", atom(name, v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// atom formats the tuple as the args of the predicate.
func atom(name string, v types.Value) string {
	tuple, ok := v.(*types.TupleValue)
	if !ok {
		return fmt.Sprintf("%s(%s)", name, v)
	}
	args := []string{}
	for _, x := range tuple.V {
		args = append(args, x.String())
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

// printTree writes the tree with one node per line. Each child is indented
// below its parent, after the rule that produced it.
func printTree(w io.Writer, node *chase.Node, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", indent, node.Instance); err != nil {
		return err
	}
	for _, rule := range node.Order {
		if _, err := fmt.Fprintf(w, "%s  [%s]\n", indent, rule); err != nil {
			return err
		}
		if err := printTree(w, node.Children[rule], indent+"    "); err != nil {
			return err
		}
	}
	return nil
}
