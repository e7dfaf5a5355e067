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
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cliUtil "github.com/purpleidea/datalog/cli/util"
	"github.com/purpleidea/datalog/lang/chase"
	"github.com/purpleidea/datalog/pgraph"
	"github.com/purpleidea/datalog/util/errwrap"
)

// TreeArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `tree` subcommand.
type TreeArgs struct {
	cliUtil.ProgramArgs // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240

	Parallel bool `arg:"--parallel" help:"apply all the rules of a chase round concurrently"`

	Paths bool `arg:"--paths" help:"print the rules applied on the way to each leaf"`

	Graphviz       string `arg:"--graphviz" help:"output file for graphviz data"`
	GraphvizFilter string `arg:"--graphviz-filter" default:"dot" help:"graphviz filter to use"`
}

// Run loads the program, and prints its chase tree. The tree can also be
// written out in graphviz format, and rendered with the filter.
func (obj *TreeArgs) Run(ctx context.Context, data *cliUtil.Data, Logf func(format string, v ...interface{})) error {
	program := &Program{
		Input: obj.Input,
		Debug: data.Flags.Debug,
		Logf:  Logf,
	}
	if err := program.Init(); err != nil {
		return err
	}
	engine, err := program.Engine(obj.Parallel)
	if err != nil {
		return err
	}
	tree, err := engine.Tree()
	if err != nil {
		return errwrap.Wrapf(err, "can't build the tree of `%s`", program.Config.Program)
	}
	Logf("tree has %d node(s) and %d leaf(s)", tree.Size(), len(tree.Leaves()))
	if err := printTree(os.Stdout, tree, ""); err != nil {
		return err
	}

	g, err := tree.Graph(program.Config.Program)
	if err != nil {
		return err
	}
	Logf("graph: %s", g)
	if obj.Paths {
		if err := printPaths(os.Stdout, g); err != nil {
			return err
		}
	}

	if obj.Graphviz == "" {
		return nil
	}
	if err := g.ExecGraphviz(obj.GraphvizFilter, obj.Graphviz); err != nil {
		return errwrap.Wrapf(err, "graphviz failed")
	}
	Logf("graphviz: successfully generated graph!")
	return nil
}

// printPaths writes the rules that lead to each leaf of the tree graph, one
// leaf per line.
func printPaths(w io.Writer, g *pgraph.Graph) error {
	paths, err := chase.Paths(g)
	if err != nil {
		return err
	}
	for i, path := range paths {
		if _, err := fmt.Fprintf(w, "leaf #%d: %s\n", i, strings.Join(path, " ; ")); err != nil {
			return err
		}
	}
	return nil
}
