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

package pgraph

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"

	"github.com/purpleidea/datalog/util/errwrap"
)

// Graphviz outputs the graph in graphviz format. The vertices are named by
// their position in the sorted order, so the output is deterministic as long
// as the vertices have distinct String representations.
// https://en.wikipedia.org/wiki/DOT_%28graph_description_language%29
func (g *Graph) Graphviz() (out string) {
	//digraph g {
	//	label="hello world";
	//	node [shape=box];
	//	A [label="A"];
	//	B [label="B"];
	//	A -> B [label=f];
	//}
	out += fmt.Sprintf("digraph %s {\n", strconv.Quote(g.GetName()))
	out += fmt.Sprintf("\tlabel=%s;\n", strconv.Quote(g.GetName()))
	out += "\tnode [shape=box];\n"

	vertices := g.VerticesSorted()
	names := make(map[Vertex]string, len(vertices))
	for i, v := range vertices {
		names[v] = fmt.Sprintf("v%d", i)
		out += fmt.Sprintf("\t%s [label=%s];\n", names[v], strconv.Quote(v.String()))
	}
	// use str for clearer output ordering
	str := ""
	for _, v1 := range vertices {
		targets := VertexSlice(g.OutgoingGraphVertices(v1))
		sort.Sort(targets)
		for _, v2 := range targets {
			e := strconv.Quote(g.adjacency[v1][v2].String())
			str += fmt.Sprintf("\t%s -> %s [label=%s];\n", names[v1], names[v2], e)
		}
	}
	out += str
	out += "}\n"
	return
}

// ExecGraphviz writes out the graphviz data and runs the correct graphviz
// filter command.
func (g *Graph) ExecGraphviz(program, filename string) error {
	switch program {
	case "dot", "neato", "twopi", "circo", "fdp":
	default:
		return fmt.Errorf("invalid graphviz program selected")
	}

	if filename == "" {
		return fmt.Errorf("no filename given")
	}

	if err := os.WriteFile(filename, []byte(g.Graphviz()), 0644); err != nil {
		return errwrap.Wrapf(err, "error writing to filename `%s`", filename)
	}

	path, err := exec.LookPath(program)
	if err != nil {
		return errwrap.Wrapf(err, "the Graphviz program is missing")
	}

	out := fmt.Sprintf("%s.png", filename)
	cmd := exec.Command(path, "-Tpng", fmt.Sprintf("-o%s", out), filename)

	if _, err := cmd.Output(); err != nil {
		return errwrap.Wrapf(err, "error writing to image `%s`", out)
	}
	return nil
}
