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

package pgraph

import (
	"reflect"
	"testing"
)

// tree builds the graph v1 -> {v2, v3} -> v4 -> v5 -> v6.
func tree(t *testing.T) (*Graph, []Vertex) {
	G, err := NewGraph("tree")
	if err != nil {
		t.Fatalf("could not build graph: %v", err)
	}
	vs := []Vertex{NV("v1"), NV("v2"), NV("v3"), NV("v4"), NV("v5"), NV("v6")}
	G.AddEdge(vs[0], vs[1], NE("e1"))
	G.AddEdge(vs[0], vs[2], NE("e2"))
	G.AddEdge(vs[1], vs[3], NE("e3"))
	G.AddEdge(vs[2], vs[3], NE("e4"))
	G.AddEdge(vs[3], vs[4], NE("e5"))
	G.AddEdge(vs[4], vs[5], NE("e6"))
	return G, vs
}

func TestCount1(t *testing.T) {
	G := &Graph{}

	if i := G.NumVertices(); i != 0 {
		t.Errorf("should have 0 vertices instead of: %d", i)
	}
	if i := G.NumEdges(); i != 0 {
		t.Errorf("should have 0 edges instead of: %d", i)
	}

	G.AddEdge(NV("v1"), NV("v2"), NE("e1"))

	if i := G.NumVertices(); i != 2 {
		t.Errorf("should have 2 vertices instead of: %d", i)
	}
	if i := G.NumEdges(); i != 1 {
		t.Errorf("should have 1 edges instead of: %d", i)
	}
	if s := G.String(); s != "Vertices(2), Edges(1)" {
		t.Errorf("unexpected string: %s", s)
	}
}

func TestNewGraph0(t *testing.T) {
	if _, err := NewGraph(""); err == nil {
		t.Errorf("expected an error for an empty name")
	}
}

func TestDFS1(t *testing.T) {
	G, vs := tree(t)

	if out := G.DFS(vs[0]); len(out) != 6 {
		t.Errorf("should have 6 vertices instead of: %d", len(out))
	}
	if out := G.DFS(vs[3]); len(out) != 3 {
		t.Errorf("should have 3 vertices instead of: %d", len(out))
	}
	if out := G.DFS(NV("nope")); out != nil {
		t.Errorf("should have no vertices instead of: %v", out)
	}
}

func TestVertexContains1(t *testing.T) {
	v1, v2, v3 := NV("v1"), NV("v2"), NV("v3")

	if !VertexContains(v1, []Vertex{v1, v2, v3}) {
		t.Errorf("should be true instead of false.")
	}
	if VertexContains(v3, []Vertex{v1, v2}) {
		t.Errorf("should be false instead of true.")
	}
	v1b := NV("v1") // same value, different objects
	if VertexContains(v1b, []Vertex{v1, v2, v3}) {
		t.Errorf("should be false instead of true.")
	}
}

func TestTopoSort1(t *testing.T) {
	G, vs := tree(t)

	indegree := G.InDegree()
	outdegree := G.OutDegree()
	for i, want := range []int{0, 1, 1, 2, 1, 1} {
		if d := indegree[vs[i]]; d != want {
			t.Errorf("indegree of %s should be %d instead of: %d", vs[i], want, d)
		}
	}
	for i, want := range []int{2, 1, 1, 1, 1, 0} {
		if d := outdegree[vs[i]]; d != want {
			t.Errorf("outdegree of %s should be %d instead of: %d", vs[i], want, d)
		}
	}

	s, err := G.TopologicalSort()
	// either possibility is a valid toposort
	match := reflect.DeepEqual(s, vs) || reflect.DeepEqual(s, []Vertex{vs[0], vs[2], vs[1], vs[3], vs[4], vs[5]})
	if err != nil || !match {
		t.Errorf("topological sort failed, error: %v", err)
		t.Errorf("found: %v", s)
	}

	G.AddEdge(vs[5], vs[1], NE("cycle"))
	if _, err := G.TopologicalSort(); err == nil {
		t.Errorf("topological sort passed, but graph is cyclic")
	}
}

func TestReverse1(t *testing.T) {
	v1, v2, v3 := NV("v1"), NV("v2"), NV("v3")

	if rev := Reverse([]Vertex{}); !reflect.DeepEqual(rev, []Vertex{}) {
		t.Errorf("reverse of vertex slice failed (empty)")
	}
	if rev := Reverse([]Vertex{v1}); !reflect.DeepEqual(rev, []Vertex{v1}) {
		t.Errorf("reverse of vertex slice failed (single)")
	}
	if rev := Reverse([]Vertex{v1, v2, v3}); !reflect.DeepEqual(rev, []Vertex{v3, v2, v1}) {
		t.Errorf("reverse of vertex slice failed (1..3)")
	}
}

func TestSorted1(t *testing.T) {
	G := &Graph{}
	G.AddVertex(NV("c"), NV("a"), NV("b"))

	got := []string{}
	for _, v := range G.VerticesSorted() {
		got = append(got, v.String())
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected order: %v", got)
	}
}
