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

package chase

import (
	"fmt"
	"sort"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/datalog"
	"github.com/purpleidea/datalog/pgraph"
	"github.com/purpleidea/datalog/util/errwrap"
)

// Node is a node of the chase tree. Each child is keyed by the rule whose
// delta it merged in. A node without children is a fixpoint.
type Node struct {
	Instance datalog.Instance
	Children map[*ast.Implication]*Node

	// Order holds the keys of Children in declaration order.
	Order []*ast.Implication
}

// IsLeaf returns true if no rule derives anything new at this node.
func (obj *Node) IsLeaf() bool {
	return len(obj.Children) == 0
}

// Walk calls the function on this node and on every node below it, parents
// first, with children in declaration order. It stops at the first error.
func (obj *Node) Walk(fn func(*Node) error) error {
	if err := fn(obj); err != nil {
		return err
	}
	for _, rule := range obj.Order {
		if err := obj.Children[rule].Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the number of nodes in the tree.
func (obj *Node) Size() int {
	count := 0
	obj.Walk(func(*Node) error {
		count++
		return nil
	})
	return count
}

// Leaves returns the leaves of the tree in order.
func (obj *Node) Leaves() []*Node {
	leaves := []*Node{}
	obj.Walk(func(n *Node) error {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return nil
	})
	return leaves
}

// Union returns the union of the instances of every node of the tree. This is
// the same instance that the chase solution computes.
func (obj *Node) Union() datalog.Instance {
	instance := datalog.Instance{}
	obj.Walk(func(n *Node) error {
		instance = MergeInstances(instance, n.Instance)
		return nil
	})
	return instance
}

// vertex is a node of the chase tree in a graph.
type vertex struct {
	id   int
	node *Node
}

// String includes the id, so that equal instances remain distinct vertices.
func (obj *vertex) String() string {
	return fmt.Sprintf("#%d %s", obj.id, obj.node.Instance)
}

// edge is a rule application in a graph.
type edge struct {
	rule *ast.Implication
}

func (obj *edge) String() string { return obj.rule.String() }

// Graph returns the tree as a graph, with an edge from each node to each of
// its children, labelled by the rule that was applied. The vertices are
// numbered in depth first order from the root at zero.
func (obj *Node) Graph(name string) (*pgraph.Graph, error) {
	g, err := pgraph.NewGraph(name)
	if err != nil {
		return nil, err
	}
	vertices := make(map[*Node]*vertex)
	err = obj.Walk(func(n *Node) error {
		v := &vertex{id: len(vertices), node: n}
		vertices[n] = v
		g.AddVertex(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for n, v := range vertices {
		for _, rule := range n.Order {
			g.AddEdge(v, vertices[n.Children[rule]], &edge{rule: rule})
		}
	}
	return g, nil
}

// Paths returns the rules applied along each branch of a tree that was exported
// with Graph, from the root down to each leaf. The leaves are in the order that
// Leaves returns them in. It errors if the graph is not a tree.
func Paths(g *pgraph.Graph) ([][]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, errwrap.Wrapf(err, "graph `%s` is not a tree", g.GetName())
	}
	indegree := g.InDegree()
	outdegree := g.OutDegree()

	var root pgraph.Vertex
	for _, v := range order {
		if indegree[v] > 1 {
			return nil, fmt.Errorf("vertex %s has %d parents", v, indegree[v])
		}
		if indegree[v] > 0 {
			continue
		}
		if root != nil {
			return nil, fmt.Errorf("graph `%s` has more than one root", g.GetName())
		}
		root = v
	}
	if root == nil {
		return nil, fmt.Errorf("graph `%s` is empty", g.GetName())
	}

	leaves := []pgraph.Vertex{}
	for _, v := range g.DFS(root) {
		if outdegree[v] == 0 {
			leaves = append(leaves, v)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return id(leaves[i]) < id(leaves[j]) })

	adjacency := g.Adjacency()
	paths := [][]string{}
	for _, leaf := range leaves {
		branch := []pgraph.Vertex{leaf}
		for v := leaf; v != root; {
			v = g.IncomingGraphVertices(v)[0] // exactly one parent
			branch = append(branch, v)
		}
		branch = pgraph.Reverse(branch)
		rules := []string{}
		for i := 1; i < len(branch); i++ {
			rules = append(rules, adjacency[branch[i-1]][branch[i]].String())
		}
		paths = append(paths, rules)
	}
	return paths, nil
}

// id returns the depth first number of a vertex of a tree graph, and -1 for a
// vertex that did not come from one.
func id(v pgraph.Vertex) int {
	if x, ok := v.(*vertex); ok {
		return x.id
	}
	return -1
}
