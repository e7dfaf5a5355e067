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
	"strings"

	"github.com/purpleidea/datalog/lang/ast"
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"
)

// Instance is a snapshot of the extent of every predicate. Each predicate name
// maps to a constant wrapping the set of its ground tuples. Instances only ever
// grow: merging is a union per predicate, and the sets held by the constants
// are never modified in place.
type Instance map[string]*ast.Constant

// NewInstance builds an instance from a map of tuple sets.
func NewInstance(m map[string]*types.SetValue) Instance {
	obj := make(Instance)
	for name, set := range m {
		obj[name] = setConstant(set)
	}
	return obj
}

// setConstant wraps a set in a constant of its own type.
func setConstant(set *types.SetValue) *ast.Constant {
	return &ast.Constant{T: set.Type(), V: set}
}

// Tuples returns the set of tuples of the predicate. A missing predicate has an
// empty extent.
func (obj Instance) Tuples(name string) *types.SetValue {
	c, exists := obj[name]
	if !exists || c == nil {
		return types.NewSet()
	}
	set, ok := c.V.(*types.SetValue)
	if !ok {
		return types.NewSet()
	}
	return set
}

// Predicates returns the sorted names of the predicates in this instance.
func (obj Instance) Predicates() []string {
	return util.SortedKeys(obj)
}

// Len returns the total number of tuples across all the predicates.
func (obj Instance) Len() int {
	count := 0
	for name := range obj {
		count += obj.Tuples(name).Len()
	}
	return count
}

// Copy returns a shallow copy. The constants are shared, which is safe since
// they are never modified.
func (obj Instance) Copy() Instance {
	out := make(Instance)
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// Merge returns the union of the two instances per predicate. Neither input is
// modified. A predicate whose extent does not grow keeps its constant.
func (obj Instance) Merge(other Instance) Instance {
	out := obj.Copy()
	for _, name := range other.Predicates() {
		add := other.Tuples(name)
		if _, exists := out[name]; !exists {
			out[name] = other[name]
			continue
		}
		have := out.Tuples(name)
		if add.IsSubset(have) {
			continue
		}
		out[name] = setConstant(have.Union(add))
	}
	return out
}

// IsSubset returns true if every tuple of this instance is in the other one.
func (obj Instance) IsSubset(other Instance) bool {
	for name := range obj {
		if !obj.Tuples(name).IsSubset(other.Tuples(name)) {
			return false
		}
	}
	return true
}

// Cmp compares two instances. It errors with every predicate that differs.
func (obj Instance) Cmp(other Instance) error {
	var reterr error
	names := util.StrRemoveDuplicatesInList(append(obj.Predicates(), other.Predicates()...))
	for _, name := range names {
		a, b := obj.Tuples(name), other.Tuples(name)
		if _, exists := obj[name]; !exists {
			reterr = errwrap.Append(reterr, fmt.Errorf("predicate %s is missing on the left", name))
			continue
		}
		if _, exists := other[name]; !exists {
			reterr = errwrap.Append(reterr, fmt.Errorf("predicate %s is missing on the right", name))
			continue
		}
		if err := a.Cmp(b); err != nil {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "predicate %s differs", name))
		}
	}
	return reterr
}

// String returns a deterministic representation of this instance.
func (obj Instance) String() string {
	s := []string{}
	for _, name := range obj.Predicates() {
		s = append(s, fmt.Sprintf("%s: %s", name, obj.Tuples(name)))
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ", "))
}
