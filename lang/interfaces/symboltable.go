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

package interfaces

import (
	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"
)

// SymbolTable represents a mapping between a symbol name and the expression it
// is bound to. Tables are nested: each scope owns its local bindings and holds
// a reference to its parent. Lookups fall through to the parent chain, so a
// parent's later writes are visible to every child, and a child can shadow a
// parent's binding without the parent ever seeing it. A binding may be nil, in
// which case the name is declared but has no value yet.
type SymbolTable struct {
	parent  *SymbolTable
	symbols map[string]Expr
}

// NewSymbolTable returns a new, empty, top-level symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols: make(map[string]Expr),
	}
}

// CreateScope returns a new child scope of this table.
func (obj *SymbolTable) CreateScope() *SymbolTable {
	return &SymbolTable{
		parent:  obj,
		symbols: make(map[string]Expr),
	}
}

// Parent returns the enclosing scope, or nil for a top-level table.
func (obj *SymbolTable) Parent() *SymbolTable {
	return obj.parent
}

// Lookup returns the expression bound to the name in the innermost scope that
// defines it. The boolean is false if no scope in the chain has the name.
func (obj *SymbolTable) Lookup(name string) (Expr, bool) {
	for t := obj; t != nil; t = t.parent {
		if expr, exists := t.symbols[name]; exists {
			return expr, true
		}
	}
	return nil, false
}

// Contains returns true if the name is visible from this scope.
func (obj *SymbolTable) Contains(name string) bool {
	_, exists := obj.Lookup(name)
	return exists
}

// Set binds the name in this scope. Shadowing a parent binding is allowed, but
// only with an expression whose type is compatible with the one it hides. An
// incompatible shadow errors with ErrTypeMismatch and changes nothing.
func (obj *SymbolTable) Set(name string, expr Expr) error {
	if _, exists := obj.symbols[name]; !exists && obj.parent != nil {
		if prev, exists := obj.parent.Lookup(name); exists && !compatible(prev, expr) {
			return errwrap.Wrapf(ErrTypeMismatch, "can't shadow `%s` of type %s with %s", name, prev.Type(), expr.Type())
		}
	}
	obj.symbols[name] = expr
	return nil
}

// compatible tells us if one of the two expressions could stand in for the
// other one.
func compatible(a, b Expr) bool {
	if a == nil || b == nil {
		return true
	}
	at, bt := a.Type(), b.Type()
	if at.Kind == types.KindInfer || bt.Kind == types.KindInfer {
		return true
	}
	if ok, err := types.IsSubtype(bt, at); err == nil && ok {
		return true
	}
	ok, err := types.IsSubtype(at, bt)
	return err == nil && ok
}

// Delete removes the binding from this scope. It returns false if this scope
// did not define the name. Bindings in parent scopes are not affected, and if
// one exists it becomes visible again.
func (obj *SymbolTable) Delete(name string) bool {
	if _, exists := obj.symbols[name]; !exists {
		return false
	}
	delete(obj.symbols, name)
	return true
}

// visible returns every binding visible from this scope, with inner scopes
// shadowing outer ones.
func (obj *SymbolTable) visible() map[string]Expr {
	chain := []*SymbolTable{}
	for t := obj; t != nil; t = t.parent {
		chain = append(chain, t)
	}
	result := make(map[string]Expr)
	for i := len(chain) - 1; i >= 0; i-- { // outermost first
		for name, expr := range chain[i].symbols {
			result[name] = expr
		}
	}
	return result
}

// Len returns the number of names visible from this scope.
func (obj *SymbolTable) Len() int {
	return len(obj.visible())
}

// Names returns the sorted list of names visible from this scope.
func (obj *SymbolTable) Names() []string {
	return util.SortedKeys(obj.visible())
}

// SymbolsByType returns the visible bindings whose type is exactly the type
// passed in. Unset (nil) bindings have no type and are never returned.
func (obj *SymbolTable) SymbolsByType(typ *types.Type) map[string]Expr {
	result := make(map[string]Expr)
	for name, expr := range obj.visible() {
		if expr == nil {
			continue
		}
		if expr.Type().Cmp(typ) == nil {
			result[name] = expr
		}
	}
	return result
}

// Types returns the distinct types of all the visible bindings, sorted by their
// string representation.
func (obj *SymbolTable) Types() []*types.Type {
	seen := make(map[string]*types.Type)
	for _, expr := range obj.visible() {
		if expr == nil {
			continue
		}
		typ := expr.Type()
		seen[typ.String()] = typ
	}
	result := []*types.Type{}
	for _, k := range util.SortedKeys(seen) {
		result = append(result, seen[k])
	}
	return result
}
