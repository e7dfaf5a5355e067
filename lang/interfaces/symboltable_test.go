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

package interfaces

import (
	"errors"
	"fmt"
	"testing"

	"github.com/purpleidea/datalog/lang/types"
	"github.com/purpleidea/datalog/util"

	"github.com/kylelemons/godebug/pretty"
)

// value is a minimal expression to store in the table under test.
type value struct {
	v types.Value
}

func (obj *value) String() string                  { return obj.v.String() }
func (obj *value) Type() *types.Type               { return obj.v.Type() }
func (obj *value) Apply(fn func(Expr) error) error { return fn(obj) }
func (obj *value) Cmp(expr Expr) error {
	other, ok := expr.(*value)
	if !ok {
		return fmt.Errorf("not a value")
	}
	return obj.v.Cmp(other.v)
}

func typeNames(list []*types.Type) []string {
	out := []string{}
	for _, t := range list {
		out = append(out, t.String())
	}
	return out
}

func TestSymbolTable0(t *testing.T) {
	s1 := &value{types.NewInt(3)}
	s2 := &value{types.NewInt(4)}
	s3 := &value{types.NewFloat(5)}
	s4 := &value{types.NewInt(5)}
	s6 := &value{types.NewStr("a")}

	st := NewSymbolTable()
	if l := st.Len(); l != 0 {
		t.Errorf("expected an empty table, got %d", l)
	}

	if err := st.Set("s1", s1); err != nil {
		t.Errorf("set failed: %+v", err)
	}
	if l := st.Len(); l != 1 || !st.Contains("s1") {
		t.Errorf("expected s1 in the table")
	}
	if x, _ := st.Lookup("s1"); x != s1 {
		t.Errorf("unexpected lookup: %v", x)
	}
	if diff := pretty.Compare(util.SortedKeys(st.SymbolsByType(types.TypeInt)), []string{"s1"}); diff != "" {
		t.Errorf("unexpected symbols by type, diff: (-got +want)\n%s", diff)
	}

	st.Set("s2", s2)
	st.Set("s3", s3)
	if l := st.Len(); l != 3 {
		t.Errorf("expected three symbols, got %d", l)
	}
	if diff := pretty.Compare(util.SortedKeys(st.SymbolsByType(types.TypeInt)), []string{"s1", "s2"}); diff != "" {
		t.Errorf("unexpected int symbols, diff: (-got +want)\n%s", diff)
	}
	if diff := pretty.Compare(util.SortedKeys(st.SymbolsByType(types.TypeFloat)), []string{"s3"}); diff != "" {
		t.Errorf("unexpected float symbols, diff: (-got +want)\n%s", diff)
	}

	if !st.Delete("s1") {
		t.Errorf("expected s1 to be deleted")
	}
	if st.Delete("s1") {
		t.Errorf("expected a second delete to fail")
	}
	if l := st.Len(); l != 2 || st.Contains("s1") {
		t.Errorf("expected s1 to be gone")
	}
	if _, exists := st.SymbolsByType(types.TypeInt)["s1"]; exists {
		t.Errorf("expected s1 to be gone from the type index")
	}
	if diff := pretty.Compare(typeNames(st.Types()), []string{"float", "int"}); diff != "" {
		t.Errorf("unexpected types, diff: (-got +want)\n%s", diff)
	}

	stb := st.CreateScope()
	if !stb.Contains("s2") || !stb.Contains("s3") {
		t.Errorf("expected the child to see the parent")
	}
	stb.Set("s4", s4)
	if !stb.Contains("s4") || st.Contains("s4") {
		t.Errorf("expected the child write to be invisible to the parent")
	}
	stb.Set("s5", nil)
	if x, exists := stb.Lookup("s5"); !exists || x != nil {
		t.Errorf("expected s5 to be declared without a value")
	}

	stc := stb.CreateScope()
	stc.Set("s6", s6)
	if diff := pretty.Compare(typeNames(stc.Types()), []string{"float", "int", "str"}); diff != "" {
		t.Errorf("unexpected types, diff: (-got +want)\n%s", diff)
	}
	if diff := pretty.Compare(util.SortedKeys(stc.SymbolsByType(types.TypeInt)), []string{"s2", "s4"}); diff != "" {
		t.Errorf("unexpected int symbols, diff: (-got +want)\n%s", diff)
	}
	if diff := pretty.Compare(stc.Names(), []string{"s2", "s3", "s4", "s5", "s6"}); diff != "" {
		t.Errorf("unexpected names, diff: (-got +want)\n%s", diff)
	}
	if stc.Parent() != stb || stb.Parent() != st || st.Parent() != nil {
		t.Errorf("unexpected parent chain")
	}

	// a later parent write is visible to existing children
	st.Set("s7", s1)
	if !stc.Contains("s7") {
		t.Errorf("expected a later parent write to be visible")
	}
}

func TestSymbolTableShadow0(t *testing.T) {
	st := NewSymbolTable()
	st.Set("a", &value{types.NewInt(1)})

	child := st.CreateScope()
	if err := child.Set("a", &value{types.NewFloat(2)}); err != nil {
		t.Errorf("expected a compatible shadow to work: %+v", err)
	}
	if x, _ := child.Lookup("a"); x.String() != "2.0" {
		t.Errorf("expected the child to see its own binding, got: %s", x)
	}
	if x, _ := st.Lookup("a"); x.String() != "1" {
		t.Errorf("expected the parent binding to be intact, got: %s", x)
	}
	if !child.Delete("a") {
		t.Errorf("expected the shadow to be deleted")
	}
	if x, _ := child.Lookup("a"); x.String() != "1" {
		t.Errorf("expected the parent binding to be visible again, got: %s", x)
	}

	err := child.Set("a", &value{types.NewStr("x")})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected an incompatible shadow to fail, got: %+v", err)
	}
	if _, exists := child.symbols["a"]; exists {
		t.Errorf("expected a failed set to change nothing")
	}

	// a local rebind is an overwrite
	if err := st.Set("a", &value{types.NewStr("x")}); err != nil {
		t.Errorf("expected a local rebind to work: %+v", err)
	}
}
