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

package types

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/purpleidea/datalog/util"
	"github.com/purpleidea/datalog/util/errwrap"
)

const (
	// ErrUnsupportedTypeConstruct is returned when an open type variable
	// reaches a routine that needs concrete types. The lattice does not
	// support unbounded generics.
	ErrUnsupportedTypeConstruct = util.Error("unsupported type construct")
)

// Basic types defined here as a convenience for use with Type.Cmp(X).
var (
	TypeAny   = NewType("any")
	TypeInfer = NewType("?")
	TypeBool  = NewType("bool")
	TypeStr   = NewType("str")
	TypeInt   = NewType("int")
	TypeFloat = NewType("float")
	TypeSet   = NewType("set")
	TypeFunc  = NewType("func")
)

// The Kind represents the base type of each value.
type Kind int

// Each Kind represents a type in the language type system.
const (
	KindNil Kind = iota
	KindAny
	KindInfer // to be inferred
	KindBool
	KindStr
	KindInt
	KindFloat
	KindTuple
	KindSet
	KindList
	KindMap
	KindFunc
	KindUnion
	KindVar
)

// Type is the datastructure representing any type. It can be recursive for
// container types like sets, tuples, maps and functions. A container whose
// parameters are nil is the unparametrized (bare) generic, and it is a
// supertype of all of its parametrizations.
type Type struct {
	Kind Kind

	Val   *Type   // if Kind == Set or List, use Val only, Map uses Key too
	Key   *Type   // if Kind == Map, use Val and Key
	Elems []*Type // if Kind == Tuple or Union, the members in order
	Args  []*Type // if Kind == Func, use Args for Input, Out for Output
	Out   *Type
	Name  string // if Kind == Var, the name of the type variable
}

// TypeOf takes a reflect.Type and returns an equivalent *Type. It removes any
// pointers since our language does not support pointers. Slices and arrays
// become lists, maps with an empty struct value become sets, structs become
// tuples and functions become callables with their single return value.
func TypeOf(t reflect.Type) (*Type, error) {
	typ := t
	kind := typ.Kind()
	for kind == reflect.Ptr {
		typ = typ.Elem() // un-nest one pointer
		kind = typ.Kind()
	}

	switch kind { // match on destination field kind
	case reflect.Bool:
		return &Type{Kind: KindBool}, nil

	case reflect.String:
		return &Type{Kind: KindStr}, nil

	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		fallthrough
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		// we have only one kind of int type
		return &Type{Kind: KindInt}, nil

	case reflect.Float64, reflect.Float32:
		return &Type{Kind: KindFloat}, nil

	case reflect.Array, reflect.Slice:
		val, err := TypeOf(typ.Elem())
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindList, Val: val}, nil

	case reflect.Map:
		key, err := TypeOf(typ.Key())
		if err != nil {
			return nil, err
		}
		if elem := typ.Elem(); elem.Kind() == reflect.Struct && elem.NumField() == 0 {
			return &Type{Kind: KindSet, Val: key}, nil
		}
		val, err := TypeOf(typ.Elem())
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindMap, Key: key, Val: val}, nil

	case reflect.Struct:
		elems := []*Type{}
		for i := 0; i < typ.NumField(); i++ {
			tt, err := TypeOf(typ.Field(i).Type)
			if err != nil {
				return nil, err
			}
			elems = append(elems, tt)
		}
		return &Type{Kind: KindTuple, Elems: elems}, nil

	case reflect.Func:
		args := []*Type{}
		for i := 0; i < typ.NumIn(); i++ {
			tt, err := TypeOf(typ.In(i))
			if err != nil {
				return nil, err
			}
			args = append(args, tt)
		}

		if c := typ.NumOut(); c != 1 {
			return nil, fmt.Errorf("func has %d return values", c)
		}
		out, err := TypeOf(typ.Out(0))
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindFunc, Args: args, Out: out}, nil

	case reflect.Interface:
		return &Type{Kind: KindAny}, nil

	default:
		return nil, fmt.Errorf("unable to represent type of %s", typ.String())
	}
}

// NewType creates the Type from the string representation. It returns nil if
// the string can't be parsed.
func NewType(s string) *Type {
	s = strings.TrimSpace(s)
	switch s {
	case "any":
		return &Type{Kind: KindAny}
	case "?":
		return &Type{Kind: KindInfer}
	case "bool":
		return &Type{Kind: KindBool}
	case "str":
		return &Type{Kind: KindStr}
	case "int":
		return &Type{Kind: KindInt}
	case "float":
		return &Type{Kind: KindFloat}
	case "set":
		return &Type{Kind: KindSet}
	case "list":
		return &Type{Kind: KindList}
	case "map":
		return &Type{Kind: KindMap}
	case "tuple":
		return &Type{Kind: KindTuple}
	case "func":
		return &Type{Kind: KindFunc}
	}

	// KindList
	if strings.HasPrefix(s, "[]") {
		val := NewType(s[len("[]"):])
		if val == nil {
			return nil
		}
		return &Type{Kind: KindList, Val: val}
	}

	// KindVar
	if strings.HasPrefix(s, "var(") && strings.HasSuffix(s, ")") {
		name := strings.TrimSpace(s[len("var(") : len(s)-1])
		if name == "" {
			return nil
		}
		return &Type{Kind: KindVar, Name: name}
	}

	// KindSet
	if strings.HasPrefix(s, "set{") && strings.HasSuffix(s, "}") {
		val := NewType(s[len("set{") : len(s)-1])
		if val == nil {
			return nil
		}
		return &Type{Kind: KindSet, Val: val}
	}

	// KindMap
	if strings.HasPrefix(s, "map{") && strings.HasSuffix(s, "}") {
		pair := splitTop(s[len("map{"):len(s)-1], ':')
		if len(pair) != 2 {
			return nil
		}
		key, val := NewType(pair[0]), NewType(pair[1])
		if key == nil || val == nil {
			return nil
		}
		return &Type{Kind: KindMap, Key: key, Val: val}
	}

	// KindTuple and KindUnion
	for _, x := range []struct {
		prefix string
		kind   Kind
	}{{"tuple{", KindTuple}, {"union{", KindUnion}} {
		if !strings.HasPrefix(s, x.prefix) || !strings.HasSuffix(s, "}") {
			continue
		}
		elems, ok := newTypeList(s[len(x.prefix) : len(s)-1])
		if !ok {
			return nil
		}
		if x.kind == KindUnion && len(elems) < 2 {
			return nil // a union needs some choice
		}
		return &Type{Kind: x.kind, Elems: elems}
	}

	// KindFunc
	if strings.HasPrefix(s, "func(") {
		// find end of function...
		found := -1
		delta := 1 // we've got the first open bracket
		for i := len("func("); i < len(s); i++ {
			if s[i] == '(' {
				delta++
			}
			if s[i] == ')' {
				delta--
			}
			if delta == 0 {
				found = i
				break
			}
		}
		if found < 0 { // nesting is not paired...
			return nil
		}
		args, ok := newTypeList(s[len("func("):found])
		if !ok {
			return nil
		}
		typ := &Type{Kind: KindFunc, Args: args}
		if out := strings.TrimSpace(s[found+1:]); out != "" {
			if typ.Out = NewType(out); typ.Out == nil {
				return nil
			}
		}
		return typ
	}

	return nil // error (this also matches the empty string as input)
}

// newTypeList parses a comma separated list of types. The empty string is an
// empty, but non-nil list.
func newTypeList(s string) ([]*Type, bool) {
	list := []*Type{}
	if strings.TrimSpace(s) == "" {
		return list, true
	}
	for _, x := range splitTop(s, ',') {
		typ := NewType(x)
		if typ == nil {
			return nil, false
		}
		list = append(list, typ)
	}
	return list, true
}

// splitTop splits on the separator, but only at the top nesting level.
func splitTop(s string, sep byte) []string {
	out := []string{}
	delta := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '(':
			delta++
		case '}', ')':
			delta--
		case sep:
			if delta == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	return append(out, s[last:])
}

// String returns the textual representation for this type.
func (obj *Type) String() string {
	switch obj.Kind {
	case KindAny:
		return "any"
	case KindInfer:
		return "?"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"

	case KindList:
		if obj.Val == nil {
			return "list"
		}
		return "[]" + obj.Val.String()

	case KindSet:
		if obj.Val == nil {
			return "set"
		}
		return fmt.Sprintf("set{%s}", obj.Val.String())

	case KindMap:
		if obj.Key == nil || obj.Val == nil {
			return "map"
		}
		return fmt.Sprintf("map{%s: %s}", obj.Key.String(), obj.Val.String())

	case KindTuple:
		if obj.Elems == nil {
			return "tuple"
		}
		return fmt.Sprintf("tuple{%s}", typeList(obj.Elems))

	case KindUnion:
		return fmt.Sprintf("union{%s}", typeList(obj.Elems))

	case KindFunc:
		if obj.Args == nil {
			return "func"
		}
		var out string
		if obj.Out != nil {
			out = " " + obj.Out.String()
		}
		return fmt.Sprintf("func(%s)%s", typeList(obj.Args), out)

	case KindVar:
		return fmt.Sprintf("var(%s)", obj.Name)
	}

	panic("malformed type")
}

func typeList(list []*Type) string {
	s := make([]string, len(list))
	for i, t := range list {
		if t == nil {
			panic("malformed type list")
		}
		s[i] = t.String()
	}
	return strings.Join(s, ", ")
}

// Cmp compares this type to another. It errors if they are not structurally
// identical. This is type equality, not the subtype relation.
func (obj *Type) Cmp(typ *Type) error {
	if obj == nil || typ == nil {
		return fmt.Errorf("cannot compare to nil")
	}
	if obj.Kind != typ.Kind {
		return fmt.Errorf("base kind does not match (%s != %s)", obj, typ)
	}

	switch obj.Kind {
	case KindSet, KindList:
		if obj.Val == nil && typ.Val == nil {
			return nil
		}
		if obj.Val == nil || typ.Val == nil {
			return fmt.Errorf("parametrization differs (%s != %s)", obj, typ)
		}
		return obj.Val.Cmp(typ.Val)

	case KindMap:
		if obj.IsBare() && typ.IsBare() {
			return nil
		}
		if obj.IsBare() || typ.IsBare() {
			return fmt.Errorf("parametrization differs (%s != %s)", obj, typ)
		}
		kerr := obj.Key.Cmp(typ.Key)
		verr := obj.Val.Cmp(typ.Val)
		return errwrap.Append(kerr, verr) // maybe two errors

	case KindTuple, KindUnion:
		return cmpList(obj.Elems, typ.Elems)

	case KindFunc:
		if err := cmpList(obj.Args, typ.Args); err != nil {
			return errwrap.Wrapf(err, "func args differ")
		}
		if obj.Out == nil && typ.Out == nil {
			return nil
		}
		if obj.Out == nil || typ.Out == nil {
			return fmt.Errorf("func return differs")
		}
		return obj.Out.Cmp(typ.Out)

	case KindVar:
		if obj.Name != typ.Name {
			return fmt.Errorf("type variables differ (%s != %s)", obj.Name, typ.Name)
		}
	}
	return nil
}

func cmpList(a, b []*Type) error {
	if (a == nil) != (b == nil) {
		return fmt.Errorf("parametrization differs")
	}
	if len(a) != len(b) {
		return fmt.Errorf("length differs (%d != %d)", len(a), len(b))
	}
	for i := range a {
		if err := a[i].Cmp(b[i]); err != nil {
			return err
		}
	}
	return nil
}

// IsBare returns true for a container type without its parametrization. A bare
// set, list or map is a supertype of all of its parametrizations.
func (obj *Type) IsBare() bool {
	switch obj.Kind {
	case KindSet, KindList:
		return obj.Val == nil
	case KindMap:
		return obj.Key == nil || obj.Val == nil
	}
	return false
}

// Copy copies this type so that inplace modification won't affect the original.
func (obj *Type) Copy() *Type {
	if obj == nil {
		return nil
	}
	return &Type{
		Kind:  obj.Kind,
		Val:   obj.Val.Copy(),
		Key:   obj.Key.Copy(),
		Elems: copyList(obj.Elems),
		Args:  copyList(obj.Args),
		Out:   obj.Out.Copy(),
		Name:  obj.Name,
	}
}

func copyList(list []*Type) []*Type {
	if list == nil {
		return nil
	}
	out := make([]*Type, len(list))
	for i, t := range list {
		out[i] = t.Copy()
	}
	return out
}

// HasVariable tells us if the type contains any mention of a type variable.
func (obj *Type) HasVariable() bool {
	if obj == nil {
		return false
	}
	if obj.Kind == KindVar {
		return true // found it!
	}
	if obj.Val.HasVariable() || obj.Key.HasVariable() || obj.Out.HasVariable() {
		return true
	}
	for _, t := range obj.Elems {
		if t.HasVariable() {
			return true
		}
	}
	for _, t := range obj.Args {
		if t.HasVariable() {
			return true
		}
	}
	return false
}

// IsCallable returns true if this is a function type.
func (obj *Type) IsCallable() bool {
	return obj != nil && obj.Kind == KindFunc
}
