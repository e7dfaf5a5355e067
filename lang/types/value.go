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
	"sort"
	"strconv"
	"strings"

	"github.com/purpleidea/datalog/util/errwrap"
)

// Value represents an interface to get values out of each type. It is similar
// to the reflection interfaces used in the golang standard library.
type Value interface {
	fmt.Stringer // String() string (also the canonical identity of the value)
	Type() *Type
	Less(Value) bool // to find the smaller of the two values (for sort)
	Cmp(Value) error // error if the two values aren't the same
	Value() interface{}
}

// ValueOfGolang is a helper that takes a golang value, and produces the
// equivalent internal representation. This is very useful for writing tests.
func ValueOfGolang(i interface{}) (Value, error) {
	if v, ok := i.(Value); ok {
		return v, nil // already converted
	}
	if i == nil {
		return nil, fmt.Errorf("unable to represent nil")
	}
	return ValueOf(reflect.ValueOf(i))
}

// ValueOf takes a reflect.Value and returns an equivalent Value.
func ValueOf(v reflect.Value) (Value, error) {
	value := v
	kind := value.Kind()
	for {
		if value.IsValid() && value.CanInterface() {
			if x, ok := value.Interface().(Value); ok && x != nil {
				return x, nil // already one of ours
			}
		}
		if kind != reflect.Ptr && kind != reflect.Interface {
			break
		}
		if value.IsNil() {
			return nil, fmt.Errorf("unable to represent nil")
		}
		value = value.Elem() // un-nest value from pointer
		kind = value.Kind()
	}

	switch kind { // match on destination field kind
	case reflect.Bool:
		return &BoolValue{V: value.Bool()}, nil

	case reflect.String:
		return &StrValue{V: value.String()}, nil

	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return &IntValue{V: value.Int()}, nil

	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return &IntValue{V: int64(value.Uint())}, nil

	case reflect.Float64, reflect.Float32:
		return &FloatValue{V: value.Float()}, nil

	case reflect.Array, reflect.Slice:
		values := []Value{}
		for i := 0; i < value.Len(); i++ {
			x, err := ValueOf(value.Index(i)) // recurse
			if err != nil {
				return nil, err
			}
			values = append(values, x)
		}
		t, err := TypeOf(value.Type().Elem()) // type of contents
		if err != nil {
			return nil, errwrap.Wrapf(err, "can't determine type of %+v", value)
		}
		return &ListValue{T: &Type{Kind: KindList, Val: t}, V: values}, nil

	case reflect.Map:
		isSet := value.Type().Elem().Kind() == reflect.Struct && value.Type().Elem().NumField() == 0
		set := NewSet()
		m := NewMap()
		// loop through the list of map keys in undefined order
		for _, mk := range value.MapKeys() {
			k, err := ValueOf(mk) // recurse
			if err != nil {
				return nil, err
			}
			if isSet {
				set.Add(k)
				continue
			}
			x, err := ValueOf(value.MapIndex(mk)) // recurse
			if err != nil {
				return nil, err
			}
			m.Add(k, x)
		}
		if isSet {
			return set, nil
		}
		return m, nil

	case reflect.Struct:
		values := []Value{}
		for i := 0; i < value.NumField(); i++ {
			x, err := ValueOf(value.Field(i)) // recurse
			if err != nil {
				return nil, err
			}
			values = append(values, x)
		}
		return NewTuple(values...), nil

	case reflect.Func:
		t, err := TypeOf(value.Type())
		if err != nil {
			return nil, errwrap.Wrapf(err, "can't determine type of %+v", value)
		}
		return &FuncValue{T: t, V: reflectFunc(value)}, nil

	default:
		return nil, fmt.Errorf("unable to represent value of %+v", v)
	}
}

// reflectFunc wraps a golang function so that it takes and returns values.
func reflectFunc(fn reflect.Value) func([]Value) (Value, error) {
	return func(args []Value) (result Value, reterr error) {
		typ := fn.Type()
		if len(args) != typ.NumIn() {
			return nil, fmt.Errorf("expected %d args, got %d", typ.NumIn(), len(args))
		}
		in := []reflect.Value{}
		for i, x := range args {
			if reflect.TypeOf(x).AssignableTo(typ.In(i)) {
				in = append(in, reflect.ValueOf(x)) // takes a Value
				continue
			}
			v := reflect.ValueOf(x.Value())
			if !v.Type().ConvertibleTo(typ.In(i)) {
				return nil, fmt.Errorf("arg %d of type %s is not usable as %s", i, x.Type(), typ.In(i))
			}
			in = append(in, v.Convert(typ.In(i)))
		}

		defer func() {
			if r := recover(); r != nil {
				reterr = fmt.Errorf("function panicked: %v", r)
			}
		}()
		out := fn.Call(in) // []reflect.Value
		if len(out) != 1 {
			return nil, fmt.Errorf("can only represent functions with one output value")
		}
		return ValueOf(out[0]) // recurse
	}
}

// ValueSlice is a linear list of values. It is used for sorting purposes.
type ValueSlice []Value

func (vs ValueSlice) Len() int           { return len(vs) }
func (vs ValueSlice) Swap(i, j int)      { vs[i], vs[j] = vs[j], vs[i] }
func (vs ValueSlice) Less(i, j int) bool { return vs[i].Less(vs[j]) }

// cmpValues is the shared implementation of Cmp. The canonical string of a
// value identifies it, and it includes enough type information to tell ints
// and floats apart.
func cmpValues(obj, val Value) error {
	if obj == nil || val == nil {
		return fmt.Errorf("cannot cmp to nil")
	}
	if err := obj.Type().Cmp(val.Type()); err != nil {
		return errwrap.Wrapf(err, "cannot cmp types")
	}
	if obj.String() != val.String() {
		return fmt.Errorf("values are different (%s != %s)", obj, val)
	}
	return nil
}

// lessValues orders numbers numerically and everything else by type and then
// by canonical string. It gives every set a deterministic iteration order.
func lessValues(a, b Value) bool {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		if af != bf {
			return af < bf
		}
		return a.String() < b.String()
	}
	if at, bt := a.Type().String(), b.Type().String(); at != bt {
		return at < bt
	}
	return a.String() < b.String()
}

func number(v Value) (float64, bool) {
	switch x := v.(type) {
	case *IntValue:
		return float64(x.V), true
	case *FloatValue:
		return x.V, true
	}
	return 0, false
}

// BoolValue represents a boolean value.
type BoolValue struct {
	V bool
}

// NewBool creates a new boolean value.
func NewBool(b bool) *BoolValue { return &BoolValue{V: b} }

// String returns a visual representation of this value.
func (obj *BoolValue) String() string { return strconv.FormatBool(obj.V) }

// Type returns the type data structure that represents this type.
func (obj *BoolValue) Type() *Type { return &Type{Kind: KindBool} }

// Less compares to value and returns true if we're smaller.
func (obj *BoolValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *BoolValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *BoolValue) Value() interface{} { return obj.V }

// StrValue represents a string value.
type StrValue struct {
	V string
}

// NewStr creates a new string value.
func NewStr(s string) *StrValue { return &StrValue{V: s} }

// String returns a visual representation of this value.
func (obj *StrValue) String() string { return strconv.Quote(obj.V) }

// Type returns the type data structure that represents this type.
func (obj *StrValue) Type() *Type { return &Type{Kind: KindStr} }

// Less compares to value and returns true if we're smaller.
func (obj *StrValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *StrValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *StrValue) Value() interface{} { return obj.V }

// IntValue represents an integer value.
type IntValue struct {
	V int64
}

// NewInt creates a new int value.
func NewInt(i int64) *IntValue { return &IntValue{V: i} }

// String returns a visual representation of this value.
func (obj *IntValue) String() string { return strconv.FormatInt(obj.V, 10) }

// Type returns the type data structure that represents this type.
func (obj *IntValue) Type() *Type { return &Type{Kind: KindInt} }

// Less compares to value and returns true if we're smaller.
func (obj *IntValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *IntValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *IntValue) Value() interface{} { return obj.V }

// FloatValue represents a floating point value.
type FloatValue struct {
	V float64
}

// NewFloat creates a new float value.
func NewFloat(f float64) *FloatValue { return &FloatValue{V: f} }

// String returns a visual representation of this value. It always contains a
// decimal point or an exponent so that it never collides with an integer.
func (obj *FloatValue) String() string {
	s := strconv.FormatFloat(obj.V, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") { // not Inf or NaN either
		s += ".0"
	}
	return s
}

// Type returns the type data structure that represents this type.
func (obj *FloatValue) Type() *Type { return &Type{Kind: KindFloat} }

// Less compares to value and returns true if we're smaller.
func (obj *FloatValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *FloatValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *FloatValue) Value() interface{} { return obj.V }

// TupleValue represents a fixed arity, ordered tuple of values.
type TupleValue struct {
	V []Value
}

// NewTuple creates a new tuple from the elements.
func NewTuple(values ...Value) *TupleValue {
	if values == nil {
		values = []Value{}
	}
	return &TupleValue{V: values}
}

// String returns a visual representation of this value.
func (obj *TupleValue) String() string {
	s := make([]string, len(obj.V))
	for i, x := range obj.V {
		s[i] = x.String()
	}
	if len(s) == 1 {
		return fmt.Sprintf("(%s,)", s[0])
	}
	return fmt.Sprintf("(%s)", strings.Join(s, ", "))
}

// Type returns the type data structure that represents this type.
func (obj *TupleValue) Type() *Type {
	elems := make([]*Type, len(obj.V))
	for i, x := range obj.V {
		elems[i] = x.Type()
	}
	return &Type{Kind: KindTuple, Elems: elems}
}

// Less compares to value and returns true if we're smaller. Tuples of the same
// arity are compared element by element.
func (obj *TupleValue) Less(v Value) bool {
	other, ok := v.(*TupleValue)
	if !ok || len(other.V) != len(obj.V) {
		return lessValues(obj, v)
	}
	for i := range obj.V {
		if obj.V[i].Less(other.V[i]) {
			return true
		}
		if other.V[i].Less(obj.V[i]) {
			return false
		}
	}
	return false
}

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *TupleValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *TupleValue) Value() interface{} {
	out := make([]interface{}, len(obj.V))
	for i, x := range obj.V {
		out[i] = x.Value()
	}
	return out
}

// Len returns the arity of the tuple.
func (obj *TupleValue) Len() int { return len(obj.V) }

// SetValue represents an unordered set of values. Elements are identified by
// their canonical string, so two equal values are never stored twice. Once a
// set has been handed to a constant it must not be modified; use Union to
// build a new one instead.
type SetValue struct {
	V map[string]Value
}

// NewSet creates a new set containing the values.
func NewSet(values ...Value) *SetValue {
	obj := &SetValue{V: make(map[string]Value)}
	for _, x := range values {
		obj.Add(x)
	}
	return obj
}

// Add inserts a value into this set. It returns true if it was not present.
func (obj *SetValue) Add(v Value) bool {
	key := v.String()
	if _, exists := obj.V[key]; exists {
		return false
	}
	obj.V[key] = v
	return true
}

// Contains returns true if the value is a member of this set.
func (obj *SetValue) Contains(v Value) bool {
	_, exists := obj.V[v.String()]
	return exists
}

// Len returns the number of elements.
func (obj *SetValue) Len() int { return len(obj.V) }

// Values returns the elements in sorted order.
func (obj *SetValue) Values() []Value {
	values := ValueSlice{}
	for _, x := range obj.V {
		values = append(values, x)
	}
	sort.Sort(values)
	return values
}

// Union returns a new set with the elements of both sets.
func (obj *SetValue) Union(other *SetValue) *SetValue {
	out := NewSet()
	for k, x := range obj.V {
		out.V[k] = x
	}
	if other != nil {
		for k, x := range other.V {
			out.V[k] = x
		}
	}
	return out
}

// Difference returns a new set with the elements not present in the other.
func (obj *SetValue) Difference(other *SetValue) *SetValue {
	out := NewSet()
	for k, x := range obj.V {
		if other != nil {
			if _, exists := other.V[k]; exists {
				continue
			}
		}
		out.V[k] = x
	}
	return out
}

// IsSubset returns true if every element of this set is in the other set.
func (obj *SetValue) IsSubset(other *SetValue) bool {
	for k := range obj.V {
		if _, exists := other.V[k]; !exists {
			return false
		}
	}
	return true
}

// String returns a visual representation of this value.
func (obj *SetValue) String() string {
	values := obj.Values()
	s := make([]string, len(values))
	for i, x := range values {
		s[i] = x.String()
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ", "))
}

// Type returns the type data structure that represents this type. The element
// type is the join of the element types, and the empty set has the bare type.
func (obj *SetValue) Type() *Type {
	return &Type{Kind: KindSet, Val: joinAll(obj.Values())}
}

// Less compares to value and returns true if we're smaller.
func (obj *SetValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *SetValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type as a sorted list.
func (obj *SetValue) Value() interface{} {
	out := []interface{}{}
	for _, x := range obj.Values() {
		out = append(out, x.Value())
	}
	return out
}

// ListValue represents an ordered sequence of values of a single type.
type ListValue struct {
	T *Type
	V []Value
}

// String returns a visual representation of this value.
func (obj *ListValue) String() string {
	s := make([]string, len(obj.V))
	for i, x := range obj.V {
		s[i] = x.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(s, ", "))
}

// Type returns the type data structure that represents this type.
func (obj *ListValue) Type() *Type {
	if obj.T != nil {
		return obj.T
	}
	return &Type{Kind: KindList, Val: joinAll(obj.V)}
}

// Less compares to value and returns true if we're smaller.
func (obj *ListValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *ListValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *ListValue) Value() interface{} {
	out := make([]interface{}, len(obj.V))
	for i, x := range obj.V {
		out[i] = x.Value()
	}
	return out
}

// MapValue represents a dictionary. Keys are identified by their canonical
// string.
type MapValue struct {
	K map[string]Value
	V map[string]Value
}

// NewMap creates a new empty map.
func NewMap() *MapValue {
	return &MapValue{
		K: make(map[string]Value),
		V: make(map[string]Value),
	}
}

// Add sets the key to the value.
func (obj *MapValue) Add(k, v Value) {
	obj.K[k.String()] = k
	obj.V[k.String()] = v
}

func (obj *MapValue) keys() []Value {
	keys := ValueSlice{}
	for _, k := range obj.K {
		keys = append(keys, k)
	}
	sort.Sort(keys)
	return keys
}

// String returns a visual representation of this value.
func (obj *MapValue) String() string {
	s := []string{}
	for _, k := range obj.keys() {
		s = append(s, fmt.Sprintf("%s: %s", k, obj.V[k.String()]))
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ", "))
}

// Type returns the type data structure that represents this type.
func (obj *MapValue) Type() *Type {
	values := []Value{}
	for _, x := range obj.V {
		values = append(values, x)
	}
	key, val := joinAll(obj.keys()), joinAll(values)
	if key == nil || val == nil {
		key, val = &Type{Kind: KindAny}, &Type{Kind: KindAny}
	}
	return &Type{Kind: KindMap, Key: key, Val: val}
}

// Less compares to value and returns true if we're smaller.
func (obj *MapValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *MapValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type keyed by the canonical key string.
func (obj *MapValue) Value() interface{} {
	out := make(map[string]interface{})
	for k, x := range obj.V {
		out[k] = x.Value()
	}
	return out
}

// FuncValue represents a function value. The Name is optional, but named
// functions print and compare by name.
type FuncValue struct {
	T    *Type
	Name string
	V    func([]Value) (Value, error)
}

// NewFunc wraps an arbitrary golang function under a name.
func NewFunc(name string, fn interface{}) (*FuncValue, error) {
	v, err := ValueOfGolang(fn)
	if err != nil {
		return nil, err
	}
	f, ok := v.(*FuncValue)
	if !ok {
		return nil, fmt.Errorf("%s is not a function", name)
	}
	f.Name = name
	return f, nil
}

// String returns a visual representation of this value.
func (obj *FuncValue) String() string {
	if obj.Name != "" {
		return obj.Name
	}
	return fmt.Sprintf("<%s %p>", obj.Type(), obj.V)
}

// Type returns the type data structure that represents this type.
func (obj *FuncValue) Type() *Type {
	if obj.T == nil {
		return &Type{Kind: KindFunc}
	}
	return obj.T
}

// Less compares to value and returns true if we're smaller.
func (obj *FuncValue) Less(v Value) bool { return lessValues(obj, v) }

// Cmp returns an error if this value isn't the same as the arg passed in.
func (obj *FuncValue) Cmp(val Value) error { return cmpValues(obj, val) }

// Value returns the raw value of this type.
func (obj *FuncValue) Value() interface{} { return obj.V }

// Call runs the function with the arguments.
func (obj *FuncValue) Call(args []Value) (Value, error) {
	if obj.V == nil {
		return nil, fmt.Errorf("function %s has no implementation", obj)
	}
	return obj.V(args)
}

// joinAll returns the join of all the value types, or nil for no values.
func joinAll(values []Value) *Type {
	var typ *Type
	for _, x := range values {
		if typ == nil {
			typ = x.Type()
			continue
		}
		typ = lub(typ, x.Type())
	}
	return typ
}
