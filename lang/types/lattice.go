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
	"github.com/purpleidea/datalog/util/errwrap"
)

// IsSubtype returns true if the left type is a subtype of the right one. The
// relation is a reflexive and transitive partial order. Containers are
// covariant in their parameters, functions need identical arguments and a
// covariant return type, a union on the right needs one matching member and a
// union on the left needs every member to match. Everything is a subtype of
// any. It errors if either type contains an open type variable.
func IsSubtype(left, right *Type) (bool, error) {
	if left == nil || right == nil {
		return false, errwrap.Wrapf(ErrUnsupportedTypeConstruct, "cannot compare nil types")
	}
	if left.HasVariable() {
		return false, errwrap.Wrapf(ErrUnsupportedTypeConstruct, "type variable in %s", left)
	}
	if right.HasVariable() {
		return false, errwrap.Wrapf(ErrUnsupportedTypeConstruct, "type variable in %s", right)
	}
	return isSubtype(left, right), nil
}

// isSubtype is the recursive part of IsSubtype. It expects no type variables.
func isSubtype(left, right *Type) bool {
	if right.Kind == KindAny || right.Kind == KindInfer {
		return true
	}
	if left.Kind == KindUnion { // every member must fit
		for _, t := range left.Elems {
			if !isSubtype(t, right) {
				return false
			}
		}
		return true
	}
	if right.Kind == KindUnion { // one member must fit
		for _, t := range right.Elems {
			if isSubtype(left, t) {
				return true
			}
		}
		return false
	}

	switch right.Kind {
	case KindBool, KindStr, KindInt:
		return left.Kind == right.Kind

	case KindFloat:
		return left.Kind == KindFloat || left.Kind == KindInt

	case KindSet, KindList, KindMap:
		if left.Kind != right.Kind {
			return false
		}
		if right.IsBare() {
			return true // bare generic
		}
		if left.IsBare() {
			return false
		}
		if right.Kind == KindMap && !isSubtype(left.Key, right.Key) {
			return false
		}
		return isSubtype(left.Val, right.Val)

	case KindTuple:
		if left.Kind != KindTuple {
			return false
		}
		if right.Elems == nil {
			return true
		}
		if left.Elems == nil || len(left.Elems) != len(right.Elems) {
			return false
		}
		for i := range left.Elems {
			if !isSubtype(left.Elems[i], right.Elems[i]) {
				return false
			}
		}
		return true

	case KindFunc:
		if left.Kind != KindFunc {
			return false
		}
		if right.Args == nil {
			return true
		}
		if left.Args == nil || len(left.Args) != len(right.Args) {
			return false
		}
		for i := range left.Args { // arguments must match exactly
			if left.Args[i].Cmp(right.Args[i]) != nil {
				return false
			}
		}
		if right.Out == nil || left.Out == nil {
			return right.Out == nil && left.Out == nil
		}
		return isSubtype(left.Out, right.Out)
	}

	return false
}

// Unify returns the most specific type that is a supertype of both inputs. If
// either input is the to be inferred placeholder, the other one is returned.
// Incomparable containers of the same kind are joined parameter by parameter
// and anything else that is incomparable joins to a union.
func Unify(a, b *Type) (*Type, error) {
	if a == nil || b == nil {
		return nil, errwrap.Wrapf(ErrUnsupportedTypeConstruct, "cannot unify nil types")
	}
	if a.Kind == KindInfer {
		return b, nil
	}
	if b.Kind == KindInfer {
		return a, nil
	}
	ok, err := IsSubtype(a, b)
	if err != nil {
		return nil, err
	}
	if ok {
		return b, nil
	}
	if isSubtype(b, a) {
		return a, nil
	}
	return join(a, b), nil
}

// join builds the least upper bound of two incomparable types.
func join(a, b *Type) *Type {
	if a.Kind == b.Kind {
		switch a.Kind {
		case KindSet, KindList:
			if a.Val == nil || b.Val == nil {
				return &Type{Kind: a.Kind} // bare
			}
			return &Type{Kind: a.Kind, Val: lub(a.Val, b.Val)}

		case KindMap:
			if a.IsBare() || b.IsBare() {
				return &Type{Kind: KindMap}
			}
			return &Type{Kind: KindMap, Key: lub(a.Key, b.Key), Val: lub(a.Val, b.Val)}

		case KindTuple:
			if a.Elems == nil || b.Elems == nil {
				return &Type{Kind: KindTuple}
			}
			if len(a.Elems) == len(b.Elems) {
				elems := make([]*Type, len(a.Elems))
				for i := range a.Elems {
					elems[i] = lub(a.Elems[i], b.Elems[i])
				}
				return &Type{Kind: KindTuple, Elems: elems}
			}
		}
	}
	return NewUnion(a, b)
}

// lub is Unify for callers that already know there are no type variables.
func lub(a, b *Type) *Type {
	if a.Kind == KindInfer {
		return b
	}
	if b.Kind == KindInfer || isSubtype(b, a) {
		return a
	}
	if isSubtype(a, b) {
		return b
	}
	return join(a, b)
}

// NewUnion builds a normalized union of the input types. Nested unions are
// flattened, members subsumed by another member are dropped, and if only one
// member remains it is returned directly.
func NewUnion(types ...*Type) *Type {
	flat := []*Type{}
	for _, t := range types {
		if t.Kind == KindUnion {
			flat = append(flat, t.Elems...)
			continue
		}
		flat = append(flat, t)
	}

	elems := []*Type{}
	for i, t := range flat {
		subsumed := false
		for j, u := range flat {
			if i == j || !isSubtype(t, u) {
				continue
			}
			// equal members: keep the first
			if !isSubtype(u, t) || j < i {
				subsumed = true
				break
			}
		}
		if !subsumed {
			elems = append(elems, t)
		}
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return &Type{Kind: KindUnion, Elems: elems}
}

// ReplaceTypeVariable substitutes every occurrence of the type variable with
// the value type, returning a new type. If the variable does not occur, the
// input type is returned unchanged.
func ReplaceTypeVariable(value, typ, variable *Type) *Type {
	if typ == nil || variable == nil || variable.Kind != KindVar {
		return typ
	}
	if !typ.HasVariable() {
		return typ
	}
	return replace(value, typ, variable.Name)
}

func replace(value, typ *Type, name string) *Type {
	if typ == nil {
		return nil
	}
	if typ.Kind == KindVar {
		if typ.Name == name {
			return value
		}
		return typ
	}
	out := &Type{
		Kind: typ.Kind,
		Val:  replace(value, typ.Val, name),
		Key:  replace(value, typ.Key, name),
		Out:  replace(value, typ.Out, name),
		Name: typ.Name,
	}
	if typ.Elems != nil {
		out.Elems = make([]*Type, len(typ.Elems))
		for i, t := range typ.Elems {
			out.Elems[i] = replace(value, t, name)
		}
	}
	if typ.Args != nil {
		out.Args = make([]*Type, len(typ.Args))
		for i, t := range typ.Args {
			out.Args[i] = replace(value, t, name)
		}
	}
	return out
}
