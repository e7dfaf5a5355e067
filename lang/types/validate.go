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

// ValidateValue returns true if the value structurally conforms to the type.
// It recurses into tuple elements, set and list members, map keys and values,
// and accepts a union if any of its members accept the value. Since int is a
// subtype of float, an int value validates as a float. It errors if the type
// contains an open type variable.
func ValidateValue(v Value, typ *Type) (bool, error) {
	if typ == nil {
		return false, errwrap.Wrapf(ErrUnsupportedTypeConstruct, "cannot validate against a nil type")
	}
	if typ.HasVariable() {
		return false, errwrap.Wrapf(ErrUnsupportedTypeConstruct, "type variable in %s", typ)
	}
	if v == nil {
		return false, nil
	}
	return validate(v, typ), nil
}

func validate(v Value, typ *Type) bool {
	switch typ.Kind {
	case KindAny, KindInfer:
		return true

	case KindUnion:
		for _, t := range typ.Elems {
			if validate(v, t) {
				return true
			}
		}
		return false

	case KindBool:
		_, ok := v.(*BoolValue)
		return ok

	case KindStr:
		_, ok := v.(*StrValue)
		return ok

	case KindInt:
		_, ok := v.(*IntValue)
		return ok

	case KindFloat:
		_, ok := number(v)
		return ok

	case KindTuple:
		x, ok := v.(*TupleValue)
		if !ok {
			return false
		}
		if typ.Elems == nil {
			return true
		}
		if len(x.V) != len(typ.Elems) {
			return false
		}
		for i, e := range x.V {
			if !validate(e, typ.Elems[i]) {
				return false
			}
		}
		return true

	case KindSet:
		x, ok := v.(*SetValue)
		if !ok {
			return false
		}
		if typ.Val == nil {
			return true
		}
		for _, e := range x.V {
			if !validate(e, typ.Val) {
				return false
			}
		}
		return true

	case KindList:
		x, ok := v.(*ListValue)
		if !ok {
			return false
		}
		if typ.Val == nil {
			return true
		}
		for _, e := range x.V {
			if !validate(e, typ.Val) {
				return false
			}
		}
		return true

	case KindMap:
		x, ok := v.(*MapValue)
		if !ok {
			return false
		}
		if typ.IsBare() {
			return true
		}
		for k, key := range x.K {
			if !validate(key, typ.Key) || !validate(x.V[k], typ.Val) {
				return false
			}
		}
		return true

	case KindFunc:
		x, ok := v.(*FuncValue)
		if !ok {
			return false
		}
		return isSubtype(x.Type(), typ)
	}

	return false
}
