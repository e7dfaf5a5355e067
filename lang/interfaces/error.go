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
)

// Error is a constant error type that implements error.
type Error = util.Error

const (
	// ErrTypeMismatch is returned when a constant is built with a value
	// that does not conform to its declared type, or when a value has the
	// wrong type for the place it is used in.
	ErrTypeMismatch = Error("type mismatch")

	// ErrNotCallable is returned when the functor of an application is not
	// a callable value.
	ErrNotCallable = Error("not callable")

	// ErrUnboundSymbol is returned when a symbol has no entry in the active
	// scope chain and the evaluator is not in simplify mode.
	ErrUnboundSymbol = Error("symbol is not bound")

	// ErrNonConjunctiveBody is returned when a rule body contains a
	// disjunction, a negation or a predicate applied to the result of
	// another predicate.
	ErrNonConjunctiveBody = Error("rule body is not conjunctive")

	// ErrFreeVariable is returned when the free variables of an expression
	// can't be determined, or when a fact is not ground.
	ErrFreeVariable = Error("free variable error")

	// ErrArityMismatch is returned when a predicate is used with a number
	// of arguments that differs from the arity of its stored tuples.
	ErrArityMismatch = Error("arity mismatch")

	// ErrExtensionalRedefinition is returned when a predicate would take a
	// name that is already bound to something else, such as a builtin.
	ErrExtensionalRedefinition = Error("predicate redefinition")

	// ErrUnsupportedTypeConstruct is returned when an open type variable
	// reaches the subtype or validation routines.
	ErrUnsupportedTypeConstruct = types.ErrUnsupportedTypeConstruct
)
