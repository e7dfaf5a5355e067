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
	"fmt"

	"github.com/purpleidea/datalog/lang/types"
)

// Expr represents an expression in the language. Expr implementations must
// have their method receivers implemented as pointer receivers so that they can
// be easily copied and moved around. An expression is never modified after it
// has been built. A rewrite produces a new expression instead, and the Cmp
// method is what tells a rewriter that nothing changed.
type Expr interface {
	fmt.Stringer

	// Type returns the declared type of this expression. It returns the to
	// be inferred type if nothing more specific is known yet.
	Type() *types.Type

	// Cmp compares this expression to another. It errors if they are not
	// structurally equal.
	Cmp(Expr) error

	// Apply is a general purpose iterator method that operates on any
	// expression. It visits the children before the expression itself.
	Apply(fn func(Expr) error) error
}

// Data provides some data to the node that could be useful during its lifetime.
type Data struct {
	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})
}

// NewData returns a Data struct that is safe to use. If the input is nil or has
// no logger, a logger that discards everything is used.
func NewData(data *Data) *Data {
	if data == nil {
		data = &Data{}
	}
	if data.Logf != nil {
		return data
	}
	return &Data{
		Debug: data.Debug,
		Logf:  func(format string, v ...interface{}) {},
	}
}
