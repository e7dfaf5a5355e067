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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	cliUtil "github.com/purpleidea/datalog/cli/util"
	"github.com/purpleidea/datalog/util/errwrap"
)

// QueryArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `query` subcommand.
type QueryArgs struct {
	cliUtil.ProgramArgs // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240
}

// Run loads the program, and prints the answer of each of its queries.
func (obj *QueryArgs) Run(ctx context.Context, data *cliUtil.Data, Logf func(format string, v ...interface{})) error {
	program := &Program{
		Input: obj.Input,
		Debug: data.Flags.Debug,
		Logf:  Logf,
	}
	if err := program.Init(); err != nil {
		return err
	}
	if len(program.Config.Queries) == 0 {
		Logf("program `%s` has no queries", program.Config.Program)
	}
	return answer(os.Stdout, program)
}

// answer writes each query of the program followed by its answer.
func answer(w io.Writer, program *Program) error {
	queries, err := program.Config.NewQueries()
	if err != nil {
		return errwrap.Wrapf(err, "invalid queries in `%s`", program.Config.Program)
	}
	for _, q := range queries {
		out, err := program.Solver.Walk(q)
		if err != nil {
			return errwrap.Wrapf(err, "query %s failed", q)
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", q, out); err != nil {
			return err
		}
	}
	return nil
}
