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
	"os"

	cliUtil "github.com/purpleidea/datalog/cli/util"
	"github.com/purpleidea/datalog/prometheus"
	"github.com/purpleidea/datalog/util/errwrap"
	"github.com/purpleidea/datalog/watch"
)

// SolveArgs is the CLI parsing structure and type of the parsed result. This
// particular one contains all the flags for the `solve` subcommand.
type SolveArgs struct {
	cliUtil.ProgramArgs // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240

	Parallel bool `arg:"--parallel" help:"apply all the rules of a chase round concurrently"`

	Prometheus       bool   `arg:"--prometheus" help:"start a prometheus instance"`
	PrometheusListen string `arg:"--prometheus-listen" help:"specify prometheus instance binding"`

	Watch bool `arg:"--watch" help:"solve again each time the program changes"`
}

// Run loads the program, and prints the least fixpoint of it as facts. With
// the watch flag it keeps going until the context is cancelled, and a program
// that fails to load or solve is logged instead of returned.
func (obj *SolveArgs) Run(ctx context.Context, data *cliUtil.Data, Logf func(format string, v ...interface{})) error {
	var metrics *prometheus.Prometheus
	if obj.Prometheus {
		metrics = &prometheus.Prometheus{
			Listen: obj.PrometheusListen,
		}
		if err := metrics.Init(); err != nil {
			return errwrap.Wrapf(err, "can't initialize prometheus instance")
		}
		if err := metrics.Start(); err != nil {
			return errwrap.Wrapf(err, "can't start prometheus instance")
		}
		Logf("prometheus: serving metrics on %s", metrics.Listen)
		defer func() {
			if err := metrics.Stop(); err != nil {
				Logf("prometheus: stop error: %+v", err)
			}
		}()
	}

	solve := func() error {
		program := &Program{
			Input: obj.Input,
			Debug: data.Flags.Debug,
			Logf:  Logf,
		}
		if err := program.Init(); err != nil {
			return err
		}
		engine, err := program.Engine(obj.Parallel)
		if err != nil {
			return err
		}
		engine.Metrics = metrics
		instance, err := engine.Solution()
		if err != nil {
			return errwrap.Wrapf(err, "can't solve `%s`", program.Config.Program)
		}
		return printInstance(os.Stdout, instance)
	}

	if !obj.Watch {
		return solve()
	}

	watcher := &watch.FileWatcher{
		Path:  obj.Input,
		Debug: data.Flags.Debug,
		Logf: func(format string, v ...interface{}) {
			Logf("watch: "+format, v...)
		},
	}
	if err := watcher.Init(); err != nil {
		return err
	}
	defer watcher.Close()

	if err := solve(); err != nil {
		Logf("error: %+v", err)
	}
	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if err := event.Error; err != nil {
				return err
			}
			Logf("%s changed", obj.Input)
			if err := solve(); err != nil {
				Logf("error: %+v", err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}
