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

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cliUtil "github.com/purpleidea/datalog/cli/util"

	"github.com/spf13/afero"
)

const program = `
program: ages
facts:
  Person:
    - [alice, 31]
    - [bob, 12]
  Parent:
    - [alice, bob]
rules:
  - head: {Adult: [$x]}
    body:
      - Person: [$x, $a]
      - ge: [$a, 18]
  - head: {Family: [$x, $y]}
    body:
      - Parent: [$x, $y]
  - head: {Family: [$x, $y]}
    body:
      - Family: [$y, $x]
queries:
  - head: [$x]
    body:
      - Adult: [$x]
  - head: [$x, $y]
    body:
      - Family: [$x, $y]
      - prefix: [$x, b]
`

func newProgram(t *testing.T, doc string) *Program {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/ages.yaml", []byte(doc), 0644); err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	obj := &Program{
		Input: "/ages.yaml",
		Fs:    fs,
		Debug: true,
		Logf:  t.Logf,
	}
	if err := obj.Init(); err != nil {
		t.Fatalf("could not init: %+v", err)
	}
	return obj
}

func TestProgram0(t *testing.T) {
	obj := newProgram(t, program)
	engine, err := obj.Engine(false)
	if err != nil {
		t.Fatalf("could not build engine: %+v", err)
	}
	instance, err := engine.Solution()
	if err != nil {
		t.Fatalf("solution failed: %+v", err)
	}

	buf := &bytes.Buffer{}
	if err := printInstance(buf, instance); err != nil {
		t.Fatalf("print failed: %+v", err)
	}
	expected := `Adult("alice").
Family("alice", "bob").
Family("bob", "alice").
Parent("alice", "bob").
Person("alice", 31).
Person("bob", 12).
`
	if s := buf.String(); s != expected {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestAnswer0(t *testing.T) {
	obj := newProgram(t, program)
	buf := &bytes.Buffer{}
	if err := answer(buf, obj); err != nil {
		t.Fatalf("answer failed: %+v", err)
	}
	expected := `?x :- Adult(x)
{"alice"}
?(x, y) :- (Family(x, y) & prefix(x, "b"))
{("bob", "alice")}
`
	if s := buf.String(); s != expected {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestTree0(t *testing.T) {
	obj := newProgram(t, program)
	engine, err := obj.Engine(true)
	if err != nil {
		t.Fatalf("could not build engine: %+v", err)
	}
	tree, err := engine.Tree()
	if err != nil {
		t.Fatalf("tree failed: %+v", err)
	}
	buf := &bytes.Buffer{}
	if err := printTree(buf, tree, ""); err != nil {
		t.Fatalf("print failed: %+v", err)
	}
	// adult is independent of the two family rules, which gives 3 orders
	if n := len(tree.Leaves()); n != 3 {
		t.Errorf("expected 3 leaves, got %d:\n%s", n, buf.String())
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("{Parent: ")) {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	g, err := tree.Graph("ages")
	if err != nil {
		t.Fatalf("graph failed: %+v", err)
	}
	buf.Reset()
	if err := printPaths(buf, g); err != nil {
		t.Fatalf("print failed: %+v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "leaf #0: ") {
		t.Errorf("unexpected paths:\n%s", buf.String())
	}
	// every order applies the adult rule once
	for _, line := range lines {
		if n := strings.Count(line, "Adult(x)"); n != 1 {
			t.Errorf("unexpected path: %s", line)
		}
	}
}

func TestProgramErrors0(t *testing.T) {
	if err := (&Program{Input: "/nope.yaml", Fs: afero.NewMemMapFs()}).Init(); err == nil {
		t.Errorf("expected an error for a missing file")
	}

	fs := afero.NewMemMapFs()
	doc := "program: p\nfacts: {Q: [[1]]}\nrules: [{head: {Q: [$x, $y]}, body: [{Q: [$x]}, {Q: [$y]}]}]"
	if err := afero.WriteFile(fs, "/p.yaml", []byte(doc), 0644); err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	if err := (&Program{Input: "/p.yaml", Fs: fs}).Init(); err == nil {
		t.Errorf("expected an error for a rule of another arity")
	}
}

func TestCLI0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ages.yaml")
	if err := os.WriteFile(path, []byte(program), 0644); err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	data := func(args ...string) *cliUtil.Data {
		return &cliUtil.Data{
			Program: "datalog",
			Version: "test",
			Copying: "copying\n",
			Flags: cliUtil.Flags{
				Logf: t.Logf,
			},
			Args: append([]string{"datalog"}, args...),
		}
	}

	ctx := context.Background()
	for _, args := range [][]string{
		{"--license"},
		{"solve", path},
		{"solve", "--parallel", path},
		{"--debug", "query", path},
		{"tree", path},
		{"tree", "--paths", path},
		{},
	} {
		if err := CLI(ctx, data(args...)); err != nil {
			t.Errorf("cli %v failed: %+v", args, err)
		}
	}

	for _, args := range [][]string{
		{"solve"},
		{"nope"},
		{"query", path + ".missing"},
	} {
		if err := CLI(ctx, data(args...)); err == nil {
			t.Errorf("cli %v should fail", args)
		}
	}

	broken := data()
	broken.Copying = ""
	if err := CLI(ctx, broken); err == nil {
		t.Errorf("expected an error without a license")
	}
}

func TestLookupSubcommand0(t *testing.T) {
	args := &Args{QueryCmd: &QueryArgs{}}
	if name := cliUtil.LookupSubcommand(args, args.QueryCmd); name != "query" {
		t.Errorf("unexpected name: %s", name)
	}
	if name := cliUtil.LookupSubcommand(args, &TreeArgs{}); name != "" {
		t.Errorf("unexpected name: %s", name)
	}
}
