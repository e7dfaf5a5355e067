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

// Package watch provides change events for a single file via fsnotify.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/purpleidea/datalog/util/errwrap"

	"github.com/fsnotify/fsnotify"
)

// Event represents a watcher event. These can include errors.
type Event struct {
	Error error
	Body  *fsnotify.Event
}

// FileWatcher sends an event each time the file is written, created, renamed
// or removed. The parent directory is watched instead of the file itself, so
// that the watch survives editors that replace the file on save. Run Init() on
// it.
type FileWatcher struct {
	Path string

	Debug bool
	Logf  func(format string, v ...interface{})

	safename string // cleaned path
	watcher  *fsnotify.Watcher
	events   chan Event // one channel for events and err...
	wg       *sync.WaitGroup
	exit     chan struct{}
}

// Init starts the file watcher.
func (obj *FileWatcher) Init() error {
	if obj.Path == "" {
		return fmt.Errorf("the Path is empty")
	}
	if obj.Logf == nil {
		obj.Logf = func(format string, v ...interface{}) {}
	}
	obj.safename = filepath.Clean(obj.Path)
	obj.events = make(chan Event)
	obj.wg = &sync.WaitGroup{}
	obj.exit = make(chan struct{})

	var err error
	if obj.watcher, err = fsnotify.NewWatcher(); err != nil {
		return err
	}
	dir := filepath.Dir(obj.safename)
	if err := obj.watcher.Add(dir); err != nil {
		obj.watcher.Close()
		return errwrap.Wrapf(err, "could not watch %s", dir)
	}

	obj.wg.Add(1)
	go func() {
		defer obj.wg.Done()
		if err := obj.watch(); err != nil {
			obj.send(Event{Error: err})
		}
	}()
	return nil
}

// Close shuts down the watcher, and closes the events channel.
func (obj *FileWatcher) Close() error {
	close(obj.exit) // send exit signal
	obj.wg.Wait()
	err := obj.watcher.Close()
	close(obj.events)
	return err
}

// Events returns a channel of events. These include events for errors.
func (obj *FileWatcher) Events() <-chan Event { return obj.events }

// send returns false if we are exiting instead.
func (obj *FileWatcher) send(event Event) bool {
	select {
	case obj.events <- event:
		return true
	case <-obj.exit:
		return false
	}
}

func (obj *FileWatcher) watch() error {
	for {
		select {
		case event, ok := <-obj.watcher.Events:
			if !ok {
				return fmt.Errorf("the watcher closed unexpectedly")
			}
			if filepath.Clean(event.Name) != obj.safename {
				continue // a sibling of our file
			}
			if obj.Debug {
				obj.Logf("event(%s): %v", event.Name, event.Op)
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if !obj.send(Event{Body: &event}) {
				return nil
			}

		case err, ok := <-obj.watcher.Errors:
			if !ok {
				return fmt.Errorf("the watcher closed unexpectedly")
			}
			return errwrap.Wrapf(err, "unknown watcher error")

		case <-obj.exit:
			return nil
		}
	}
}
