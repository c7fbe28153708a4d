// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// A tempStore manages the invocation's numbered run files. Runs live
// in a private directory created under the configured temp dir; ids
// are assigned monotonically from zero. cleanup removes the directory
// and everything in it, whatever the exit path.
type tempStore struct {
	dir  string
	next int

	// open descriptor accounting; maxOpen is the high-water mark over
	// the invocation.
	open    int
	maxOpen int
}

func newTempStore(dir string) (*tempStore, error) {
	d, err := os.MkdirTemp(dir, "rwsort-")
	if err != nil {
		return nil, errors.E(errors.Fatal, err, fmt.Sprintf("creating temp directory under %s", dir))
	}
	return &tempStore{dir: d}, nil
}

func (t *tempStore) path(id int) string {
	return filepath.Join(t.dir, fmt.Sprintf("%06d.run", id))
}

// create allocates the next run id and creates its file for writing.
func (t *tempStore) create() (int, *tempFile, error) {
	id := t.next
	f, err := os.OpenFile(t.path(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return -1, nil, err
	}
	t.next++
	return id, t.track(f), nil
}

// openRun opens run id for reading. EMFILE/ENOMEM failures are
// returned unwrapped so callers can classify them as recoverable.
func (t *tempStore) openRun(id int) (*tempFile, error) {
	f, err := os.Open(t.path(id))
	if err != nil {
		return nil, err
	}
	return t.track(f), nil
}

// remove unlinks run id. Removing a run that is already gone is not an
// error.
func (t *tempStore) remove(id int) error {
	err := os.Remove(t.path(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.E(errors.Fatal, err, fmt.Sprintf("removing temporary file #%d", id))
	}
	return nil
}

// writeBuffer writes the first count nodes of buf as a new run and
// stores the run's id in *id.
func (t *tempStore) writeBuffer(id *int, buf []byte, nodeSize, count int) error {
	rid, f, err := t.create()
	if err != nil {
		return errors.E(errors.Fatal, err, "creating temporary file")
	}
	bw := bufio.NewWriter(f)
	_, err = bw.Write(buf[:count*nodeSize])
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		f.Close()
		return errors.E(errors.Fatal, err, fmt.Sprintf("writing sorted buffer to temporary file #%d", rid))
	}
	if err := f.Close(); err != nil {
		return errors.E(errors.Fatal, err, fmt.Sprintf("closing temporary file #%d", rid))
	}
	*id = rid
	return nil
}

// cleanup removes the store's directory and all run files ever
// created, regardless of their individual states.
func (t *tempStore) cleanup() {
	if t.dir == "" {
		return
	}
	if err := os.RemoveAll(t.dir); err != nil {
		log.Error.Printf("rwsort: removing temp directory %s: %v", t.dir, err)
	}
	log.Debug.Printf("temp store: %d files created, %d descriptors peak", t.next, t.maxOpen)
	t.dir = ""
}

func (t *tempStore) track(f *os.File) *tempFile {
	t.open++
	if t.open > t.maxOpen {
		t.maxOpen = t.open
	}
	return &tempFile{File: f, store: t}
}

// A tempFile is an open run file whose lifetime is counted against the
// store's descriptor accounting.
type tempFile struct {
	*os.File
	store *tempStore
}

func (f *tempFile) Close() error {
	if f.store != nil {
		f.store.open--
		f.store = nil
	}
	return f.File.Close()
}
