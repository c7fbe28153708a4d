// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	stderrors "errors"
	"fmt"
	"syscall"

	"github.com/grailbio/base/errors"
	"github.com/hrbrmstr/silk/flowio"
)

// A Source is one open input stream of records.
type Source interface {
	// ReadRec reads the next record into rec, returning flowio.EOF at
	// the clean end of the stream.
	ReadRec(rec []byte) error
	Close() error
	Name() string
}

// Inputs hands out the invocation's input streams one at a time. Next
// returns flowio.EOF once every stream has been handed out. An open
// failure caused by descriptor or memory exhaustion must surface the
// underlying syscall error so the pre-sorted path can recover from it;
// in that case the same stream is offered again on the next call.
type Inputs interface {
	Next() (Source, error)
}

// An Output accepts the invocation's sorted records one at a time.
// flowio.Writer satisfies Output.
type Output interface {
	WriteRec(rec []byte) error
}

// PathInputs returns an Inputs over the named flow stream files, opened
// lazily in order. The path "-" names standard input.
func PathInputs(paths ...string) Inputs {
	return &pathInputs{paths: paths}
}

type pathInputs struct {
	paths []string
	i     int
}

func (p *pathInputs) Next() (Source, error) {
	if p.i == len(p.paths) {
		return nil, flowio.EOF
	}
	r, err := flowio.OpenFile(p.paths[p.i])
	if err != nil {
		// Not advancing means a recoverable open failure retries this
		// path on the next pass.
		return nil, err
	}
	p.i++
	return r, nil
}

// fill reads one record from src into the node's record region and
// materializes every key-suffix field. It returns false on clean EOF;
// any other failure is fatal.
func (s *Sorter) fill(src Source, node []byte) (bool, error) {
	if err := src.ReadRec(node[:s.layout.RecordSize]); err != nil {
		if err == flowio.EOF {
			return false, nil
		}
		return false, errors.E(errors.Fatal, err, fmt.Sprintf("reading %s", src.Name()))
	}
	rec := node[:s.layout.RecordSize]
	for i := range s.layout.Keys {
		k := &s.layout.Keys[i]
		if err := k.Fill(rec, s.layout.key(k, node)); err != nil {
			return false, errors.E(errors.Fatal, err,
				fmt.Sprintf("materializing key field %q from %s", k.Name, src.Name()))
		}
	}
	return true, nil
}

// isResourceErr reports whether err is descriptor or memory exhaustion,
// the two open failures the merge window recovers from.
func isResourceErr(err error) bool {
	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		return errno == syscall.EMFILE || errno == syscall.ENFILE || errno == syscall.ENOMEM
	}
	return false
}
