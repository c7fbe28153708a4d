// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/grailbio/base/compress/zstd"
	"github.com/grailbio/base/errors"
)

// flusher is the subset of buffered writers used to drain payload
// buffers at close.
type flusher interface {
	Flush() error
}

// A Writer writes records to a flow stream. The header is emitted on
// the first record write, or at Close for an empty stream.
type Writer struct {
	name    string
	dst     io.WriteCloser
	bw      *bufio.Writer
	payload io.Writer
	pclose  io.Closer
	method  Compression
	recSize int
	count   int64
	started bool
	err     error
}

// NewWriter returns a Writer emitting records of recSize bytes to w,
// with the payload compressed by the given method.
func NewWriter(w io.WriteCloser, name string, recSize int, method Compression) (*Writer, error) {
	if recSize <= 0 || recSize > 1<<16-1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("record size %d out of range", recSize))
	}
	if _, ok := compressionNames[method]; !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("unsupported compression method %d", uint8(method)))
	}
	return &Writer{name: name, dst: w, method: method, recSize: recSize}, nil
}

// CreateFile creates the named flow stream file, truncating any
// existing file. The path "-" means standard output.
func CreateFile(path string, recSize int, method Compression) (*Writer, error) {
	if path == "-" {
		return NewWriter(nopWriteCloser{os.Stdout}, "stdout", recSize, method)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, path, recSize, method)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Name returns the stream's name, for diagnostics.
func (w *Writer) Name() string { return w.name }

// RecordCount returns the number of records written so far.
func (w *Writer) RecordCount() int64 { return w.count }

// WriteHeader forces the stream header out. It is a no-op if the
// header has already been written.
func (w *Writer) WriteHeader() error {
	if w.err != nil {
		return w.err
	}
	return w.start()
}

func (w *Writer) start() error {
	if w.started {
		return nil
	}
	var hdr [headerSize]byte
	putHeader(hdr[:], w.method, w.recSize)
	w.bw = bufio.NewWriter(w.dst)
	if _, err := w.bw.Write(hdr[:]); err != nil {
		w.err = errors.E(errors.Fatal, err, fmt.Sprintf("writing header of %s", w.name))
		return w.err
	}
	switch w.method {
	case None:
		w.payload = w.bw
	case Snappy:
		sw := snappy.NewBufferedWriter(w.bw)
		w.payload = sw
		w.pclose = sw
	case Zstd:
		zw, err := zstd.NewWriter(w.bw)
		if err != nil {
			w.err = errors.E(errors.Fatal, err, fmt.Sprintf("stream %s", w.name))
			return w.err
		}
		w.payload = zw
		w.pclose = zw
	}
	w.started = true
	return nil
}

// WriteRec appends one record to the stream. rec must be at least
// RecSize bytes long; exactly RecSize bytes are written.
func (w *Writer) WriteRec(rec []byte) error {
	if w.err != nil {
		return w.err
	}
	if len(rec) < w.recSize {
		return errors.E(errors.Invalid, fmt.Sprintf("record buffer %d smaller than record size %d", len(rec), w.recSize))
	}
	if err := w.start(); err != nil {
		return err
	}
	if _, err := w.payload.Write(rec[:w.recSize]); err != nil {
		w.err = errors.E(errors.Fatal, err, fmt.Sprintf("writing %s", w.name))
		return w.err
	}
	w.count++
	return nil
}

// Close flushes and closes the stream. An empty stream is closed with
// its header written so that the output is always a valid stream.
func (w *Writer) Close() error {
	if w.dst == nil {
		return w.err
	}
	err := w.start()
	if err == nil && w.pclose != nil {
		err = w.pclose.Close()
	}
	if err == nil && w.bw != nil {
		err = w.bw.Flush()
	}
	cerr := w.dst.Close()
	w.dst = nil
	if err == nil {
		err = cerr
	}
	if err != nil {
		err = errors.E(errors.Fatal, err, fmt.Sprintf("closing %s", w.name))
		if w.err == nil {
			w.err = err
		}
		return err
	}
	return nil
}
