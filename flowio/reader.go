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

// A Reader reads records from a flow stream, one record at a time.
type Reader struct {
	name    string
	src     io.Closer
	payload io.Reader
	zclose  io.Closer
	recSize int
	err     error
}

// NewReader returns a Reader over the stream r. The stream header is
// read and validated immediately.
func NewReader(r io.ReadCloser, name string) (*Reader, error) {
	br := bufio.NewReader(r)
	var hdr [headerSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = errors.New("short stream header")
		}
		return nil, errors.E(errors.Invalid, err, fmt.Sprintf("reading header of %s", name))
	}
	method, recSize, err := parseHeader(hdr[:])
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("stream %s", name))
	}
	rd := &Reader{name: name, src: r, recSize: recSize}
	switch method {
	case None:
		rd.payload = br
	case Snappy:
		rd.payload = snappy.NewReader(br)
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			r.Close()
			return nil, errors.E(err, fmt.Sprintf("stream %s", name))
		}
		rd.payload = zr
		rd.zclose = zr
	}
	return rd, nil
}

// OpenFile opens the named flow stream file. The path "-" means
// standard input.
func OpenFile(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(io.NopCloser(os.Stdin), "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Name returns the stream's name, for diagnostics.
func (r *Reader) Name() string { return r.name }

// RecSize returns the record width declared by the stream header.
func (r *Reader) RecSize() int { return r.recSize }

// ReadRec reads the next record into rec, which must be at least
// RecSize bytes long. It returns EOF at the clean end of the stream; a
// stream ending mid-record is a fatal error.
func (r *Reader) ReadRec(rec []byte) error {
	if r.err != nil {
		return r.err
	}
	if len(rec) < r.recSize {
		return errors.E(errors.Invalid, fmt.Sprintf("record buffer %d smaller than record size %d", len(rec), r.recSize))
	}
	_, err := io.ReadFull(r.payload, rec[:r.recSize])
	switch err {
	case nil:
		return nil
	case io.EOF:
		r.err = EOF
	case io.ErrUnexpectedEOF:
		r.err = errors.E(errors.Fatal, fmt.Sprintf("stream %s truncated mid-record", r.name))
	default:
		r.err = errors.E(errors.Fatal, err, fmt.Sprintf("reading %s", r.name))
	}
	return r.err
}

// Close releases the stream's resources.
func (r *Reader) Close() error {
	if r.zclose != nil {
		r.zclose.Close()
		r.zclose = nil
	}
	if r.src == nil {
		return nil
	}
	err := r.src.Close()
	r.src = nil
	return err
}
