// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package flowio reads and writes streams of fixed-width flow records.
// A stream is a short fixed header followed by a (possibly compressed)
// concatenation of records. The header is written lazily on the first
// record write so that callers can configure a writer without touching
// the underlying file; closing a writer that never wrote a record still
// produces a valid, header-only stream.
package flowio

import (
	"encoding/binary"
	"fmt"

	"github.com/grailbio/base/errors"
)

// EOF is the error returned by Reader.ReadRec when no more records are
// available. EOF is a sentinel: it signals a graceful end of stream. If
// a stream terminates mid-record, a different (fatal) error is
// returned.
var EOF = errors.New("EOF")

// magic identifies a silk flow stream.
const magic = 0xdeadbeef

// version is the stream format version understood by this package.
const version = 1

// headerSize is the size of the stream header: 4-byte magic, 1-byte
// version, 1-byte compression method, 2-byte record size.
const headerSize = 8

// Compression selects the codec applied to the record payload. The
// header itself is never compressed.
type Compression uint8

const (
	None Compression = iota
	Snappy
	Zstd
)

var compressionNames = map[Compression]string{
	None:   "none",
	Snappy: "snappy",
	Zstd:   "zstd",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression resolves a compression method by name.
func ParseCompression(name string) (Compression, error) {
	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}
	return None, errors.E(errors.Invalid, fmt.Sprintf("unknown compression method %q", name))
}

// HeaderSize returns the size in bytes of the stream header. A stream
// holding zero records is exactly this long.
func HeaderSize() int { return headerSize }

func putHeader(buf []byte, method Compression, recSize int) {
	binary.BigEndian.PutUint32(buf[0:], magic)
	buf[4] = version
	buf[5] = uint8(method)
	binary.BigEndian.PutUint16(buf[6:], uint16(recSize))
}

func parseHeader(buf []byte) (method Compression, recSize int, err error) {
	if got := binary.BigEndian.Uint32(buf[0:]); got != magic {
		return 0, 0, errors.E(errors.Invalid, fmt.Sprintf("bad magic %#x", got))
	}
	if got := buf[4]; got != version {
		return 0, 0, errors.E(errors.Invalid, fmt.Sprintf("unsupported stream version %d", got))
	}
	method = Compression(buf[5])
	if _, ok := compressionNames[method]; !ok {
		return 0, 0, errors.E(errors.Invalid, fmt.Sprintf("unsupported compression method %d", buf[5]))
	}
	recSize = int(binary.BigEndian.Uint16(buf[6:]))
	if recSize == 0 {
		return 0, 0, errors.E(errors.Invalid, "zero record size in stream header")
	}
	return method, recSize, nil
}
