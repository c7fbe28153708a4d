// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package plugin

import (
	"bytes"
	"encoding/binary"

	"github.com/hrbrmstr/silk/flow"
	"github.com/spaolacci/murmur3"
)

// flowhash materializes a murmur3 hash of the transport 5-tuple.
// Sorting on it shuffles flows deterministically, which spreads
// hot prefixes when partitioning downstream work by position.
func init() {
	Register(Field{
		Name:   "flowhash",
		Length: 4,
		Fill: func(rec, key []byte) error {
			h := murmur3.New32()
			h.Write(flow.SIP(rec))
			h.Write(flow.DIP(rec))
			var tuple [5]byte
			binary.BigEndian.PutUint16(tuple[0:], flow.SPort(rec))
			binary.BigEndian.PutUint16(tuple[2:], flow.DPort(rec))
			tuple[4] = flow.Proto(rec)
			h.Write(tuple[:])
			binary.BigEndian.PutUint32(key, h.Sum32())
			return nil
		},
		Compare: func(a, b []byte) (int, error) {
			return bytes.Compare(a, b), nil
		},
	})
}
