// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package flowsort sorts streams of fixed-width flow records by a
// multi-field key. Records are collected into a single growable
// in-memory buffer and sorted in place; when the buffer is exhausted,
// sorted runs are spilled to temporary files and merged through a
// k-way merge whose fan-in is bounded by the process's descriptor
// budget. Inputs known to be pre-sorted bypass the buffer and feed the
// merge directly.
//
// The unit of storage throughout is the node: the raw record followed
// by a key suffix holding materialized binary keys for plug-in fields
// whose comparison would otherwise require re-deriving values from the
// record.
package flowsort

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// A KeyField describes one plug-in key field materialized into the
// node's key suffix. Fill derives the field's binary key from a record;
// Compare orders two materialized keys and may fail, which aborts the
// sort.
type KeyField struct {
	Name    string
	Length  int
	Fill    func(rec, key []byte) error
	Compare func(a, b []byte) (int, error)

	offset int
}

// A Layout fixes the node geometry for one sort invocation: the record
// width, the key-suffix fields in materialization order, and the
// resulting node width. All nodes of an invocation share one layout.
type Layout struct {
	RecordSize int
	NodeSize   int
	Keys       []KeyField
}

// NewLayout returns the layout for records of recSize bytes with the
// given key-suffix fields. Suffix offsets are assigned in field order,
// immediately after the record.
func NewLayout(recSize int, keys []KeyField) (Layout, error) {
	if recSize <= 0 {
		return Layout{}, errors.E(errors.Invalid, fmt.Sprintf("record size %d", recSize))
	}
	l := Layout{RecordSize: recSize, NodeSize: recSize, Keys: keys}
	for i := range l.Keys {
		k := &l.Keys[i]
		if k.Name == "" || k.Length <= 0 || k.Fill == nil || k.Compare == nil {
			return Layout{}, errors.E(errors.Invalid, fmt.Sprintf("malformed key field %q", k.Name))
		}
		k.offset = l.NodeSize
		l.NodeSize += k.Length
	}
	return l, nil
}

// key returns the key-suffix region of node for field k.
func (l Layout) key(k *KeyField, node []byte) []byte {
	return node[k.offset : k.offset+k.Length]
}
