// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	"bytes"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/hrbrmstr/silk/flow"
)

// A Comparator orders node slabs lexicographically over an ordered
// field list. Key-suffix comparison callbacks may fail; because the
// comparator must remain total while driving sort.Sort, the first
// callback failure latches into the comparator and every comparison
// whose callback fails reports equality for that field. Callers check
// Err after each sort or merge step.
type Comparator struct {
	fields []func(a, b []byte) int
	err    error
}

// NewComparator builds a comparator for the given layout and field
// list. Plug-in field refs are matched positionally against the
// layout's key-suffix fields: the i'th FieldPlugin ref resolves to
// layout.Keys[i] and must agree on name. When reverse is set, every
// field's non-zero result is negated, so ties still fall through to
// the next field.
func NewComparator(layout Layout, fields []flow.FieldRef, family flow.Family, reverse bool) (*Comparator, error) {
	if len(fields) == 0 {
		return nil, errors.E(errors.Invalid, "no sort fields")
	}
	sign := 1
	if reverse {
		sign = -1
	}
	c := new(Comparator)
	nkey := 0
	for _, ref := range fields {
		switch ref.ID {
		case flow.FieldPlugin:
			if nkey >= len(layout.Keys) {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("no key-suffix field for %q", ref.Name))
			}
			k := layout.Keys[nkey]
			if k.Name != ref.Name {
				return nil, errors.E(errors.Invalid,
					fmt.Sprintf("key-suffix field %d is %q, field list names %q", nkey, k.Name, ref.Name))
			}
			nkey++
			c.fields = append(c.fields, c.keyField(k, sign))
		case flow.FieldSIP, flow.FieldDIP, flow.FieldNhIP:
			off, _ := flow.FieldOffset(ref.ID)
			c.fields = append(c.fields, addrField(off, family, sign))
		case flow.FieldETime:
			c.fields = append(c.fields, func(a, b []byte) int {
				return sign * compareUint64(flow.ETime(a), flow.ETime(b))
			})
		case flow.FieldIcmpType:
			c.fields = append(c.fields, func(a, b []byte) int {
				return sign * compareUint64(uint64(flow.IcmpType(a)), uint64(flow.IcmpType(b)))
			})
		case flow.FieldIcmpCode:
			c.fields = append(c.fields, func(a, b []byte) int {
				return sign * compareUint64(uint64(flow.IcmpCode(a)), uint64(flow.IcmpCode(b)))
			})
		default:
			off, width := flow.FieldOffset(ref.ID)
			c.fields = append(c.fields, rawField(off, width, sign))
		}
	}
	if nkey != len(layout.Keys) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("layout has %d key-suffix fields, field list uses %d", len(layout.Keys), nkey))
	}
	return c, nil
}

// Compare returns -1, 0, or +1 ordering nodes a and b.
func (c *Comparator) Compare(a, b []byte) int {
	for _, f := range c.fields {
		if v := f(a, b); v != 0 {
			return v
		}
	}
	return 0
}

// Less reports whether node a orders before node b.
func (c *Comparator) Less(a, b []byte) bool { return c.Compare(a, b) < 0 }

// Err returns the first key-suffix callback failure observed, if any.
func (c *Comparator) Err() error { return c.err }

func (c *Comparator) keyField(k KeyField, sign int) func(a, b []byte) int {
	off, end := k.offset, k.offset+k.Length
	cmp, name := k.Compare, k.Name
	return func(a, b []byte) int {
		v, err := cmp(a[off:end], b[off:end])
		if err != nil {
			if c.err == nil {
				c.err = errors.E(errors.Fatal, err, fmt.Sprintf("comparing key field %q", name))
			}
			return 0
		}
		return sign * normalize(v)
	}
}

// rawField compares a fixed-width big-endian unsigned region of the
// record; bytewise order and numeric order coincide.
func rawField(off, width, sign int) func(a, b []byte) int {
	end := off + width
	return func(a, b []byte) int {
		return sign * bytes.Compare(a[off:end], b[off:end])
	}
}

func addrField(off int, family flow.Family, sign int) func(a, b []byte) int {
	lo := off
	if family == flow.FamilyIPv4 {
		lo = off + flow.AddrLen - 4
	}
	end := off + flow.AddrLen
	return func(a, b []byte) int {
		return sign * bytes.Compare(a[lo:end], b[lo:end])
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func normalize(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
