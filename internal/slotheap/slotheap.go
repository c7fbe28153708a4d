// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package slotheap implements a binary min-heap of small integer slot
// handles. The heap stores only the handles; their ordering is induced
// by a caller-supplied less function that resolves handles against
// external state (typically an array of merge slots). Storing handles
// rather than pointers keeps entries valid when the backing state is
// rebuilt, and lets one heap type serve both the merge of pre-sorted
// input streams and the merge of spilled runs.
package slotheap

import "container/heap"

// A Heap is a min-heap of slot handles. Duplicate handles are
// permitted. The zero Heap is not usable; use New.
type Heap struct {
	h slots
}

type slots struct {
	entries []int
	less    func(a, b int) bool
}

func (s *slots) Len() int           { return len(s.entries) }
func (s *slots) Less(i, j int) bool { return s.less(s.entries[i], s.entries[j]) }
func (s *slots) Swap(i, j int) {
	s.entries[i], s.entries[j] = s.entries[j], s.entries[i]
}

func (s *slots) Push(x interface{}) { s.entries = append(s.entries, x.(int)) }

func (s *slots) Pop() interface{} {
	n := len(s.entries)
	e := s.entries[n-1]
	s.entries = s.entries[:n-1]
	return e
}

// New returns an empty heap ordered by less, with capacity for n
// entries. less receives two slot handles and must define a total
// order over the live slots.
func New(less func(a, b int) bool, n int) *Heap {
	return &Heap{h: slots{entries: make([]int, 0, n), less: less}}
}

// Len returns the number of entries in the heap.
func (h *Heap) Len() int { return h.h.Len() }

// Insert adds the slot handle to the heap.
func (h *Heap) Insert(slot int) { heap.Push(&h.h, slot) }

// Top returns the smallest entry without removing it. It panics on an
// empty heap.
func (h *Heap) Top() int { return h.h.entries[0] }

// ReplaceTop replaces the smallest entry with slot in a single sift.
// It is equivalent to, but cheaper than, ExtractTop followed by
// Insert.
func (h *Heap) ReplaceTop(slot int) {
	h.h.entries[0] = slot
	heap.Fix(&h.h, 0)
}

// ExtractTop removes and returns the smallest entry. It panics on an
// empty heap.
func (h *Heap) ExtractTop() int { return heap.Pop(&h.h).(int) }
