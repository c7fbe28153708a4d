// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package slotheap

import (
	"math/rand"
	"sort"
	"testing"
)

func TestHeapOrder(t *testing.T) {
	const n = 1000
	rng := rand.New(rand.NewSource(42))
	keys := make([]int, n)
	for i := range keys {
		keys[i] = rng.Intn(100)
	}
	h := New(func(a, b int) bool { return keys[a] < keys[b] }, n)
	for slot := range keys {
		h.Insert(slot)
	}
	if got, want := h.Len(), n; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	sorted := append([]int(nil), keys...)
	sort.Ints(sorted)
	for i := 0; i < n; i++ {
		if got, want := keys[h.Top()], sorted[i]; got != want {
			t.Fatalf("extraction %d: got %v, want %v", i, got, want)
		}
		slot := h.ExtractTop()
		if keys[slot] != sorted[i] {
			t.Fatalf("extraction %d: slot %d has key %d, want %d", i, slot, keys[slot], sorted[i])
		}
	}
	if got, want := h.Len(), 0; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// ReplaceTop behaves as extract-then-insert: the slot re-sifts to its
// new position after its key changes.
func TestHeapReplaceTop(t *testing.T) {
	keys := []int{5, 10, 15}
	h := New(func(a, b int) bool { return keys[a] < keys[b] }, len(keys))
	for slot := range keys {
		h.Insert(slot)
	}

	if got, want := h.Top(), 0; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	keys[0] = 12
	h.ReplaceTop(0)
	if got, want := h.Top(), 1; got != want {
		t.Errorf("got slot %v, want %v", got, want)
	}
	keys[1] = 20
	h.ReplaceTop(1)

	var got []int
	for h.Len() > 0 {
		got = append(got, keys[h.ExtractTop()])
	}
	want := []int{12, 15, 20}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// Duplicate slot handles are permitted.
func TestHeapDuplicates(t *testing.T) {
	keys := []int{3, 1}
	h := New(func(a, b int) bool { return keys[a] < keys[b] }, 4)
	h.Insert(0)
	h.Insert(1)
	h.Insert(1)
	if got, want := h.ExtractTop(), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := h.ExtractTop(), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := h.ExtractTop(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
