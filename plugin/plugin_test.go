// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package plugin

import (
	"testing"

	"github.com/hrbrmstr/silk/flow"
)

func TestLookupFlowhash(t *testing.T) {
	f, ok := Lookup("flowhash")
	if !ok {
		t.Fatal("flowhash not registered")
	}
	if got, want := f.Length, 4; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	rec := make([]byte, flow.RecSize)
	flow.SetSPort(rec, 80)
	flow.SetDPort(rec, 51234)
	flow.SetProto(rec, 6)
	key1 := make([]byte, f.Length)
	if err := f.Fill(rec, key1); err != nil {
		t.Fatal(err)
	}
	// The hash is deterministic over the 5-tuple.
	key2 := make([]byte, f.Length)
	if err := f.Fill(rec, key2); err != nil {
		t.Fatal(err)
	}
	if string(key1) != string(key2) {
		t.Error("flowhash not deterministic")
	}

	// A different tuple hashes differently (with overwhelming odds).
	flow.SetDPort(rec, 51235)
	if err := f.Fill(rec, key2); err != nil {
		t.Fatal(err)
	}
	if string(key1) == string(key2) {
		t.Error("distinct tuples produced identical hashes")
	}

	v, err := f.Compare(key1, key1)
	if err != nil || v != 0 {
		t.Errorf("got %v, %v", v, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	f, _ := Lookup("flowhash")
	Register(f)
}

func TestNames(t *testing.T) {
	names := Names()
	found := false
	for _, name := range names {
		if name == "flowhash" {
			found = true
		}
	}
	if !found {
		t.Errorf("flowhash missing from %v", names)
	}
}
