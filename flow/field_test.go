// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flow

import "testing"

func TestParseFieldList(t *testing.T) {
	refs, err := ParseFieldList("sip, dport,proto,flowhash")
	if err != nil {
		t.Fatal(err)
	}
	want := []FieldRef{
		{ID: FieldSIP},
		{ID: FieldDPort},
		{ID: FieldProto},
		{ID: FieldPlugin, Name: "flowhash"},
	}
	if len(refs) != len(want) {
		t.Fatalf("got %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("field %d: got %v, want %v", i, refs[i], want[i])
		}
	}
}

func TestParseFieldListAliases(t *testing.T) {
	for alias, want := range map[string]FieldID{
		"protocol": FieldProto,
		"proto":    FieldProto,
		"packets":  FieldPkts,
		"pkts":     FieldPkts,
		"duration": FieldElapsed,
		"dur":      FieldElapsed,
		"in":       FieldInput,
		"input":    FieldInput,
		"class":    FieldFlowType,
	} {
		refs, err := ParseFieldList(alias)
		if err != nil {
			t.Fatalf("%s: %v", alias, err)
		}
		if got := refs[0].ID; got != want {
			t.Errorf("%s: got %v, want %v", alias, got, want)
		}
	}
}

func TestParseFieldListErrors(t *testing.T) {
	for _, list := range []string{"", "sip,,dip", "sip,sip", "proto,protocol"} {
		if _, err := ParseFieldList(list); err == nil {
			t.Errorf("list %q: expected error", list)
		}
	}
}

func TestLookupField(t *testing.T) {
	id, ok := LookupField("Etime")
	if !ok || id != FieldETime {
		t.Errorf("got %v, %v", id, ok)
	}
	if _, ok := LookupField("nonesuch"); ok {
		t.Error("expected lookup failure")
	}
}
