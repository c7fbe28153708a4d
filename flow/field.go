// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flow

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// FieldID identifies a sortable record field.
type FieldID int

const (
	// FieldPlugin marks a FieldRef that names a plug-in key field
	// rather than a built-in record field.
	FieldPlugin FieldID = iota
	FieldSIP
	FieldDIP
	FieldNhIP
	FieldSPort
	FieldDPort
	FieldProto
	FieldPkts
	FieldBytes
	FieldFlags
	FieldSTime
	FieldElapsed
	FieldETime
	FieldSensor
	FieldInput
	FieldOutput
	FieldInitFlags
	FieldRestFlags
	FieldTCPState
	FieldApplication
	FieldFlowType
	FieldIcmpType
	FieldIcmpCode
)

var fieldNames = map[FieldID]string{
	FieldPlugin:      "plugin",
	FieldSIP:         "sip",
	FieldDIP:         "dip",
	FieldNhIP:        "nhip",
	FieldSPort:       "sport",
	FieldDPort:       "dport",
	FieldProto:       "protocol",
	FieldPkts:        "packets",
	FieldBytes:       "bytes",
	FieldFlags:       "flags",
	FieldSTime:       "stime",
	FieldElapsed:     "duration",
	FieldETime:       "etime",
	FieldSensor:      "sensor",
	FieldInput:       "in",
	FieldOutput:      "out",
	FieldInitFlags:   "initialflags",
	FieldRestFlags:   "sessionflags",
	FieldTCPState:    "attributes",
	FieldApplication: "application",
	FieldFlowType:    "type",
	FieldIcmpType:    "icmptype",
	FieldIcmpCode:    "icmpcode",
}

// fieldAliases maps every accepted --fields name, including aliases, to
// its field id.
var fieldAliases = map[string]FieldID{
	"proto":    FieldProto,
	"pkts":     FieldPkts,
	"dur":      FieldElapsed,
	"elapsed":  FieldElapsed,
	"class":    FieldFlowType,
	"input":    FieldInput,
	"output":   FieldOutput,
	"appl":     FieldApplication,
}

func init() {
	for id, name := range fieldNames {
		if id == FieldPlugin {
			continue
		}
		fieldAliases[name] = id
	}
}

// String returns the canonical name of the field.
func (f FieldID) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// A FieldRef is one entry of an ordered sort-key field list. Built-in
// record fields carry their FieldID; plug-in key fields carry
// FieldPlugin and the plug-in's name.
type FieldRef struct {
	ID   FieldID
	Name string
}

// LookupField resolves a single field name or alias.
func LookupField(name string) (FieldID, bool) {
	id, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// ParseFieldList parses a comma-separated field list into an ordered
// slice of FieldRefs. Names that do not resolve to a built-in field are
// returned as FieldPlugin refs for the caller to resolve against the
// plug-in registry. Empty entries and duplicate fields are rejected.
func ParseFieldList(list string) ([]FieldRef, error) {
	if strings.TrimSpace(list) == "" {
		return nil, errors.E(errors.Invalid, "empty field list")
	}
	var (
		refs []FieldRef
		seen = make(map[FieldRef]bool)
	)
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("empty field in list %q", list))
		}
		ref := FieldRef{ID: FieldPlugin, Name: name}
		if id, ok := fieldAliases[name]; ok {
			ref = FieldRef{ID: id}
		}
		if seen[ref] {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("duplicate field %q", name))
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs, nil
}
