// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package plugin provides a registry of plug-in key fields: named sort
// keys that are materialized into a node's key suffix at ingest time
// rather than recomputed from the record on every comparison. Field
// names that the --fields switch does not recognize as built-in record
// fields are resolved against this registry.
package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// A Field is one plug-in key field. Length is the width of the field's
// materialized binary key. Fill derives the key from a record; Compare
// orders two materialized keys. Either may fail, which aborts the sort
// invocation using the field.
type Field struct {
	Name    string
	Length  int
	Fill    func(rec, key []byte) error
	Compare func(a, b []byte) (int, error)
}

var (
	mu     sync.RWMutex
	fields = make(map[string]Field)
)

// Register adds a field to the registry. It panics if the field is
// malformed or its name is already taken.
func Register(f Field) {
	if f.Name == "" || f.Length <= 0 || f.Fill == nil || f.Compare == nil {
		panic(fmt.Sprintf("plugin: malformed field %q", f.Name))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := fields[f.Name]; ok {
		panic(fmt.Sprintf("plugin: field %q registered twice", f.Name))
	}
	fields[f.Name] = f
}

// Lookup retrieves a registered field by name.
func Lookup(name string) (Field, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := fields[name]
	return f, ok
}

// Names returns the names of all registered fields, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
