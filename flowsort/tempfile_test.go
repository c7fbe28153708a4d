// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	"io"
	"os"
	"testing"

	"github.com/grailbio/testutil/assert"
)

func TestTempStoreIDs(t *testing.T) {
	store, err := newTempStore(t.TempDir())
	assert.NoError(t, err)
	defer store.cleanup()
	for want := 0; want < 5; want++ {
		id, f, err := store.create()
		assert.NoError(t, err)
		assert.EQ(t, id, want)
		assert.NoError(t, f.Close())
	}
}

func TestTempStoreWriteBuffer(t *testing.T) {
	store, err := newTempStore(t.TempDir())
	assert.NoError(t, err)
	defer store.cleanup()

	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	id := -1
	assert.NoError(t, store.writeBuffer(&id, buf, 4, 2))
	assert.EQ(t, id, 0)

	f, err := store.openRun(id)
	assert.NoError(t, err)
	got, err := io.ReadAll(f)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	assert.EQ(t, got, buf[:8])

	// Each spill gets a fresh id.
	assert.NoError(t, store.writeBuffer(&id, buf, 4, 3))
	assert.EQ(t, id, 1)
}

func TestTempStoreRemoveIdempotent(t *testing.T) {
	store, err := newTempStore(t.TempDir())
	assert.NoError(t, err)
	defer store.cleanup()

	id, f, err := store.create()
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	assert.NoError(t, store.remove(id))
	assert.NoError(t, store.remove(id))
	if _, err := store.openRun(id); err == nil {
		t.Error("expected open of removed run to fail")
	}
}

func TestTempStoreCleanup(t *testing.T) {
	parent := t.TempDir()
	store, err := newTempStore(parent)
	assert.NoError(t, err)
	_, f, err := store.create()
	assert.NoError(t, err)
	assert.NoError(t, f.Close())

	store.cleanup()
	entries, err := os.ReadDir(parent)
	assert.NoError(t, err)
	assert.EQ(t, len(entries), 0)
	// cleanup is idempotent.
	store.cleanup()
}
