// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowio

import (
	"os"
	"path/filepath"
	"testing"

	fuzz "github.com/google/gofuzz"
)

const testRecSize = 24

func fuzzRecords(t *testing.T, n int) [][]byte {
	t.Helper()
	fz := fuzz.NewWithSeed(99)
	recs := make([][]byte, n)
	for i := range recs {
		rec := make([]byte, testRecSize)
		for j := range rec {
			var b byte
			fz.Fuzz(&b)
			rec[j] = b
		}
		recs[i] = rec
	}
	return recs
}

func TestRoundTrip(t *testing.T) {
	for _, method := range []Compression{None, Snappy, Zstd} {
		t.Run(method.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stream")
			recs := fuzzRecords(t, 1000)

			w, err := CreateFile(path, testRecSize, method)
			if err != nil {
				t.Fatal(err)
			}
			for _, rec := range recs {
				if err := w.WriteRec(rec); err != nil {
					t.Fatal(err)
				}
			}
			if got, want := w.RecordCount(), int64(len(recs)); got != want {
				t.Errorf("got %v, want %v", got, want)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			r, err := OpenFile(path)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			if got, want := r.RecSize(), testRecSize; got != want {
				t.Fatalf("got record size %v, want %v", got, want)
			}
			rec := make([]byte, testRecSize)
			for i := range recs {
				if err := r.ReadRec(rec); err != nil {
					t.Fatalf("record %d: %v", i, err)
				}
				if string(rec) != string(recs[i]) {
					t.Fatalf("record %d mismatch", i)
				}
			}
			if got, want := r.ReadRec(rec), EOF; got != want {
				t.Errorf("got %v, want %v", got, want)
			}
			// EOF is sticky.
			if got, want := r.ReadRec(rec), EOF; got != want {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

// Closing a writer that never wrote a record produces a header-only
// stream that reads back as empty.
func TestEmptyStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	w, err := CreateFile(path, testRecSize, None)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := info.Size(), int64(HeaderSize()); got != want {
		t.Errorf("got %v bytes, want %v", got, want)
	}
	r, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if got, want := r.ReadRec(make([]byte, testRecSize)), EOF; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// A stream cut off mid-record reports a fatal error, not EOF.
func TestTruncatedStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc")
	w, err := CreateFile(path, testRecSize, None)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRec(make([]byte, testRecSize)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, int64(HeaderSize()+testRecSize-5)); err != nil {
		t.Fatal(err)
	}

	r, err := OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	err = r.ReadRec(make([]byte, testRecSize))
	if err == nil || err == EOF {
		t.Fatalf("got %v, want truncation error", err)
	}
}

func TestBadHeader(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage")
	if err := os.WriteFile(garbage, []byte("not a flow stream"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(garbage); err == nil {
		t.Error("expected error for bad magic")
	}

	short := filepath.Join(dir, "short")
	if err := os.WriteFile(short, []byte{0xde, 0xad}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(short); err == nil {
		t.Error("expected error for short header")
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"none":   None,
		"snappy": Snappy,
		"zstd":   Zstd,
	} {
		got, err := ParseCompression(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
	if _, err := ParseCompression("lzo"); err == nil {
		t.Error("expected error for unknown method")
	}
}
