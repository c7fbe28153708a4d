// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/hrbrmstr/silk/flow"
	"github.com/hrbrmstr/silk/flowio"
)

const (
	// MaxFanIn is the default bound on simultaneously open run files
	// during a merge pass, sized below the customary per-process
	// descriptor soft limit. Together with the intermediate-run writer
	// and the final output, the invocation never holds more than
	// MaxFanIn+2 of its own files open.
	MaxFanIn = 512

	// DefaultBufferSize is the default cap on the in-core sort buffer.
	DefaultBufferSize = 512 << 20

	// sortNumChunks controls the initial buffer allocation: the first
	// chunk is 1/sortNumChunks of the full buffer, and each grow adds
	// another chunk.
	sortNumChunks = 6

	// minInCoreRecords is the smallest chunk worth retrying after an
	// allocation failure; below it the invocation aborts.
	minInCoreRecords = 512
)

// Config carries the immutable configuration of one sort invocation.
type Config struct {
	// Layout fixes the node geometry. Layout.RecordSize must match the
	// records produced by Inputs.
	Layout Layout
	// Fields is the ordered sort key.
	Fields []flow.FieldRef
	// Family selects address comparison width.
	Family flow.Family
	// Reverse negates the sort order.
	Reverse bool
	// Presorted asserts that every input is already sorted under the
	// same fields and orientation, enabling the direct-merge path.
	Presorted bool
	// BufferSize caps the in-core buffer in bytes; DefaultBufferSize
	// if zero.
	BufferSize int64
	// TempDir is the directory for spill files; the system default if
	// empty. It must exist and be writable.
	TempDir string
	// MaxFanIn bounds simultaneously open runs per merge pass;
	// the package default if zero.
	MaxFanIn int

	Inputs Inputs
	Output Output

	// alloc is the buffer allocation hook; tests substitute a failing
	// allocator to drive the freeze-and-spill path.
	alloc func(n int) ([]byte, error)
}

// A Sorter runs one sort invocation.
type Sorter struct {
	cfg    Config
	layout Layout
	cmp    *Comparator
	temp   *tempStore

	maxFanIn int
	outCount int64
}

// New validates cfg and returns a Sorter ready to run. The working
// directory for spill files is created immediately so that
// configuration errors surface before any input is read.
func New(cfg Config) (*Sorter, error) {
	if cfg.Inputs == nil || cfg.Output == nil {
		return nil, errors.E(errors.Invalid, "flowsort: nil input or output")
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.MaxFanIn == 0 {
		cfg.MaxFanIn = MaxFanIn
	}
	if cfg.MaxFanIn < 2 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("flowsort: fan-in %d below 2", cfg.MaxFanIn))
	}
	if cfg.BufferSize < int64(cfg.Layout.NodeSize) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("flowsort: sort buffer %d smaller than one node (%d)", cfg.BufferSize, cfg.Layout.NodeSize))
	}
	if cfg.alloc == nil {
		cfg.alloc = func(n int) ([]byte, error) { return make([]byte, n), nil }
	}
	cmp, err := NewComparator(cfg.Layout, cfg.Fields, cfg.Family, cfg.Reverse)
	if err != nil {
		return nil, err
	}
	temp, err := newTempStore(cfg.TempDir)
	if err != nil {
		return nil, err
	}
	return &Sorter{
		cfg:      cfg,
		layout:   cfg.Layout,
		cmp:      cmp,
		temp:     temp,
		maxFanIn: cfg.MaxFanIn,
	}, nil
}

// Sort runs the invocation to completion. On return, successful or
// not, every spill file the invocation created has been removed. The
// output stream always receives at least its header, even when zero
// records were read.
func (s *Sorter) Sort() (err error) {
	defer s.temp.cleanup()

	var last int
	if s.cfg.Presorted {
		last, err = s.sortPresorted()
	} else {
		last, err = s.sortRandom()
	}
	if err != nil {
		return err
	}
	if last >= 0 {
		if err = s.mergeRuns(last); err != nil {
			return err
		}
	}
	if s.outCount == 0 {
		if hw, ok := s.cfg.Output.(interface{ WriteHeader() error }); ok {
			if err = hw.WriteHeader(); err != nil {
				return errors.E(err, "writing output header")
			}
		}
	}
	return nil
}

// sortRandom implements the random path: fill the growable buffer,
// sort in place, and either emit directly (everything fit) or spill
// sorted runs for the merger. It returns the highest run id written,
// or -1 when the output was produced without spilling.
func (s *Sorter) sortRandom() (int, error) {
	nodeSize := s.layout.NodeSize
	maxRecs := int(s.cfg.BufferSize / int64(nodeSize))
	log.Debug.Printf("sort buffer %d bytes, node size %d, max %d records",
		s.cfg.BufferSize, nodeSize, maxRecs)

	// Allocate the initial chunk, shrinking it on failure until it
	// would drop below the in-core minimum.
	numChunks := sortNumChunks
	var (
		buf       []byte
		chunkRecs int
	)
	for {
		chunkRecs = maxRecs / numChunks
		if chunkRecs < 1 {
			chunkRecs = maxRecs
		}
		b, err := s.cfg.alloc(chunkRecs * nodeSize)
		if err == nil {
			buf = b
			break
		}
		if chunkRecs < minInCoreRecords {
			return -1, errors.E(errors.Fatal, err,
				fmt.Sprintf("allocating space for %d records", chunkRecs))
		}
		log.Debug.Printf("allocation of %d records failed; retrying smaller", chunkRecs)
		numChunks++
	}
	capRecs := chunkRecs

	var (
		count   int
		lastRun = -1
	)
	src, err := s.cfg.Inputs.Next()
	if err != nil {
		if err == flowio.EOF {
			return -1, nil
		}
		return -1, errors.E(errors.Fatal, err, "opening input")
	}
	for src != nil {
		node := buf[count*nodeSize : (count+1)*nodeSize]
		ok, err := s.fill(src, node)
		if err != nil {
			src.Close()
			return -1, err
		}
		if !ok {
			// Inputs are processed one at a time on this path, so the
			// descriptor window cannot be exceeded here.
			src.Close()
			src, err = s.cfg.Inputs.Next()
			if err != nil {
				if err == flowio.EOF {
					src = nil
					continue
				}
				return -1, errors.E(errors.Fatal, err, "opening input")
			}
			continue
		}
		count++
		if count < capRecs {
			continue
		}
		if capRecs < maxRecs {
			grow := capRecs + chunkRecs
			if grow+chunkRecs > maxRecs {
				grow = maxRecs
			}
			log.Debug.Printf("buffer full; growing to %d records, %d bytes", grow, grow*nodeSize)
			if nb, err := s.cfg.alloc(grow * nodeSize); err == nil {
				copy(nb, buf[:count*nodeSize])
				buf = nb
				capRecs = grow
			} else {
				// Freeze the buffer at its current size for the rest
				// of the invocation and fall back to spilling.
				log.Debug.Printf("buffer grow failed; freezing at %d records", count)
				maxRecs = count
				capRecs = count
			}
		}
		if count == maxRecs {
			if err := s.sortBuffer(buf, count); err != nil {
				src.Close()
				return -1, err
			}
			if err := s.temp.writeBuffer(&lastRun, buf, nodeSize, count); err != nil {
				src.Close()
				return -1, err
			}
			count = 0
		}
	}

	if count == 0 {
		return lastRun, nil
	}
	if err := s.sortBuffer(buf, count); err != nil {
		return -1, err
	}
	if lastRun >= 0 {
		if err := s.temp.writeBuffer(&lastRun, buf, nodeSize, count); err != nil {
			return -1, err
		}
		return lastRun, nil
	}
	// Everything fit in core; emit directly.
	log.Debug.Printf("writing %d records from core", count)
	for i := 0; i < count; i++ {
		if err := s.writeOutput(buf[i*nodeSize : (i+1)*nodeSize]); err != nil {
			return -1, err
		}
	}
	return -1, nil
}

// sortBuffer sorts the first count nodes of buf in place.
func (s *Sorter) sortBuffer(buf []byte, count int) error {
	sort.Sort(&nodeSlab{
		buf:  buf,
		n:    count,
		size: s.layout.NodeSize,
		cmp:  s.cmp,
		tmp:  make([]byte, s.layout.NodeSize),
	})
	if err := s.cmp.Err(); err != nil {
		return err
	}
	return nil
}

// writeOutput writes the record portion of node to the output stream.
// Errors tagged fatal abort the invocation; others are reported and
// the sort continues.
func (s *Sorter) writeOutput(node []byte) error {
	if err := s.cfg.Output.WriteRec(node[:s.layout.RecordSize]); err != nil {
		if errors.Recover(err).Severity == errors.Fatal {
			return errors.E(err, "writing output")
		}
		log.Error.Printf("rwsort: output write error: %v", err)
		return nil
	}
	s.outCount++
	return nil
}

// A nodeSlab adapts a packed node buffer to sort.Interface.
type nodeSlab struct {
	buf  []byte
	n    int
	size int
	cmp  *Comparator
	tmp  []byte
}

func (s *nodeSlab) Len() int { return s.n }

func (s *nodeSlab) Less(i, j int) bool {
	return s.cmp.Compare(s.buf[i*s.size:(i+1)*s.size], s.buf[j*s.size:(j+1)*s.size]) < 0
}

func (s *nodeSlab) Swap(i, j int) {
	a := s.buf[i*s.size : (i+1)*s.size]
	b := s.buf[j*s.size : (j+1)*s.size]
	copy(s.tmp, a)
	copy(a, b)
	copy(b, s.tmp)
}
