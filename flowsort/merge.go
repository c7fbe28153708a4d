// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/hrbrmstr/silk/internal/slotheap"
)

// A mergeSlot is one open source in a merge pass: a refill function
// producing the slot's next node, plus its one-node buffer inside the
// pass's shared slab.
type mergeSlot struct {
	// refill reads the slot's next node into its buffer, returning
	// false on clean end of source.
	refill func(node []byte) (bool, error)
	close  func() error
}

// mergeRuns merges runs 0..lastRun into the final output, cascading
// through intermediate runs whenever the window of simultaneously open
// runs is bounded below the number remaining, either by maxFanIn or by
// the descriptors the system actually grants.
func (s *Sorter) mergeRuns(lastRun int) error {
	nodeSize := s.layout.NodeSize
	nodes := make([]byte, s.maxFanIn*nodeSize)
	node := func(i int) []byte { return nodes[i*nodeSize : (i+1)*nodeSize] }
	h := slotheap.New(func(a, b int) bool {
		return s.cmp.Compare(node(a), node(b)) < 0
	}, s.maxFanIn)
	slots := make([]mergeSlot, s.maxFanIn)

	log.Debug.Printf("merging #0 through #%d", lastRun)
	lo := 0
	for {
		hi := lastRun
		if hi-lo >= s.maxFanIn {
			hi = lo + s.maxFanIn - 1
		}

		// The intermediate run is created up front; if every remaining
		// run fits the window it is discarded unopened and the pass
		// writes to the final output instead.
		midID, midW, err := s.temp.create()
		if err != nil {
			return errors.E(errors.Fatal, err, "creating intermediate temporary file")
		}

		openCount := 0
		for id := lo; id <= hi; id++ {
			f, err := s.temp.openRun(id)
			if err != nil {
				if openCount > 0 && isResourceErr(err) {
					// Out of descriptors; shrink the window and catch
					// the rest on a later pass.
					hi = id - 1
					log.Debug.Printf("descriptor limit hit--merging #%d through #%d into #%d", lo, hi, midID)
					break
				}
				midW.Close()
				return errors.E(errors.Fatal, err, fmt.Sprintf("opening temporary file #%d", id))
			}
			slot, id := openCount, id
			br := bufio.NewReader(f)
			slots[slot] = mergeSlot{
				refill: func(node []byte) (bool, error) { return readRunNode(br, node, id) },
				close:  f.Close,
			}
			ok, err := slots[slot].refill(node(slot))
			if err != nil {
				midW.Close()
				return err
			}
			if !ok {
				// An empty run; drop it from the pass.
				log.Debug.Printf("ignoring empty temporary file #%d", id)
				f.Close()
				continue
			}
			h.Insert(slot)
			openCount++
		}
		if err := s.cmp.Err(); err != nil {
			midW.Close()
			return err
		}

		final := hi == lastRun
		var (
			write func([]byte) error
			bw    *bufio.Writer
		)
		if final {
			midW.Close()
			if err := s.temp.remove(midID); err != nil {
				return err
			}
			write = s.writeOutput
		} else {
			bw = bufio.NewWriter(midW)
			write = func(n []byte) error {
				if _, err := bw.Write(n); err != nil {
					return errors.E(errors.Fatal, err,
						fmt.Sprintf("writing record to temporary file #%d", midID))
				}
				return nil
			}
			lastRun = midID
		}

		log.Debug.Printf("merging %d temporary files", openCount)
		if err := s.runMerge(h, slots, node, write); err != nil {
			if !final {
				midW.Close()
			}
			return err
		}

		for i := 0; i < openCount; i++ {
			slots[i].close()
		}
		for id := lo; id <= hi; id++ {
			if err := s.temp.remove(id); err != nil {
				return err
			}
		}
		log.Debug.Printf("finished processing #%d through #%d", lo, hi)

		if final {
			return nil
		}
		if err := bw.Flush(); err != nil {
			midW.Close()
			return errors.E(errors.Fatal, err, fmt.Sprintf("writing record to temporary file #%d", midID))
		}
		if err := midW.Close(); err != nil {
			return errors.E(errors.Fatal, err, fmt.Sprintf("closing temporary file #%d", midID))
		}
		lo = hi + 1
	}
}

// runMerge drains the heap: the least node is written, its slot
// refilled and sifted back down, until a single source remains, which
// is then copied straight through without further heap traffic.
func (s *Sorter) runMerge(h *slotheap.Heap, slots []mergeSlot, node func(int) []byte, write func([]byte) error) error {
	for h.Len() > 1 {
		top := h.Top()
		if err := write(node(top)); err != nil {
			return err
		}
		ok, err := s.fillSlot(slots, top, node(top))
		if err != nil {
			return err
		}
		if ok {
			h.ReplaceTop(top)
		} else {
			h.ExtractTop()
		}
		if err := s.cmp.Err(); err != nil {
			return err
		}
	}
	if h.Len() == 0 {
		return nil
	}
	last := h.ExtractTop()
	for {
		if err := write(node(last)); err != nil {
			return err
		}
		ok, err := s.fillSlot(slots, last, node(last))
		if err != nil {
			return err
		}
		if !ok {
			log.Debug.Printf("finished reading records from slot #%d", last)
			return nil
		}
	}
}

func (s *Sorter) fillSlot(slots []mergeSlot, slot int, node []byte) (bool, error) {
	return slots[slot].refill(node)
}

// readRunNode reads one whole node from a run. A run ending mid-node
// means the file was truncated, which is fatal.
func readRunNode(r io.Reader, node []byte, id int) (bool, error) {
	_, err := io.ReadFull(r, node)
	switch err {
	case nil:
		return true, nil
	case io.EOF:
		return false, nil
	case io.ErrUnexpectedEOF:
		return false, errors.E(errors.Fatal, fmt.Sprintf("temporary file #%d truncated mid-node", id))
	default:
		return false, errors.E(errors.Fatal, err, fmt.Sprintf("reading temporary file #%d", id))
	}
}
