// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package flowsort

import (
	"bufio"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/hrbrmstr/silk/flowio"
	"github.com/hrbrmstr/silk/internal/slotheap"
)

// sortPresorted merges inputs that are already individually sorted,
// skipping the in-core buffer entirely. Input streams occupy merge
// slots directly. When the streams outnumber the descriptor window, or
// opening one fails with descriptor/memory exhaustion while at least
// one is open, the opened streams are merged into an intermediate run
// and the remainder picked up on a later pass; mergeRuns then combines
// the intermediate runs. It returns the highest run id written, or -1
// when the output was produced directly.
func (s *Sorter) sortPresorted() (int, error) {
	nodeSize := s.layout.NodeSize
	nodes := make([]byte, s.maxFanIn*nodeSize)
	node := func(i int) []byte { return nodes[i*nodeSize : (i+1)*nodeSize] }
	h := slotheap.New(func(a, b int) bool {
		return s.cmp.Compare(node(a), node(b)) < 0
	}, s.maxFanIn)
	slots := make([]mergeSlot, s.maxFanIn)

	lastRun := -1
	done := false
	for !done {
		// As in the run merger, the pass's intermediate run is created
		// before any stream is opened; a first pass that opens every
		// input discards it and writes straight to the output.
		midID, midW, err := s.temp.create()
		if err != nil {
			return -1, errors.E(errors.Fatal, err, "creating intermediate temporary file")
		}

		var srcs []Source
		for len(srcs) < s.maxFanIn {
			src, err := s.cfg.Inputs.Next()
			if err == flowio.EOF {
				done = true
				break
			}
			if err != nil {
				if isResourceErr(err) && len(srcs) > 0 {
					log.Debug.Printf("unable to open all inputs--out of descriptors or memory")
					break
				}
				midW.Close()
				return -1, errors.E(errors.Fatal, err, "opening input")
			}
			srcs = append(srcs, src)
		}
		if !done && len(srcs) == s.maxFanIn {
			log.Debug.Printf("unable to open all inputs--fan-in limit reached")
		}

		toOutput := done && midID == 0
		var (
			write func([]byte) error
			bw    *bufio.Writer
		)
		if toOutput {
			midW.Close()
			if err := s.temp.remove(midID); err != nil {
				closeSources(srcs)
				return -1, err
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

		for i, src := range srcs {
			slot, src := i, src
			slots[slot] = mergeSlot{
				refill: func(node []byte) (bool, error) { return s.fill(src, node) },
				close:  src.Close,
			}
			ok, err := slots[slot].refill(node(slot))
			if err != nil {
				closeSources(srcs)
				if !toOutput {
					midW.Close()
				}
				return -1, err
			}
			if ok {
				h.Insert(slot)
			}
		}
		if err := s.cmp.Err(); err != nil {
			closeSources(srcs)
			if !toOutput {
				midW.Close()
			}
			return -1, err
		}

		log.Debug.Printf("merging %d presorted inputs", h.Len())
		if err := s.runMerge(h, slots, node, write); err != nil {
			closeSources(srcs)
			if !toOutput {
				midW.Close()
			}
			return -1, err
		}
		closeSources(srcs)

		if !toOutput {
			if err := bw.Flush(); err != nil {
				midW.Close()
				return -1, errors.E(errors.Fatal, err,
					fmt.Sprintf("writing record to temporary file #%d", midID))
			}
			if err := midW.Close(); err != nil {
				return -1, errors.E(errors.Fatal, err,
					fmt.Sprintf("closing temporary file #%d", midID))
			}
		}
	}
	return lastRun, nil
}

func closeSources(srcs []Source) {
	for _, src := range srcs {
		src.Close()
	}
}
