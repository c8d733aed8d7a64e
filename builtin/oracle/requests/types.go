// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package requests

import (
	"math/big"

	"github.com/vechain/thor-oracle/thor"
)

// Request is a data point tipped for by requesters.
type Request struct {
	ID            uint64
	Label         string // set once, never overwritten
	Granularity   uint64
	QueryHash     thor.Bytes32
	TotalTip      *big.Int // unconsumed tip pool
	QueuePosition uint64   // slot index in the queue, 0 when not queued
	Requester     thor.Address
}

// Slot is one entry of the bounded queue. Seq orders insertions.
type Slot struct {
	RequestID uint64
	Tip       *big.Int
	Seq       uint64
}

func (s *Slot) empty() bool {
	return s.RequestID == 0
}

func (s *Slot) tip() *big.Int {
	if s.Tip == nil {
		return new(big.Int)
	}
	return s.Tip
}

// Queue is the fixed capacity arena of tipped requests plus the on-deck pointer.
// Slot 0 is reserved and never holds an entry.
type Queue struct {
	Slots   []Slot
	OnDeck  uint64
	NextSeq uint64
}

func (q *Queue) normalize() {
	if len(q.Slots) < thor.RequestQLength {
		slots := make([]Slot, thor.RequestQLength)
		copy(slots, q.Slots)
		q.Slots = slots
	}
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	n := 0
	for i := 1; i < len(q.Slots); i++ {
		if !q.Slots[i].empty() {
			n++
		}
	}
	return n
}

// minIndex scans from the last slot down to 1 and returns the first slot holding the
// smallest tip. Empty slots count as zero, so an empty queue fills from the back.
func (q *Queue) minIndex() int {
	last := len(q.Slots) - 1
	idx := last
	min := q.Slots[last].tip()
	for i := last - 1; i >= 1; i-- {
		if t := q.Slots[i].tip(); t.Cmp(min) < 0 {
			min = t
			idx = i
		}
	}
	return idx
}

// maxIndex returns the slot with the largest tip, the earliest inserted on ties.
// It returns 0 for an empty queue.
func (q *Queue) maxIndex() int {
	idx := 0
	for i := 1; i < len(q.Slots); i++ {
		s := &q.Slots[i]
		if s.empty() {
			continue
		}
		if idx == 0 {
			idx = i
			continue
		}
		best := &q.Slots[idx]
		switch s.tip().Cmp(best.tip()) {
		case 1:
			idx = i
		case 0:
			if s.Seq < best.Seq {
				idx = i
			}
		}
	}
	return idx
}

func (q *Queue) indexOf(id uint64) int {
	for i := 1; i < len(q.Slots); i++ {
		if q.Slots[i].RequestID == id {
			return i
		}
	}
	return 0
}

func (q *Queue) onDeckTip() *big.Int {
	if q.OnDeck == 0 {
		return new(big.Int)
	}
	if i := q.indexOf(q.OnDeck); i > 0 {
		return q.Slots[i].tip()
	}
	return new(big.Int)
}
