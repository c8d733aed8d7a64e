// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"encoding/binary"

	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/thor"
)

// Order returns a permutation of [0, n) drawn from ref, the key of the last
// recorded value, and the reselection time now. Equal inputs give equal orders.
func Order(ref thor.Bytes32, now uint64, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	d := newDraw(ref, now)
	for i := n - 1; i > 0; i-- {
		j := d.below(uint64(i) + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// draw reads 64-bit words from a chain of blake2b blocks over (ref, now, counter).
type draw struct {
	prefix  []byte
	counter uint64
	block   thor.Bytes32
	off     int
}

func newDraw(ref thor.Bytes32, now uint64) *draw {
	prefix := make([]byte, 0, 64)
	prefix = append(prefix, ref[:]...)
	prefix = append(prefix, solidity.Uint64Key(now).Bytes()...)
	return &draw{prefix: prefix, off: len(thor.Bytes32{})}
}

func (d *draw) below(n uint64) int {
	if d.off+8 > len(d.block) {
		d.block = thor.Blake2b(d.prefix, solidity.Uint64Key(d.counter).Bytes())
		d.counter++
		d.off = 0
	}
	v := binary.BigEndian.Uint64(d.block[d.off:])
	d.off += 8
	return int(v % n)
}
