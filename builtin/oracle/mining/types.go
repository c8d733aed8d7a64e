// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"

	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/thor"
)

// Submission is a value reported by a miner for the current round.
type Submission struct {
	Miner thor.Address
	Value *big.Int
}

// Round is the mining round in progress. RequestID 0 means no round is open.
type Round struct {
	RequestID   uint64
	Timestamp   uint64
	TotalTips   *big.Int
	OpenedAt    uint64
	Submissions []Submission
}

// Active tells whether a request is being mined.
func (r *Round) Active() bool {
	return r.RequestID != 0
}

// Submitted tells whether the miner already reported in this round.
func (r *Round) Submitted(miner thor.Address) bool {
	for _, s := range r.Submissions {
		if s.Miner == miner {
			return true
		}
	}
	return false
}

// MinedValue is the outcome of a finalized round. Miners and Values are sorted
// ascending by value, Value is the median unless a dispute against it passed.
type MinedValue struct {
	Value     *big.Int
	Miners    []thor.Address
	Values    []*big.Int
	RoundNum  uint64
	InDispute bool
}

// Median returns the miner whose value became canonical.
func (m *MinedValue) Median() thor.Address {
	return m.Miners[thor.MedianIndex]
}

// HasMiner tells whether addr is among the miners of the value.
func (m *MinedValue) HasMiner(addr thor.Address) bool {
	for _, a := range m.Miners {
		if a == addr {
			return true
		}
	}
	return false
}

// ValueRef points to a mined value.
type ValueRef struct {
	RequestID uint64
	Timestamp uint64
}

// Key is the storage key of the mined value.
func (r ValueRef) Key() thor.Bytes32 {
	return ValueKey(r.RequestID, r.Timestamp)
}

// ValueKey derives the key a mined value is stored under.
func ValueKey(requestID, timestamp uint64) thor.Bytes32 {
	return thor.Blake2b(solidity.Uint64Key(requestID).Bytes(), solidity.Uint64Key(timestamp).Bytes())
}
