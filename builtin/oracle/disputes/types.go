// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package disputes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/thor-oracle/thor"
)

// Dispute is a challenge of one miner's submission for a mined value.
type Dispute struct {
	ID         uint64
	Hash       thor.Bytes32
	Reporter   thor.Address
	Miner      thor.Address
	RequestID  uint64
	Timestamp  uint64
	Value      *big.Int // the disputed submission
	MinerIndex uint64
	OpenedAt   uint64

	Executed      bool
	Passed        bool
	SupportWeight *big.Int
	OpposeWeight  *big.Int
	Voters        uint64
	TalliedAt     uint64

	Bond        *big.Int // escrowed from the reporter
	Fee         *big.Int // part of the bond paid to the miner on failure
	Slashed     *big.Int // stake taken from the miner on success
	FeeUnlocked bool
}

// Median tells whether the canonical value itself is challenged.
func (d *Dispute) Median() bool {
	return d.MinerIndex == thor.MedianIndex
}

// Refund is what goes back to the reporter once the fee is unlocked.
func (d *Dispute) Refund() *big.Int {
	r := new(big.Int).Sub(d.Bond, d.Fee)
	if r.Sign() < 0 {
		r.SetUint64(0)
	}
	return r
}

func (d *Dispute) normalize() {
	for _, p := range []**big.Int{&d.Value, &d.SupportWeight, &d.OpposeWeight, &d.Bond, &d.Fee, &d.Slashed} {
		if *p == nil {
			*p = new(big.Int)
		}
	}
}

// Ballot is a vote cast on a dispute.
type Ballot struct {
	Support bool
	Weight  *big.Int
}

// Hash identifies the challenged submission.
func Hash(miner thor.Address, requestID, timestamp uint64) thor.Bytes32 {
	return thor.Keccak256(
		miner.Bytes(),
		math.U256Bytes(new(big.Int).SetUint64(requestID)),
		math.U256Bytes(new(big.Int).SetUint64(timestamp)),
	)
}
