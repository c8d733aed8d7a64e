// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"
)

var big1 = big.NewInt(1)

// NextDifficulty moves the difficulty toward a round time of target seconds.
// The step is a quarter of the relative error, at least 1 when elapsed differs
// from target. The result never drops below 1.
func NextDifficulty(diff *big.Int, elapsed, target uint64) *big.Int {
	if target == 0 {
		return new(big.Int).Set(diff)
	}
	gap := new(big.Int).Sub(new(big.Int).SetUint64(target), new(big.Int).SetUint64(elapsed))
	delta := new(big.Int).Mul(diff, gap)
	delta.Quo(delta, new(big.Int).SetUint64(4*target))
	if delta.Sign() == 0 && gap.Sign() != 0 {
		delta.SetInt64(int64(gap.Sign()))
	}

	next := new(big.Int).Add(diff, delta)
	if next.Cmp(big1) < 0 {
		next.Set(big1)
	}
	return next
}
