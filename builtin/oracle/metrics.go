// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"

	"github.com/vechain/thor-oracle/metrics"
)

var (
	metricTips            = metrics.LazyLoadCounter("tips_total")
	metricRoundsFinalized = metrics.LazyLoadCounter("rounds_finalized_total")
	metricDisputes        = metrics.LazyLoadCounterVec("disputes_total", []string{"result"})
	metricReverts         = metrics.LazyLoadCounterVec("reverts_total", []string{"op"})
	metricDifficulty      = metrics.LazyLoadGauge("difficulty")
	metricTotalStaked     = metrics.LazyLoadGauge("total_staked")
	metricQueueSize       = metrics.LazyLoadGauge("queue_size")
	metricRoundDuration   = metrics.LazyLoadHistogram("round_duration_seconds", metrics.BucketSeconds)
)

var weiPerToken = big.NewInt(1e18)

// tokens converts a base unit amount to whole tokens for gauges.
func tokens(amount *big.Int) int64 {
	q := new(big.Int).Quo(amount, weiPerToken)
	if !q.IsInt64() {
		return 0
	}
	return q.Int64()
}
