// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/vechain/thor-oracle/metrics"

var (
	metricStorageCounter = metrics.LazyLoadCounterVec("state_storage_count", []string{"type", "target"})
	metricCommitSlots    = metrics.LazyLoadHistogram("state_commit_slots", metrics.BucketSlots)
)
