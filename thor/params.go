// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"math/big"
)

// Constants of the oracle.
const (
	MinersPerRound = 5  // submissions that close a round, also the minimum validator set size.
	MedianIndex    = 2  // position of the canonical value among the sorted submissions.
	RequestQLength = 51 // slot 0 is never used for queued requests.

	InitialDifficulty uint64 = 1
)

// Names of the numeric variables exposed by the oracle. The storage key of each is
// the keccak256 hash of its name.
const (
	NameMinimumStake         = "minimumStake"
	NameStakeAmount          = "stakeAmount" // alias of minimumStake
	NameDisputeFee           = "disputeFee"
	NameStakeLockPeriod      = "stakeLockPeriod"
	NameVoteWindow           = "voteWindow"
	NameFeeUnlockDelay       = "feeUnlockDelay"
	NameReselectCooldown     = "reselectCooldown"
	NameMinerReward          = "minerReward"
	NameTimeTarget           = "timeTarget"
	NameTimestampGranularity = "timestampGranularity"
	NameMaxValidators        = "maxValidators"

	NameTotalStaked        = "totalStaked"
	NameUniqueStakers      = "uniqueStakers"
	NameStakerCount        = "stakerCount"
	NameDisputeCount       = "disputeCount"
	NameRequestCount       = "requestCount"
	NameDifficulty         = "difficulty"
	NameCurrentTotalTips   = "currentTotalTips"
	NameCurrentRequestID   = "currentRequestId"
	NameTimeOfLastNewValue = "timeOfLastNewValue"
)

// UintVarKey returns the key a named numeric variable is addressed by.
func UintVarKey(name string) Bytes32 {
	return Keccak256([]byte(name))
}

// Keys of governance params.
var (
	KeyMinimumStake         = UintVarKey(NameMinimumStake)
	KeyDisputeFee           = UintVarKey(NameDisputeFee)
	KeyStakeLockPeriod      = UintVarKey(NameStakeLockPeriod)
	KeyVoteWindow           = UintVarKey(NameVoteWindow)
	KeyFeeUnlockDelay       = UintVarKey(NameFeeUnlockDelay)
	KeyReselectCooldown     = UintVarKey(NameReselectCooldown)
	KeyMinerReward          = UintVarKey(NameMinerReward)
	KeyTimeTarget           = UintVarKey(NameTimeTarget)
	KeyTimestampGranularity = UintVarKey(NameTimestampGranularity)
	KeyMaxValidators        = UintVarKey(NameMaxValidators)
)

var (
	InitialMinimumStake = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	InitialDisputeFee   = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
	InitialMinerReward  = new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))

	InitialStakeLockPeriod      = big.NewInt(7 * 24 * 3600)
	InitialVoteWindow           = big.NewInt(22 * 24 * 3600)
	InitialFeeUnlockDelay       = big.NewInt(2 * 24 * 3600)
	InitialReselectCooldown     = big.NewInt(3600)
	InitialTimeTarget           = big.NewInt(600)
	InitialTimestampGranularity = big.NewInt(60)
	InitialMaxValidators        = big.NewInt(50)
)

// DefaultParams maps every governance key to its initial value.
func DefaultParams() map[Bytes32]*big.Int {
	return map[Bytes32]*big.Int{
		KeyMinimumStake:         InitialMinimumStake,
		KeyDisputeFee:           InitialDisputeFee,
		KeyStakeLockPeriod:      InitialStakeLockPeriod,
		KeyVoteWindow:           InitialVoteWindow,
		KeyFeeUnlockDelay:       InitialFeeUnlockDelay,
		KeyReselectCooldown:     InitialReselectCooldown,
		KeyMinerReward:          InitialMinerReward,
		KeyTimeTarget:           InitialTimeTarget,
		KeyTimestampGranularity: InitialTimestampGranularity,
		KeyMaxValidators:        InitialMaxValidators,
	}
}
