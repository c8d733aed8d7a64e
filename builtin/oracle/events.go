// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"

	"github.com/vechain/thor-oracle/thor"
)

// EventKind names what an Event reports.
type EventKind string

const (
	KindValueRecorded          EventKind = "ValueRecorded"
	KindRoundOpened            EventKind = "RoundOpened"
	KindTipAdded               EventKind = "TipAdded"
	KindStakeDeposited         EventKind = "StakeDeposited"
	KindStakeWithdrawRequested EventKind = "StakeWithdrawRequested"
	KindStakeWithdrawn         EventKind = "StakeWithdrawn"
	KindValidatorsReselected   EventKind = "ValidatorsReselected"
	KindDisputeOpened          EventKind = "DisputeOpened"
	KindVoted                  EventKind = "Voted"
	KindDisputeTallied         EventKind = "DisputeTallied"
	KindDisputeFeeUnlocked     EventKind = "DisputeFeeUnlocked"
)

// Event is emitted after an operation took effect. Only the fields relevant
// to its Kind are set.
type Event struct {
	Kind EventKind `json:"kind"`
	At   uint64    `json:"at"` // clock time of the operation

	RequestID uint64   `json:"requestId,omitempty"`
	Timestamp uint64   `json:"timestamp,omitempty"`
	Value     *big.Int `json:"value,omitempty"`
	Reward    *big.Int `json:"reward,omitempty"`
	TotalTips *big.Int `json:"totalTips,omitempty"`

	// Account is the tipper, staker, reporter or voter.
	Account thor.Address `json:"account"`
	Miner   thor.Address `json:"miner,omitzero"`
	Amount  *big.Int     `json:"amount,omitempty"`

	DisputeID  uint64         `json:"disputeId,omitempty"`
	Support    bool           `json:"support,omitempty"`
	Passed     bool           `json:"passed,omitempty"`
	Validators []thor.Address `json:"validators,omitempty"`
}
