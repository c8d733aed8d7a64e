// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "math/big"

type Status uint8

const (
	StatusUnstaked Status = iota
	StatusStaked
	StatusWithdrawRequested
)

func (s Status) String() string {
	switch s {
	case StatusStaked:
		return "staked"
	case StatusWithdrawRequested:
		return "withdraw-requested"
	default:
		return "unstaked"
	}
}

// Staker is the registry record of one address. Records are never removed,
// an address that withdrew everything is kept as Unstaked.
type Staker struct {
	Status              Status
	Amount              *big.Int // total escrowed
	Count               uint64   // number of minimum stake units in Amount
	StartDate           uint64   // day boundary of the deposit that made it staked
	WithdrawAmount      *big.Int // part of Amount pending withdrawal
	WithdrawRequestedAt uint64
	OpenDisputes        uint64 // disputes targeting this staker that are not tallied yet
}

// ActiveStake is the part of the stake that is not pending withdrawal.
func (s *Staker) ActiveStake() *big.Int {
	active := new(big.Int)
	if s.Amount != nil {
		active.Set(s.Amount)
	}
	if s.WithdrawAmount != nil {
		active.Sub(active, s.WithdrawAmount)
	}
	return active
}

func (s *Staker) normalize() {
	if s.Amount == nil {
		s.Amount = new(big.Int)
	}
	if s.WithdrawAmount == nil {
		s.WithdrawAmount = new(big.Int)
	}
}
