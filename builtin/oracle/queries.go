// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/oracle/disputes"
	"github.com/vechain/thor-oracle/builtin/oracle/mining"
	"github.com/vechain/thor-oracle/builtin/oracle/requests"
	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/thor"
)

//
// Getters - no state change
//

// StakerInfo returns the stake record of the address.
func (o *Oracle) StakerInfo(addr thor.Address) (st *staking.Staker, err error) {
	err = o.view(func() error {
		st, err = o.staking.Get(addr)
		return err
	})
	return
}

// Stakers lists every address that ever staked, in registration order.
func (o *Oracle) Stakers() (list []thor.Address, err error) {
	err = o.view(func() error {
		list, err = o.staking.Stakers()
		return err
	})
	return
}

// BalanceOf is the ledger balance of the address.
func (o *Oracle) BalanceOf(addr thor.Address) (bal *big.Int, err error) {
	err = o.view(func() error {
		bal, err = o.ledger.BalanceOf(addr)
		return err
	})
	return
}

// RequestQ returns the tips of the 51 queue slots.
func (o *Oracle) RequestQ() (tips []*big.Int, err error) {
	err = o.view(func() error {
		tips, err = o.requests.RequestQ()
		return err
	})
	return
}

func (o *Oracle) RequestIDByQueueIndex(i uint64) (id uint64, err error) {
	err = o.view(func() error {
		id, err = o.requests.IDByQueueIndex(i)
		return err
	})
	return
}

// RequestVars returns the request, reverting with ErrUnknownID if it doesn't exist.
func (o *Oracle) RequestVars(id uint64) (req *requests.Request, err error) {
	err = o.view(func() error {
		if req, err = o.requests.Get(id); err != nil {
			return err
		}
		if req == nil {
			return reverts.ErrUnknownID
		}
		return nil
	})
	return
}

func (o *Oracle) RequestIDByQueryHash(hash thor.Bytes32) (id uint64, err error) {
	err = o.view(func() error {
		id, err = o.requests.IDByQueryHash(hash)
		return err
	})
	return
}

// VariablesOnDeck returns the on-deck request id and its pool, 0 and zero when
// the queue is empty.
func (o *Oracle) VariablesOnDeck() (id uint64, pool *big.Int, label string, err error) {
	err = o.view(func() error {
		req, err := o.requests.OnDeck()
		if err != nil {
			return err
		}
		if req == nil {
			pool = new(big.Int)
			return nil
		}
		id, pool, label = req.ID, req.TotalTip, req.Label
		return nil
	})
	return
}

// CurrentVariables returns the round in progress and the difficulty.
func (o *Oracle) CurrentVariables() (round *mining.Round, difficulty *big.Int, err error) {
	err = o.view(func() error {
		if round, err = o.mining.Current(); err != nil {
			return err
		}
		difficulty, err = o.mining.Difficulty()
		return err
	})
	return
}

// MinedBlockNum returns the round number the value was recorded in, 0 if never.
func (o *Oracle) MinedBlockNum(requestID, timestamp uint64) (num uint64, err error) {
	err = o.view(func() error {
		num, err = o.mining.MinedBlockNum(requestID, timestamp)
		return err
	})
	return
}

// RetrieveData returns the canonical value, zero if none or zeroed by a dispute.
func (o *Oracle) RetrieveData(requestID, timestamp uint64) (v *big.Int, err error) {
	err = o.view(func() error {
		v, err = o.mining.RetrieveData(requestID, timestamp)
		return err
	})
	return
}

func (o *Oracle) TimestampByIndex(requestID, i uint64) (ts uint64, err error) {
	err = o.view(func() error {
		ts, err = o.mining.TimestampByIndex(requestID, i)
		return err
	})
	return
}

func (o *Oracle) NewValueCount(requestID uint64) (n uint64, err error) {
	err = o.view(func() error {
		n, err = o.mining.NewValueCount(requestID)
		return err
	})
	return
}

func (o *Oracle) minedValue(requestID, timestamp uint64) (*mining.MinedValue, error) {
	mv, err := o.mining.MinedValue(requestID, timestamp)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return nil, reverts.ErrUnknownID
	}
	return mv, nil
}

// MinersByTimestamp returns the miners of a value, sorted by their submissions.
func (o *Oracle) MinersByTimestamp(requestID, timestamp uint64) (miners []thor.Address, err error) {
	err = o.view(func() error {
		mv, err := o.minedValue(requestID, timestamp)
		if err != nil {
			return err
		}
		miners = mv.Miners
		return nil
	})
	return
}

// SubmissionsByTimestamp returns the submitted values in ascending order.
func (o *Oracle) SubmissionsByTimestamp(requestID, timestamp uint64) (values []*big.Int, err error) {
	err = o.view(func() error {
		mv, err := o.minedValue(requestID, timestamp)
		if err != nil {
			return err
		}
		values = mv.Values
		return nil
	})
	return
}

func (o *Oracle) DidMine(requestID, timestamp uint64, miner thor.Address) (did bool, err error) {
	err = o.view(func() error {
		did, err = o.mining.DidMine(requestID, timestamp, miner)
		return err
	})
	return
}

func (o *Oracle) IsInDispute(requestID, timestamp uint64) (in bool, err error) {
	err = o.view(func() error {
		in, err = o.mining.IsInDispute(requestID, timestamp)
		return err
	})
	return
}

// LastNewValue returns the most recent value and whether any value was recorded yet.
func (o *Oracle) LastNewValue() (v *big.Int, ok bool, err error) {
	err = o.view(func() error {
		v, _, ok, err = o.mining.LastNewValue()
		return err
	})
	return
}

func (o *Oracle) CurrentMiners() (set []thor.Address, err error) {
	err = o.view(func() error {
		set, err = o.validators.Current()
		return err
	})
	return
}

func (o *Oracle) IsSelected(addr thor.Address) (ok bool, err error) {
	err = o.view(func() error {
		ok, err = o.validators.IsSelected(addr)
		return err
	})
	return
}

// AllDisputeVars returns the dispute, reverting with ErrUnknownID if it doesn't exist.
func (o *Oracle) AllDisputeVars(id uint64) (d *disputes.Dispute, err error) {
	err = o.view(func() error {
		if d, err = o.disputes.Get(id); err != nil {
			return err
		}
		if d == nil {
			return reverts.ErrUnknownID
		}
		return nil
	})
	return
}

func (o *Oracle) DidVote(disputeID uint64, voter thor.Address) (voted bool, err error) {
	err = o.view(func() error {
		voted, err = o.disputes.DidVote(disputeID, voter)
		return err
	})
	return
}

func (o *Oracle) DisputeIDByHash(hash thor.Bytes32) (id uint64, err error) {
	err = o.view(func() error {
		id, err = o.disputes.IDByHash(hash)
		return err
	})
	return
}

// UintVar returns the named numeric variable, see the Name constants in thor.
func (o *Oracle) UintVar(name string) (v *big.Int, err error) {
	err = o.view(func() error {
		v, err = o.uintVar(thor.UintVarKey(name))
		return err
	})
	return
}

func (o *Oracle) uintVar(key thor.Bytes32) (*big.Int, error) {
	u64 := func(n uint64, err error) (*big.Int, error) {
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetUint64(n), nil
	}

	switch key {
	case thor.UintVarKey(thor.NameStakeAmount):
		return o.params.Get(thor.KeyMinimumStake)
	case thor.UintVarKey(thor.NameTotalStaked):
		total, _, _, err := o.staking.Totals()
		return total, err
	case thor.UintVarKey(thor.NameUniqueStakers):
		_, unique, _, err := o.staking.Totals()
		return u64(unique, err)
	case thor.UintVarKey(thor.NameStakerCount):
		_, _, count, err := o.staking.Totals()
		return u64(count, err)
	case thor.UintVarKey(thor.NameDisputeCount):
		return u64(o.disputes.Count())
	case thor.UintVarKey(thor.NameRequestCount):
		return u64(o.requests.Count())
	case thor.UintVarKey(thor.NameDifficulty):
		return o.mining.Difficulty()
	case thor.UintVarKey(thor.NameTimeOfLastNewValue):
		return u64(o.mining.TimeOfLastNewValue())
	case thor.UintVarKey(thor.NameCurrentTotalTips), thor.UintVarKey(thor.NameCurrentRequestID):
		round, err := o.mining.Current()
		if err != nil {
			return nil, err
		}
		if key == thor.UintVarKey(thor.NameCurrentRequestID) {
			return new(big.Int).SetUint64(round.RequestID), nil
		}
		return round.TotalTips, nil
	}
	if _, ok := thor.DefaultParams()[key]; ok {
		return o.params.Get(key)
	}
	return nil, errors.Errorf("unknown variable %v", key)
}
