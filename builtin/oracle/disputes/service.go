// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package disputes

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/oracle/mining"
	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

var (
	slotDisputes     = thor.BytesToBytes32([]byte("disputes"))
	slotDisputeHash  = thor.BytesToBytes32([]byte("dispute-hashes"))
	slotBallots      = thor.BytesToBytes32([]byte("ballots"))
	slotDisputeCount = thor.BytesToBytes32([]byte("dispute-count"))

	logger = log.WithContext("pkg", "disputes")
)

// Service runs disputes over mined values. Funds are moved by the caller:
// the bond into escrow on Begin, Slashed or Fee on Tally and Refund on Unlock.
type Service struct {
	params  *params.Params
	staking *staking.Service
	mining  *mining.Service

	disputes *solidity.Mapping[solidity.Uint64Key, *Dispute]
	byHash   *solidity.Mapping[thor.Bytes32, uint64]
	ballots  *solidity.Mapping[thor.Bytes32, *Ballot]
	count    *solidity.Uint256
}

func New(sctx *solidity.Context, params *params.Params, staking *staking.Service, mining *mining.Service) *Service {
	return &Service{
		params:   params,
		staking:  staking,
		mining:   mining,
		disputes: solidity.NewMapping[solidity.Uint64Key, *Dispute](sctx, slotDisputes),
		byHash:   solidity.NewMapping[thor.Bytes32, uint64](sctx, slotDisputeHash),
		ballots:  solidity.NewMapping[thor.Bytes32, *Ballot](sctx, slotBallots),
		count:    solidity.NewUint256(sctx, slotDisputeCount),
	}
}

func ballotKey(id uint64, voter thor.Address) thor.Bytes32 {
	return thor.Blake2b(solidity.Uint64Key(id).Bytes(), voter.Bytes())
}

// Get returns the dispute, nil if unknown.
func (s *Service) Get(id uint64) (*Dispute, error) {
	d, err := s.disputes.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "get dispute")
	}
	if d != nil {
		d.normalize()
	}
	return d, nil
}

func (s *Service) mustGet(id uint64) (*Dispute, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, reverts.ErrUnknownID
	}
	return d, nil
}

func (s *Service) set(d *Dispute) error {
	return errors.Wrap(s.disputes.Set(solidity.Uint64Key(d.ID), d), "set dispute")
}

func (s *Service) Count() (uint64, error) {
	c, err := s.count.Get()
	if err != nil {
		return 0, err
	}
	return c.Uint64(), nil
}

// IDByHash returns the latest dispute opened for the hash, 0 if none.
func (s *Service) IDByHash(hash thor.Bytes32) (uint64, error) {
	id, err := s.byHash.Get(hash)
	return id, errors.Wrap(err, "get dispute hash")
}

// Begin opens a dispute against the miner at minerIndex of a mined value.
func (s *Service) Begin(reporter thor.Address, requestID, timestamp, minerIndex, now uint64) (*Dispute, error) {
	ok, err := s.staking.IsEligible(reporter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.ErrNotStaked
	}
	mv, err := s.mining.MinedValue(requestID, timestamp)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return nil, reverts.ErrUnknownID
	}
	if minerIndex >= uint64(len(mv.Miners)) {
		return nil, reverts.ErrIndexOutOfRange
	}

	miner := mv.Miners[minerIndex]
	hash := Hash(miner, requestID, timestamp)
	prev, err := s.IDByHash(hash)
	if err != nil {
		return nil, err
	}
	if prev != 0 {
		p, err := s.mustGet(prev)
		if err != nil {
			return nil, err
		}
		if !p.Executed {
			return nil, reverts.ErrDuplicateDispute
		}
	}

	bond, err := s.params.Get(thor.KeyMinimumStake)
	if err != nil {
		return nil, err
	}
	count, err := s.Count()
	if err != nil {
		return nil, err
	}

	d := &Dispute{
		ID:         count + 1,
		Hash:       hash,
		Reporter:   reporter,
		Miner:      miner,
		RequestID:  requestID,
		Timestamp:  timestamp,
		Value:      new(big.Int).Set(mv.Values[minerIndex]),
		MinerIndex: minerIndex,
		OpenedAt:   now,
		Bond:       bond,
	}
	d.normalize()

	if d.Median() {
		if err := s.mining.SetInDispute(requestID, timestamp, true); err != nil {
			return nil, err
		}
	}
	if err := s.staking.OpenDispute(miner); err != nil {
		return nil, err
	}
	if err := s.set(d); err != nil {
		return nil, err
	}
	if err := s.byHash.Set(hash, d.ID); err != nil {
		return nil, errors.Wrap(err, "set dispute hash")
	}
	s.count.Set(new(big.Int).SetUint64(d.ID))

	logger.Debug("dispute opened", "id", d.ID, "reporter", reporter, "miner", miner, "request", requestID, "timestamp", timestamp)
	return d, nil
}

// Vote records the ballot of an eligible staker, weighted by its active stake.
func (s *Service) Vote(voter thor.Address, id uint64, support bool) (*Ballot, error) {
	d, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	if d.Executed {
		return nil, reverts.ErrAlreadyTallied
	}
	st, err := s.staking.Get(voter)
	if err != nil {
		return nil, err
	}
	ok, err := s.staking.IsEligible(voter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reverts.ErrNotStaked
	}
	voted, err := s.DidVote(id, voter)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, reverts.ErrAlreadyVoted
	}

	b := &Ballot{Support: support, Weight: st.ActiveStake()}
	if support {
		d.SupportWeight.Add(d.SupportWeight, b.Weight)
	} else {
		d.OpposeWeight.Add(d.OpposeWeight, b.Weight)
	}
	d.Voters++

	if err := s.ballots.Set(ballotKey(id, voter), b); err != nil {
		return nil, errors.Wrap(err, "set ballot")
	}
	return b, s.set(d)
}

// Ballot returns the ballot of the voter, nil if it didn't vote.
func (s *Service) Ballot(id uint64, voter thor.Address) (*Ballot, error) {
	b, err := s.ballots.Get(ballotKey(id, voter))
	return b, errors.Wrap(err, "get ballot")
}

func (s *Service) DidVote(id uint64, voter thor.Address) (bool, error) {
	b, err := s.Ballot(id, voter)
	return b != nil, err
}

// Tally closes the vote once the window elapsed and applies the outcome to
// the stake and the mined value.
func (s *Service) Tally(id uint64, now uint64) (*Dispute, error) {
	d, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	if d.Executed {
		return nil, reverts.ErrAlreadyTallied
	}
	window, err := s.params.GetUint64(thor.KeyVoteWindow)
	if err != nil {
		return nil, err
	}
	if now < d.OpenedAt+window {
		return nil, reverts.ErrLockNotElapsed
	}

	d.Passed = d.SupportWeight.Cmp(d.OpposeWeight) > 0
	if d.Passed {
		amount, err := s.params.Get(thor.KeyMinimumStake)
		if err != nil {
			return nil, err
		}
		if d.Slashed, err = s.staking.Slash(d.Miner, amount); err != nil {
			return nil, err
		}
		if d.Median() {
			if err := s.mining.ZeroValue(d.RequestID, d.Timestamp); err != nil {
				return nil, err
			}
		}
	} else {
		fee, err := s.params.Get(thor.KeyDisputeFee)
		if err != nil {
			return nil, err
		}
		if fee.Cmp(d.Bond) > 0 {
			fee.Set(d.Bond)
		}
		d.Fee = fee
		if d.Median() {
			if err := s.mining.SetInDispute(d.RequestID, d.Timestamp, false); err != nil {
				return nil, err
			}
		}
	}
	if err := s.staking.CloseDispute(d.Miner); err != nil {
		return nil, err
	}
	d.Executed = true
	d.TalliedAt = now

	logger.Info("dispute tallied", "id", id, "passed", d.Passed, "support", d.SupportWeight, "oppose", d.OpposeWeight)
	return d, s.set(d)
}

// Unlock settles the bond once the unlock delay after the tally elapsed.
// The returned dispute carries the refund due to the reporter.
func (s *Service) Unlock(id uint64, now uint64) (*Dispute, error) {
	d, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	if !d.Executed {
		return nil, reverts.ErrLockNotElapsed
	}
	if d.FeeUnlocked {
		return nil, reverts.ErrFeeAlreadyUnlocked
	}
	delay, err := s.params.GetUint64(thor.KeyFeeUnlockDelay)
	if err != nil {
		return nil, err
	}
	if now < d.TalliedAt+delay {
		return nil, reverts.ErrLockNotElapsed
	}
	d.FeeUnlocked = true
	return d, s.set(d)
}
