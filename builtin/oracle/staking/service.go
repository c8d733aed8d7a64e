// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

var (
	slotStakers       = thor.BytesToBytes32([]byte("stakers"))
	slotStakerList    = thor.BytesToBytes32([]byte("staker-list"))
	slotTotalStaked   = thor.BytesToBytes32([]byte("total-staked"))
	slotUniqueStakers = thor.BytesToBytes32([]byte("unique-stakers"))
	slotStakerCount   = thor.BytesToBytes32([]byte("staker-count"))

	logger = log.WithContext("pkg", "staking")
)

const dayInSeconds = 24 * 3600

// Service is the stake registry. It keeps records and totals only,
// moving the funds is up to the caller.
type Service struct {
	params        *params.Params
	stakers       *solidity.Mapping[thor.Address, *Staker]
	list          *solidity.Value[[]thor.Address]
	totalStaked   *solidity.Uint256
	uniqueStakers *solidity.Uint256
	stakerCount   *solidity.Uint256
}

func New(sctx *solidity.Context, params *params.Params) *Service {
	return &Service{
		params:        params,
		stakers:       solidity.NewMapping[thor.Address, *Staker](sctx, slotStakers),
		list:          solidity.NewValue[[]thor.Address](sctx, slotStakerList),
		totalStaked:   solidity.NewUint256(sctx, slotTotalStaked),
		uniqueStakers: solidity.NewUint256(sctx, slotUniqueStakers),
		stakerCount:   solidity.NewUint256(sctx, slotStakerCount),
	}
}

func (s *Service) minimumStake() (*big.Int, error) {
	return s.params.Get(thor.KeyMinimumStake)
}

// units returns how many minimum stakes make up amount,
// failing unless amount is a positive multiple of it.
func (s *Service) units(amount *big.Int) (uint64, error) {
	min, err := s.minimumStake()
	if err != nil {
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.ErrInvalidAmount
	}
	q, r := new(big.Int).QuoRem(amount, min, new(big.Int))
	if r.Sign() != 0 || !q.IsUint64() {
		return 0, reverts.ErrInvalidAmount
	}
	return q.Uint64(), nil
}

// Get returns the record of the address, an empty Unstaked record if it never staked.
func (s *Service) Get(addr thor.Address) (*Staker, error) {
	st, err := s.stakers.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "get staker")
	}
	if st == nil {
		st = &Staker{}
	}
	st.normalize()
	return st, nil
}

func (s *Service) set(addr thor.Address, st *Staker) error {
	return errors.Wrap(s.stakers.Set(addr, st), "set staker")
}

// Deposit records a deposit. It returns the number of stake units added.
func (s *Service) Deposit(addr thor.Address, amount *big.Int, now uint64) (uint64, error) {
	units, err := s.units(amount)
	if err != nil {
		return 0, err
	}
	st, err := s.stakers.Get(addr)
	if err != nil {
		return 0, errors.Wrap(err, "get staker")
	}
	if st == nil {
		st = &Staker{}
		if err := s.register(addr); err != nil {
			return 0, err
		}
	}
	st.normalize()

	if st.Status == StatusUnstaked {
		st.Status = StatusStaked
		st.StartDate = now - now%dayInSeconds
		if err := s.uniqueStakers.Add(big.NewInt(1)); err != nil {
			return 0, err
		}
	}
	st.Amount.Add(st.Amount, amount)
	st.Count += units

	if err := s.totalStaked.Add(amount); err != nil {
		return 0, err
	}
	if err := s.stakerCount.Add(new(big.Int).SetUint64(units)); err != nil {
		return 0, err
	}
	logger.Debug("stake deposited", "staker", addr, "amount", amount, "count", st.Count)
	return units, s.set(addr, st)
}

func (s *Service) register(addr thor.Address) error {
	list, err := s.list.Get()
	if err != nil {
		return errors.Wrap(err, "get staker list")
	}
	return errors.Wrap(s.list.Set(append(list, addr)), "set staker list")
}

// RequestWithdraw marks amount of the active stake for withdrawal and restarts the lock.
func (s *Service) RequestWithdraw(addr thor.Address, amount *big.Int, now uint64) error {
	st, err := s.Get(addr)
	if err != nil {
		return err
	}
	if st.Status == StatusUnstaked {
		return reverts.ErrNotStaked
	}
	if _, err := s.units(amount); err != nil {
		return err
	}
	if amount.Cmp(st.ActiveStake()) > 0 {
		return reverts.ErrInsufficientBalance
	}

	st.WithdrawAmount.Add(st.WithdrawAmount, amount)
	st.Status = StatusWithdrawRequested
	st.WithdrawRequestedAt = now
	logger.Debug("stake withdraw requested", "staker", addr, "amount", amount)
	return s.set(addr, st)
}

// Withdraw releases the pending amount once the lock period elapsed.
// It returns the amount to be paid back.
func (s *Service) Withdraw(addr thor.Address, now uint64) (*big.Int, error) {
	st, err := s.Get(addr)
	if err != nil {
		return nil, err
	}
	if st.Status != StatusWithdrawRequested {
		return nil, reverts.ErrNotStaked
	}
	lock, err := s.params.GetUint64(thor.KeyStakeLockPeriod)
	if err != nil {
		return nil, err
	}
	if now < st.WithdrawRequestedAt || now-st.WithdrawRequestedAt < lock {
		return nil, reverts.ErrLockNotElapsed
	}
	if st.OpenDisputes > 0 {
		return nil, reverts.ErrUnderDispute
	}

	amount := new(big.Int).Set(st.WithdrawAmount)
	if err := s.release(st, amount); err != nil {
		return nil, err
	}
	st.WithdrawAmount.SetUint64(0)
	st.WithdrawRequestedAt = 0
	if st.Status != StatusUnstaked {
		st.Status = StatusStaked
	}
	logger.Debug("stake withdrawn", "staker", addr, "amount", amount, "count", st.Count)
	return amount, s.set(addr, st)
}

// Slash takes up to amount from the stake. The slashed amount is returned and is
// no longer escrowed for the staker. A staker slashed down to nothing is Unstaked.
func (s *Service) Slash(addr thor.Address, amount *big.Int) (*big.Int, error) {
	st, err := s.Get(addr)
	if err != nil {
		return nil, err
	}
	if st.Status == StatusUnstaked {
		return new(big.Int), nil
	}
	slashed := new(big.Int).Set(amount)
	if slashed.Cmp(st.Amount) > 0 {
		slashed.Set(st.Amount)
	}
	if err := s.release(st, slashed); err != nil {
		return nil, err
	}
	if st.WithdrawAmount.Cmp(st.Amount) > 0 {
		st.WithdrawAmount.Set(st.Amount)
	}
	if st.Status == StatusWithdrawRequested && st.WithdrawAmount.Sign() == 0 {
		st.Status = StatusStaked
	}
	logger.Debug("stake slashed", "staker", addr, "amount", slashed, "count", st.Count)
	return slashed, s.set(addr, st)
}

// release takes amount out of the record and the totals.
func (s *Service) release(st *Staker, amount *big.Int) error {
	min, err := s.minimumStake()
	if err != nil {
		return err
	}
	units := new(big.Int).Quo(amount, min).Uint64()
	if units > st.Count {
		units = st.Count
	}

	st.Amount.Sub(st.Amount, amount)
	st.Count -= units
	if err := s.totalStaked.Sub(amount); err != nil {
		return errors.Wrap(err, "total staked")
	}
	if err := s.stakerCount.Sub(new(big.Int).SetUint64(units)); err != nil {
		return errors.Wrap(err, "staker count")
	}

	if st.Amount.Sign() == 0 || st.Count == 0 {
		// leftovers below one unit can't keep a staker alive
		if st.Amount.Sign() > 0 {
			if err := s.totalStaked.Sub(st.Amount); err != nil {
				return errors.Wrap(err, "total staked")
			}
			st.Amount.SetUint64(0)
		}
		st.Status = StatusUnstaked
		st.Count = 0
		st.WithdrawAmount.SetUint64(0)
		st.WithdrawRequestedAt = 0
		if err := s.uniqueStakers.Sub(big.NewInt(1)); err != nil {
			return errors.Wrap(err, "unique stakers")
		}
	}
	return nil
}

// OpenDispute marks the staker as target of one more pending dispute.
func (s *Service) OpenDispute(addr thor.Address) error {
	st, err := s.Get(addr)
	if err != nil {
		return err
	}
	st.OpenDisputes++
	return s.set(addr, st)
}

// CloseDispute releases one pending dispute of the staker.
func (s *Service) CloseDispute(addr thor.Address) error {
	st, err := s.Get(addr)
	if err != nil {
		return err
	}
	if st.OpenDisputes > 0 {
		st.OpenDisputes--
	}
	return s.set(addr, st)
}

// IsEligible reports whether the address may mine, vote and open disputes.
func (s *Service) IsEligible(addr thor.Address) (bool, error) {
	st, err := s.Get(addr)
	if err != nil {
		return false, err
	}
	return s.eligible(st)
}

func (s *Service) eligible(st *Staker) (bool, error) {
	if st.Status == StatusUnstaked {
		return false, nil
	}
	min, err := s.minimumStake()
	if err != nil {
		return false, err
	}
	return st.ActiveStake().Cmp(min) >= 0, nil
}

// Stakers returns every address that ever staked, in registration order.
func (s *Service) Stakers() ([]thor.Address, error) {
	list, err := s.list.Get()
	return list, errors.Wrap(err, "get staker list")
}

// Eligible returns the eligible stakers in registration order.
func (s *Service) Eligible() ([]thor.Address, error) {
	list, err := s.Stakers()
	if err != nil {
		return nil, err
	}
	var res []thor.Address
	for _, addr := range list {
		ok, err := s.IsEligible(addr)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, addr)
		}
	}
	return res, nil
}

// Totals returns totalStaked, uniqueStakers and stakerCount.
func (s *Service) Totals() (*big.Int, uint64, uint64, error) {
	total, err := s.totalStaked.Get()
	if err != nil {
		return nil, 0, 0, err
	}
	unique, err := s.uniqueStakers.Get()
	if err != nil {
		return nil, 0, 0, err
	}
	count, err := s.stakerCount.Get()
	if err != nil {
		return nil, 0, 0, err
	}
	return total, unique.Uint64(), count.Uint64(), nil
}
