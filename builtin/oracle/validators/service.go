// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"math/big"
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

var (
	slotValidators   = thor.BytesToBytes32([]byte("validators"))
	slotLastReselect = thor.BytesToBytes32([]byte("last-reselect"))

	logger = log.WithContext("pkg", "validators")
)

// Service keeps the set of stakers allowed to submit values.
type Service struct {
	params       *params.Params
	staking      *staking.Service
	set          *solidity.Value[[]thor.Address]
	lastReselect *solidity.Uint256
}

func New(sctx *solidity.Context, params *params.Params, staking *staking.Service) *Service {
	return &Service{
		params:       params,
		staking:      staking,
		set:          solidity.NewValue[[]thor.Address](sctx, slotValidators),
		lastReselect: solidity.NewUint256(sctx, slotLastReselect),
	}
}

// Init starts the reselection cooldown.
func (s *Service) Init(now uint64) {
	s.lastReselect.Set(new(big.Int).SetUint64(now))
}

// Current returns the validators in selection order.
func (s *Service) Current() ([]thor.Address, error) {
	set, err := s.set.Get()
	return set, errors.Wrap(err, "get validators")
}

func (s *Service) IsSelected(addr thor.Address) (bool, error) {
	set, err := s.Current()
	if err != nil {
		return false, err
	}
	return slices.Contains(set, addr), nil
}

func (s *Service) LastReselect() (uint64, error) {
	v, err := s.lastReselect.Get()
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// Refresh drops members that are no longer eligible and tops the set up to
// the round size with eligible stakers in registration order.
func (s *Service) Refresh() ([]thor.Address, error) {
	set, err := s.Current()
	if err != nil {
		return nil, err
	}

	kept := set[:0:0]
	for _, addr := range set {
		ok, err := s.staking.IsEligible(addr)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, addr)
		} else {
			logger.Debug("validator dropped", "addr", addr)
		}
	}

	if len(kept) < thor.MinersPerRound {
		eligible, err := s.staking.Eligible()
		if err != nil {
			return nil, err
		}
		for _, addr := range eligible {
			if len(kept) >= thor.MinersPerRound {
				break
			}
			if !slices.Contains(kept, addr) {
				kept = append(kept, addr)
				logger.Debug("validator joined", "addr", addr)
			}
		}
	}

	if err := s.set.Set(kept); err != nil {
		return nil, errors.Wrap(err, "set validators")
	}
	return kept, nil
}

// Reselect replaces the set with every eligible staker, shuffled by ref and now and
// then ordered by active stake, up to maxValidators members. ref is the key of the
// last recorded value.
func (s *Service) Reselect(now uint64, ref thor.Bytes32) ([]thor.Address, error) {
	last, err := s.LastReselect()
	if err != nil {
		return nil, err
	}
	cooldown, err := s.params.GetUint64(thor.KeyReselectCooldown)
	if err != nil {
		return nil, err
	}
	if now < last || now-last < cooldown {
		return nil, reverts.ErrLockNotElapsed
	}
	limit, err := s.params.GetUint64(thor.KeyMaxValidators)
	if err != nil {
		return nil, err
	}
	limit = max(limit, thor.MinersPerRound)

	eligible, err := s.staking.Eligible()
	if err != nil {
		return nil, err
	}

	type candidate struct {
		addr  thor.Address
		stake *big.Int
	}
	perm := Order(ref, now, len(eligible))
	candidates := make([]candidate, 0, len(eligible))
	for _, i := range perm {
		st, err := s.staking.Get(eligible[i])
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{eligible[i], st.ActiveStake()})
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return b.stake.Cmp(a.stake)
	})
	if uint64(len(candidates)) > limit {
		candidates = candidates[:limit]
	}

	set := make([]thor.Address, len(candidates))
	for i, c := range candidates {
		set[i] = c.addr
	}
	if err := s.set.Set(set); err != nil {
		return nil, errors.Wrap(err, "set validators")
	}
	s.lastReselect.Set(new(big.Int).SetUint64(now))

	logger.Debug("validators reselected", "count", len(set))
	return set, nil
}
