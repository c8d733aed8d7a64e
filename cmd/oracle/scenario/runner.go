// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/clock"
	"github.com/vechain/thor-oracle/genesis"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

var logger = log.WithContext("pkg", "scenario")

// Runner executes steps against an oracle. The last mined value and the last
// opened dispute are remembered, so steps may leave those references out.
type Runner struct {
	oracle *oracle.Oracle
	clock  *clock.Manual

	lastRequestID uint64
	lastTimestamp uint64
	lastDispute   uint64
}

// NewRunner creates a runner. clock may be nil, advance steps fail then.
// Ledger steps go through the oracle, so they are serialized with its operations.
func NewRunner(o *oracle.Oracle, clock *clock.Manual) *Runner {
	return &Runner{oracle: o, clock: clock}
}

// Run executes the scenario and stops at the first failing step.
// onStep is called after every successful step.
func (r *Runner) Run(ctx context.Context, sc *Scenario, onStep func(i int, s *Step)) error {
	for i := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := &sc.Steps[i]
		if err := r.Step(s); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i, s.Op)
		}
		if onStep != nil {
			onStep(i, s)
		}
	}
	return nil
}

// Step executes a single step and checks its expected outcome.
func (r *Runner) Step(s *Step) error {
	h, ok := handlers[s.Op]
	if !ok {
		return errors.Errorf("unknown op %q", s.Op)
	}
	err := h(r, s)
	if s.Expect == "" {
		return err
	}
	if err == nil {
		return errors.Errorf("expected %q, got success", s.Expect)
	}
	if !reverts.IsRevertErr(err) || err.Error() != s.Expect {
		return errors.Errorf("expected %q, got %q", s.Expect, err.Error())
	}
	logger.Debug("expected revert", "op", s.Op, "err", err)
	return nil
}

// Account resolves "devN" to the n-th dev account, or parses a hex address.
func Account(name string) (thor.Address, error) {
	if rest, ok := strings.CutPrefix(name, "dev"); ok {
		n, err := strconv.Atoi(rest)
		accs := genesis.DevAccounts()
		if err != nil || n < 0 || n >= len(accs) {
			return thor.Address{}, errors.Errorf("unknown dev account %q", name)
		}
		return accs[n].Address, nil
	}
	addr, err := thor.ParseAddress(name)
	if err != nil {
		return thor.Address{}, errors.Wrapf(err, "account %q", name)
	}
	return *addr, nil
}

type handler func(r *Runner, s *Step) error

var handlers = map[string]handler{
	"mint":            (*Runner).mint,
	"approve":         (*Runner).approve,
	"deposit":         (*Runner).deposit,
	"requestWithdraw": (*Runner).requestWithdraw,
	"withdraw":        (*Runner).withdraw,
	"tip":             (*Runner).tip,
	"request":         (*Runner).request,
	"submit":          (*Runner).submit,
	"mine":            (*Runner).mine,
	"reselect":        (*Runner).reselect,
	"dispute":         (*Runner).dispute,
	"vote":            (*Runner).vote,
	"tally":           (*Runner).tally,
	"unlock":          (*Runner).unlock,
	"advance":         (*Runner).advance,
	"expect":          (*Runner).expect,
}

func (r *Runner) accountAmount(s *Step) (thor.Address, *big.Int, error) {
	addr, err := Account(s.Account)
	if err != nil {
		return thor.Address{}, nil, err
	}
	amount, err := ParseAmount(s.Amount)
	if err != nil {
		return thor.Address{}, nil, err
	}
	return addr, amount, nil
}

func (r *Runner) mint(s *Step) error {
	addr, amount, err := r.accountAmount(s)
	if err != nil {
		return err
	}
	return r.oracle.Mint(addr, amount)
}

// approve lets the oracle spend amount on behalf of the account.
func (r *Runner) approve(s *Step) error {
	addr, amount, err := r.accountAmount(s)
	if err != nil {
		return err
	}
	spender := r.oracle.Address()
	if s.To != "" {
		if spender, err = Account(s.To); err != nil {
			return err
		}
	}
	return r.oracle.Approve(addr, spender, amount)
}

func (r *Runner) deposit(s *Step) error {
	addr, amount, err := r.accountAmount(s)
	if err != nil {
		return err
	}
	return r.oracle.DepositStake(addr, amount)
}

func (r *Runner) requestWithdraw(s *Step) error {
	addr, amount, err := r.accountAmount(s)
	if err != nil {
		return err
	}
	return r.oracle.RequestStakingWithdraw(addr, amount)
}

func (r *Runner) withdraw(s *Step) error {
	addr, err := Account(s.Account)
	if err != nil {
		return err
	}
	_, err = r.oracle.WithdrawStake(addr)
	return err
}

func (r *Runner) tip(s *Step) error {
	addr, amount, err := r.accountAmount(s)
	if err != nil {
		return err
	}
	return r.oracle.AddTip(addr, s.RequestID, amount)
}

func (r *Runner) request(s *Step) error {
	addr, amount, err := r.accountAmount(s)
	if err != nil {
		return err
	}
	id, err := r.oracle.RequestData(addr, s.Label, s.Granularity, amount)
	if err != nil {
		return err
	}
	logger.Debug("data requested", "label", s.Label, "id", id)
	return nil
}

// submit sends one value for the current round, or for RequestID when set.
func (r *Runner) submit(s *Step) error {
	addr, err := Account(s.Account)
	if err != nil {
		return err
	}
	value, err := ParseAmount(s.Value)
	if err != nil {
		return err
	}
	round, _, err := r.oracle.CurrentVariables()
	if err != nil {
		return err
	}
	id := s.RequestID
	if id == 0 {
		id = round.RequestID
	}
	if err := r.oracle.SubmitValue(addr, id, value); err != nil {
		return err
	}
	if len(round.Submissions)+1 == thor.MinersPerRound {
		r.lastRequestID, r.lastTimestamp = round.RequestID, round.Timestamp
	}
	return nil
}

// mine has the current validators submit Values in validator order.
func (r *Runner) mine(s *Step) error {
	round, _, err := r.oracle.CurrentVariables()
	if err != nil {
		return err
	}
	miners, err := r.oracle.CurrentMiners()
	if err != nil {
		return err
	}
	if len(s.Values) > len(miners) {
		return errors.Errorf("%d values for %d miners", len(s.Values), len(miners))
	}
	for i, v := range s.Values {
		value, err := ParseAmount(v)
		if err != nil {
			return err
		}
		if err := r.oracle.SubmitValue(miners[i], round.RequestID, value); err != nil {
			return errors.Wrapf(err, "miner %v", miners[i])
		}
	}
	if len(round.Submissions)+len(s.Values) >= thor.MinersPerRound {
		r.lastRequestID, r.lastTimestamp = round.RequestID, round.Timestamp
	}
	return nil
}

func (r *Runner) reselect(s *Step) error {
	addr, err := Account(s.Account)
	if err != nil {
		return err
	}
	set, err := r.oracle.ReselectNewValidators(addr)
	if err != nil {
		return err
	}
	logger.Debug("validators reselected", "count", len(set))
	return nil
}

func (r *Runner) dispute(s *Step) error {
	addr, err := Account(s.Account)
	if err != nil {
		return err
	}
	id, ts := s.RequestID, s.Timestamp
	if id == 0 {
		id = r.lastRequestID
	}
	if ts == 0 {
		ts = r.lastTimestamp
	}
	disputeID, err := r.oracle.BeginDispute(addr, id, ts, s.Index)
	if err != nil {
		return err
	}
	r.lastDispute = disputeID
	return nil
}

func (r *Runner) disputeID(s *Step) uint64 {
	if s.Dispute != 0 {
		return s.Dispute
	}
	return r.lastDispute
}

func (r *Runner) vote(s *Step) error {
	addr, err := Account(s.Account)
	if err != nil {
		return err
	}
	return r.oracle.Vote(addr, r.disputeID(s), s.Support)
}

func (r *Runner) tally(s *Step) error {
	return r.oracle.TallyVotes(r.disputeID(s))
}

func (r *Runner) unlock(s *Step) error {
	return r.oracle.UnlockDisputeFee(r.disputeID(s))
}

func (r *Runner) advance(s *Step) error {
	if r.clock == nil {
		return errors.New("advance needs a manual clock")
	}
	r.clock.Advance(s.Seconds)
	return nil
}

// expect compares a numeric variable, or the token balance of Account, with Value.
func (r *Runner) expect(s *Step) error {
	want, err := ParseAmount(s.Value)
	if err != nil {
		return err
	}
	var (
		got  *big.Int
		what string
	)
	if s.Var != "" {
		what = s.Var
		got, err = r.oracle.UintVar(s.Var)
	} else {
		what = "balance of " + s.Account
		var addr thor.Address
		if addr, err = Account(s.Account); err == nil {
			got, err = r.oracle.BalanceOf(addr)
		}
	}
	if err != nil {
		return err
	}
	if got.Cmp(want) != 0 {
		return fmt.Errorf("%s: want %v, got %v", what, want, got)
	}
	return nil
}
