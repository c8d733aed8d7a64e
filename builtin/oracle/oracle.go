// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/oracle/disputes"
	"github.com/vechain/thor-oracle/builtin/oracle/mining"
	"github.com/vechain/thor-oracle/builtin/oracle/requests"
	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/builtin/oracle/validators"
	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

var logger = log.WithContext("pkg", "oracle")

// Ledger moves the tokens the oracle is paid and staked in.
type Ledger interface {
	BalanceOf(addr thor.Address) (*big.Int, error)
	Transfer(from, to thor.Address, amount *big.Int) error
	TransferFrom(spender, from, to thor.Address, amount *big.Int) error
	Mint(to thor.Address, amount *big.Int) error
	Approve(owner, spender thor.Address, amount *big.Int) error
}

// Clock tells the current unix time in seconds.
type Clock interface {
	Now() uint64
}

// Oracle implements the oracle contract: staking, tipped requests, mining rounds,
// validator selection and disputes. Funds in custody are held by the oracle address
// on the ledger.
//
// Every mutating call is atomic. On error the state is reverted to where the call
// started, so a ledger living on the same state is rolled back along.
type Oracle struct {
	addr   thor.Address
	state  *state.State
	params *params.Params
	ledger Ledger
	clock  Clock

	staking    *staking.Service
	requests   *requests.Service
	mining     *mining.Service
	validators *validators.Service
	disputes   *disputes.Service

	mu      sync.Mutex
	now     uint64
	pending []*Event
	feed    event.Feed
	scope   event.SubscriptionScope
}

// New create a new instance.
func New(addr thor.Address, state *state.State, params *params.Params, ledger Ledger, clock Clock) *Oracle {
	sctx := solidity.NewContext(addr, state)

	stakingService := staking.New(sctx, params)
	miningService := mining.New(sctx, params)

	return &Oracle{
		addr:       addr,
		state:      state,
		params:     params,
		ledger:     ledger,
		clock:      clock,
		staking:    stakingService,
		requests:   requests.New(sctx),
		mining:     miningService,
		validators: validators.New(sctx, params, stakingService),
		disputes:   disputes.New(sctx, params, stakingService, miningService),
	}
}

func (o *Oracle) Address() thor.Address {
	return o.addr
}

// SubscribeEvents delivers the events of every successful operation to ch.
func (o *Oracle) SubscribeEvents(ch chan<- *Event) event.Subscription {
	return o.scope.Track(o.feed.Subscribe(ch))
}

// Commit flushes the state changed so far to its store.
func (o *Oracle) Commit() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Commit()
}

// Close ends all subscriptions.
func (o *Oracle) Close() {
	o.scope.Close()
}

// exec runs fn as one atomic operation. Events are sent once the lock is released.
func (o *Oracle) exec(op string, fn func() error) error {
	events, err := o.apply(op, fn)
	for _, ev := range events {
		o.feed.Send(ev)
	}
	return err
}

// apply runs fn under the lock and a state checkpoint. The checkpoint is
// reverted when fn fails or panics.
func (o *Oracle) apply(op string, fn func() error) (events []*Event, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.now = o.clock.Now()
	o.pending = nil
	checkpoint := o.state.NewCheckpoint()
	defer func() {
		if r := recover(); r != nil {
			o.state.RevertTo(checkpoint)
			o.pending = nil
			metricReverts().AddWithLabel(1, map[string]string{"op": op})
			logger.Error("operation panicked", "op", op, "panic", r)
			panic(r)
		}
	}()

	if err := fn(); err != nil {
		o.state.RevertTo(checkpoint)
		o.pending = nil

		metricReverts().AddWithLabel(1, map[string]string{"op": op})
		if reverts.IsRevertErr(err) {
			logger.Debug("operation reverted", "op", op, "err", err)
		} else {
			logger.Warn("operation failed", "op", op, "err", err)
		}
		return nil, err
	}
	events, o.pending = o.pending, nil
	return events, nil
}

func (o *Oracle) emit(ev *Event) {
	ev.At = o.now
	o.pending = append(o.pending, ev)
}

// view runs a read under the lock.
func (o *Oracle) view(fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return fn()
}

// Initialize starts the difficulty clock and the validator reselection cooldown.
func (o *Oracle) Initialize() error {
	return o.exec("initialize", func() error {
		o.mining.Init(o.now)
		o.validators.Init(o.now)
		return nil
	})
}

//
// Ledger
//

// Mint credits amount of new tokens to addr. The ledger shares the oracle state,
// so its writes are serialized with the oracle operations.
func (o *Oracle) Mint(to thor.Address, amount *big.Int) error {
	return o.exec("mint", func() error {
		return o.ledger.Mint(to, amount)
	})
}

// Approve lets spender move up to amount of the owner's tokens.
func (o *Oracle) Approve(owner, spender thor.Address, amount *big.Int) error {
	return o.exec("approve", func() error {
		return o.ledger.Approve(owner, spender, amount)
	})
}

//
// Staking
//

// DepositStake escrows amount from the staker. The oracle must be approved to spend it.
func (o *Oracle) DepositStake(staker thor.Address, amount *big.Int) error {
	return o.exec("depositStake", func() error {
		count, err := o.staking.Deposit(staker, amount, o.now)
		if err != nil {
			return err
		}
		if err := o.ledger.TransferFrom(o.addr, staker, o.addr, amount); err != nil {
			return err
		}
		if _, err := o.validators.Refresh(); err != nil {
			return err
		}
		o.emit(&Event{Kind: KindStakeDeposited, Account: staker, Amount: new(big.Int).Set(amount)})
		logger.Debug("stake deposited", "staker", staker, "amount", amount, "count", count)
		return o.updateStakeGauge()
	})
}

// RequestStakingWithdraw starts the lock period of amount, which stops counting as
// active stake right away.
func (o *Oracle) RequestStakingWithdraw(staker thor.Address, amount *big.Int) error {
	return o.exec("requestStakingWithdraw", func() error {
		if err := o.staking.RequestWithdraw(staker, amount, o.now); err != nil {
			return err
		}
		if _, err := o.validators.Refresh(); err != nil {
			return err
		}
		o.emit(&Event{Kind: KindStakeWithdrawRequested, Account: staker, Amount: new(big.Int).Set(amount)})
		return nil
	})
}

// WithdrawStake pays back the stake whose lock period elapsed.
func (o *Oracle) WithdrawStake(staker thor.Address) (*big.Int, error) {
	var amount *big.Int
	err := o.exec("withdrawStake", func() (err error) {
		if amount, err = o.staking.Withdraw(staker, o.now); err != nil {
			return err
		}
		if err := o.ledger.Transfer(o.addr, staker, amount); err != nil {
			return err
		}
		if _, err := o.validators.Refresh(); err != nil {
			return err
		}
		o.emit(&Event{Kind: KindStakeWithdrawn, Account: staker, Amount: new(big.Int).Set(amount)})
		return o.updateStakeGauge()
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (o *Oracle) updateStakeGauge() error {
	total, _, _, err := o.staking.Totals()
	if err != nil {
		return err
	}
	metricTotalStaked().Set(tokens(total))
	return nil
}

//
// Requests
//

// AddTip escrows amount from the tipper for the request. A tip for the request
// being mined goes to the current round.
func (o *Oracle) AddTip(tipper thor.Address, requestID uint64, amount *big.Int) error {
	return o.exec("addTip", func() error {
		return o.addTip(tipper, requestID, amount)
	})
}

// RequestData resolves the query to a request id and tips it.
func (o *Oracle) RequestData(requester thor.Address, label string, granularity uint64, tip *big.Int) (uint64, error) {
	var id uint64
	err := o.exec("requestData", func() (err error) {
		if id, err = o.requests.Resolve(label, granularity, requester); err != nil {
			return err
		}
		return o.addTip(requester, id, tip)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (o *Oracle) addTip(tipper thor.Address, requestID uint64, amount *big.Int) error {
	if requestID == 0 {
		return reverts.ErrUnknownID
	}
	if amount == nil {
		amount = new(big.Int)
	}
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	if amount.Sign() > 0 {
		if err := o.ledger.TransferFrom(o.addr, tipper, o.addr, amount); err != nil {
			return err
		}
	}

	round, err := o.mining.Current()
	if err != nil {
		return err
	}
	var total *big.Int
	if round.Active() && round.RequestID == requestID {
		if round, err = o.mining.AddTips(amount); err != nil {
			return err
		}
		total = round.TotalTips
	} else {
		req, err := o.requests.AddTip(requestID, tipper, amount)
		if err != nil {
			return err
		}
		total = req.TotalTip
	}
	o.emit(&Event{
		Kind:      KindTipAdded,
		RequestID: requestID,
		Account:   tipper,
		Amount:    new(big.Int).Set(amount),
		TotalTips: new(big.Int).Set(total),
	})
	metricTips().Add(1)

	return o.tick()
}

// tick opens a round for the on-deck request when nothing is being mined.
func (o *Oracle) tick() error {
	round, err := o.mining.Current()
	if err != nil {
		return err
	}
	if !round.Active() {
		id, pool, err := o.requests.PopOnDeck()
		if err != nil {
			return err
		}
		if id != 0 {
			if err := o.openRound(id, pool); err != nil {
				return err
			}
		}
	}
	return o.updateQueueGauge()
}

func (o *Oracle) openRound(id uint64, tips *big.Int) error {
	round, err := o.mining.Open(id, tips, o.now)
	if err != nil {
		return err
	}
	o.emit(&Event{
		Kind:      KindRoundOpened,
		RequestID: id,
		Timestamp: round.Timestamp,
		TotalTips: new(big.Int).Set(round.TotalTips),
	})
	return nil
}

func (o *Oracle) updateQueueGauge() error {
	q, err := o.requests.Queue()
	if err != nil {
		return err
	}
	metricQueueSize().Set(int64(q.Len()))
	return nil
}

//
// Mining
//

// SubmitValue reports the miner's value for the request being mined. The fifth
// submission closes the round: the median is recorded, miners are paid and the
// next request is opened.
func (o *Oracle) SubmitValue(miner thor.Address, requestID uint64, value *big.Int) error {
	return o.exec("submitValue", func() error {
		if err := o.tick(); err != nil {
			return err
		}
		selected, err := o.validators.IsSelected(miner)
		if err != nil {
			return err
		}
		eligible, err := o.staking.IsEligible(miner)
		if err != nil {
			return err
		}
		if !selected || !eligible {
			return reverts.ErrNotSelectedMiner
		}
		if value == nil || value.Sign() < 0 {
			return reverts.ErrInvalidAmount
		}

		done, err := o.mining.Submit(miner, requestID, value)
		if err != nil {
			return err
		}
		logger.Debug("value submitted", "miner", miner, "id", requestID, "value", value)
		if done {
			return o.finalize()
		}
		return nil
	})
}

func (o *Oracle) finalize() error {
	round, mv, err := o.mining.Finalize(o.now)
	if err != nil {
		return err
	}

	reward, err := o.params.Get(thor.KeyMinerReward)
	if err != nil {
		return err
	}
	share, rem := new(big.Int).QuoRem(round.TotalTips, big.NewInt(int64(len(mv.Miners))), new(big.Int))
	for i, miner := range mv.Miners {
		if reward.Sign() > 0 {
			if err := o.ledger.Mint(miner, reward); err != nil {
				return errors.Wrap(err, "mint reward")
			}
		}
		pay := new(big.Int).Set(share)
		if i == thor.MedianIndex {
			pay.Add(pay, rem)
		}
		if pay.Sign() > 0 {
			if err := o.ledger.Transfer(o.addr, miner, pay); err != nil {
				return errors.Wrap(err, "pay tips")
			}
		}
	}

	o.emit(&Event{
		Kind:      KindValueRecorded,
		RequestID: round.RequestID,
		Timestamp: round.Timestamp,
		Value:     new(big.Int).Set(mv.Value),
		Reward:    new(big.Int).Set(reward),
		TotalTips: new(big.Int).Set(round.TotalTips),
	})

	diff, err := o.mining.Difficulty()
	if err != nil {
		return err
	}
	metricRoundsFinalized().Add(1)
	metricDifficulty().Set(diff.Int64())
	metricRoundDuration().Observe(int64(o.now - round.OpenedAt))
	logger.Info("value recorded", "id", round.RequestID, "timestamp", round.Timestamp, "value", mv.Value, "round", mv.RoundNum, "difficulty", diff)

	next, pool, err := o.requests.PopOnDeck()
	if err != nil {
		return err
	}
	if next == 0 {
		next, pool = round.RequestID, new(big.Int)
	}
	if err := o.openRound(next, pool); err != nil {
		return err
	}
	return o.updateQueueGauge()
}

//
// Validators
//

// ReselectNewValidators replaces the validator set with all eligible stakers,
// ordered by stake. It can be called by anyone once the cooldown elapsed.
func (o *Oracle) ReselectNewValidators(caller thor.Address) ([]thor.Address, error) {
	var set []thor.Address
	err := o.exec("reselectNewValidators", func() error {
		_, ref, _, err := o.mining.LastNewValue()
		if err != nil {
			return err
		}
		if set, err = o.validators.Reselect(o.now, ref.Key()); err != nil {
			return err
		}
		o.emit(&Event{Kind: KindValidatorsReselected, Account: caller, Validators: set})
		logger.Debug("validators reselected", "caller", caller, "count", len(set))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

//
// Disputes
//

// BeginDispute challenges the submission of the miner at minerIndex. The reporter's
// bond is escrowed until the dispute fee is unlocked.
func (o *Oracle) BeginDispute(reporter thor.Address, requestID, timestamp, minerIndex uint64) (uint64, error) {
	var id uint64
	err := o.exec("beginDispute", func() error {
		d, err := o.disputes.Begin(reporter, requestID, timestamp, minerIndex, o.now)
		if err != nil {
			return err
		}
		if err := o.ledger.TransferFrom(o.addr, reporter, o.addr, d.Bond); err != nil {
			return err
		}
		id = d.ID
		o.emit(&Event{
			Kind:      KindDisputeOpened,
			DisputeID: d.ID,
			RequestID: requestID,
			Timestamp: timestamp,
			Account:   reporter,
			Miner:     d.Miner,
			Value:     new(big.Int).Set(d.Value),
			Amount:    new(big.Int).Set(d.Bond),
		})
		metricDisputes().AddWithLabel(1, map[string]string{"result": "opened"})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Vote casts the voter's ballot weighted by its active stake.
func (o *Oracle) Vote(voter thor.Address, disputeID uint64, support bool) error {
	return o.exec("vote", func() error {
		b, err := o.disputes.Vote(voter, disputeID, support)
		if err != nil {
			return err
		}
		o.emit(&Event{
			Kind:      KindVoted,
			DisputeID: disputeID,
			Account:   voter,
			Support:   support,
			Amount:    new(big.Int).Set(b.Weight),
		})
		return nil
	})
}

// TallyVotes resolves the dispute after the vote window. A passed dispute pays
// the slashed stake to the reporter, a failed one pays the dispute fee to the miner.
func (o *Oracle) TallyVotes(disputeID uint64) error {
	return o.exec("tallyVotes", func() error {
		d, err := o.disputes.Tally(disputeID, o.now)
		if err != nil {
			return err
		}
		to, amount, result := d.Miner, d.Fee, "failed"
		if d.Passed {
			to, amount, result = d.Reporter, d.Slashed, "passed"
		}
		if amount.Sign() > 0 {
			if err := o.ledger.Transfer(o.addr, to, amount); err != nil {
				return err
			}
		}
		if _, err := o.validators.Refresh(); err != nil {
			return err
		}
		o.emit(&Event{
			Kind:      KindDisputeTallied,
			DisputeID: disputeID,
			RequestID: d.RequestID,
			Timestamp: d.Timestamp,
			Account:   d.Reporter,
			Miner:     d.Miner,
			Passed:    d.Passed,
			Amount:    new(big.Int).Set(amount),
		})
		metricDisputes().AddWithLabel(1, map[string]string{"result": result})
		return o.updateStakeGauge()
	})
}

// UnlockDisputeFee returns what is left of the bond to the reporter.
func (o *Oracle) UnlockDisputeFee(disputeID uint64) error {
	return o.exec("unlockDisputeFee", func() error {
		d, err := o.disputes.Unlock(disputeID, o.now)
		if err != nil {
			return err
		}
		refund := d.Refund()
		if refund.Sign() > 0 {
			if err := o.ledger.Transfer(o.addr, d.Reporter, refund); err != nil {
				return err
			}
		}
		o.emit(&Event{
			Kind:      KindDisputeFeeUnlocked,
			DisputeID: disputeID,
			Account:   d.Reporter,
			Amount:    refund,
		})
		return nil
	})
}
