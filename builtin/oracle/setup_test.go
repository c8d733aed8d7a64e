// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/token"
	"github.com/vechain/thor-oracle/clock"
	"github.com/vechain/thor-oracle/lvldb"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

const (
	day       = 24 * 3600
	startTime = 1_700_000_000
)

var (
	oracleAddr = thor.BytesToAddress([]byte("Oracle"))
	requester  = thor.BytesToAddress([]byte("requester"))
)

func toWei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func account(i int) thor.Address {
	return thor.BytesToAddress([]byte{byte(i + 1)})
}

type OracleTest struct {
	*Oracle
	t     *testing.T
	clock *clock.Manual
	state *state.State
}

func newTest(t *testing.T) *OracleTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db, nil)
	tok := token.New(thor.BytesToAddress([]byte("Token")), st)
	clk := clock.NewManual(startTime)
	o := New(oracleAddr, st, params.New(thor.BytesToAddress([]byte("Params")), st), tok, clk)
	require.NoError(t, o.Initialize())

	ot := &OracleTest{Oracle: o, t: t, clock: clk, state: st}
	ot.fund(requester, toWei(500))
	return ot
}

// fund mints amount to addr and lets the oracle spend all of it.
func (ot *OracleTest) fund(addr thor.Address, amount *big.Int) {
	require.NoError(ot.t, ot.Mint(addr, amount))
	bal, err := ot.BalanceOf(addr)
	require.NoError(ot.t, err)
	require.NoError(ot.t, ot.Approve(addr, oracleAddr, bal))
}

// stake funds n accounts with 1000 tokens each and deposits one minimum stake for each.
func (ot *OracleTest) stake(n int) {
	for i := range n {
		ot.fund(account(i), toWei(1000))
		require.NoError(ot.t, ot.DepositStake(account(i), toWei(100)))
	}
}

// setup stakes five accounts and starts mining request 1 with a tip of 5.
func (ot *OracleTest) setup() *OracleTest {
	ot.stake(5)
	require.NoError(ot.t, ot.AddTip(requester, 1, big.NewInt(5)))
	return ot
}

func (ot *OracleTest) balance(addr thor.Address) *big.Int {
	bal, err := ot.BalanceOf(addr)
	require.NoError(ot.t, err)
	return bal
}

func (ot *OracleTest) uintVar(name string) *big.Int {
	v, err := ot.UintVar(name)
	require.NoError(ot.t, err)
	return v
}

// mineRound has the current miners submit the values in order and returns the
// request id and timestamp of the recorded value.
func (ot *OracleTest) mineRound(values ...int64) (uint64, uint64) {
	round, _, err := ot.CurrentVariables()
	require.NoError(ot.t, err)
	miners, err := ot.CurrentMiners()
	require.NoError(ot.t, err)
	require.GreaterOrEqual(ot.t, len(miners), len(values))

	for i, v := range values {
		require.NoError(ot.t, ot.SubmitValue(miners[i], round.RequestID, big.NewInt(v)))
	}
	return round.RequestID, round.Timestamp
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	oracle *OracleTest

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(oracle *OracleTest) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), oracle: oracle}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) Deposit(addr thor.Address, amount *big.Int) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.oracle.DepositStake(addr, amount); err != nil {
			t.Fatalf("failed to deposit for %s: %v", addr, err)
		}
		t.Logf("deposited %s for %s", amount, addr)
	})
}

func (st *TestSequence) RequestWithdraw(addr thor.Address, amount *big.Int) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.oracle.RequestStakingWithdraw(addr, amount); err != nil {
			t.Fatalf("failed to request withdraw for %s: %v", addr, err)
		}
		t.Logf("requested withdraw of %s for %s", amount, addr)
	})
}

func (st *TestSequence) Withdraw(addr thor.Address) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		amount, err := st.oracle.WithdrawStake(addr)
		if err != nil {
			t.Fatalf("failed to withdraw for %s: %v", addr, err)
		}
		t.Logf("withdrawn %s for %s", amount, addr)
	})
}

func (st *TestSequence) Tip(id uint64, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.oracle.AddTip(requester, id, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to tip %d: %v", id, err)
		}
	})
}

func (st *TestSequence) Mine(values ...int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		id, ts := st.oracle.mineRound(values...)
		t.Logf("mined request %d at %d", id, ts)
	})
}

func (st *TestSequence) Advance(seconds uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		now := st.oracle.clock.Advance(seconds)
		t.Logf("clock advanced to %d", now)
	})
}

// Expect asserts on an error returned by op, typically a revert.
func (st *TestSequence) Expect(expected error, op func(o *OracleTest) error) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		assert.ErrorIs(t, op(st.oracle), expected)
	})
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}

	t.Logf("All test functions executed successfully")
}

type StakerAssertions struct {
	oracle *OracleTest
	addr   thor.Address

	status  *staking.Status
	amount  *big.Int
	count   *uint64
	balance *big.Int
}

func AssertStaker(oracle *OracleTest, addr thor.Address) *StakerAssertions {
	return &StakerAssertions{oracle: oracle, addr: addr}
}

func (sa *StakerAssertions) Status(expected staking.Status) *StakerAssertions {
	sa.status = &expected
	return sa
}

func (sa *StakerAssertions) Amount(expected *big.Int) *StakerAssertions {
	sa.amount = expected
	return sa
}

func (sa *StakerAssertions) Count(expected uint64) *StakerAssertions {
	sa.count = &expected
	return sa
}

// Balance asserts the ledger balance.
func (sa *StakerAssertions) Balance(expected *big.Int) *StakerAssertions {
	sa.balance = expected
	return sa
}

func (sa *StakerAssertions) Assert(t *testing.T) {
	st, err := sa.oracle.StakerInfo(sa.addr)
	require.NoError(t, err, "failed to get staker %s", sa.addr)

	if sa.status != nil {
		assert.Equal(t, *sa.status, st.Status, "staker %s status mismatch", sa.addr)
	}
	if sa.amount != nil {
		assert.Equal(t, 0, sa.amount.Cmp(st.Amount), "staker %s amount mismatch: %s", sa.addr, st.Amount)
	}
	if sa.count != nil {
		assert.Equal(t, *sa.count, st.Count, "staker %s count mismatch", sa.addr)
	}
	if sa.balance != nil {
		bal := sa.oracle.balance(sa.addr)
		assert.Equal(t, 0, sa.balance.Cmp(bal), "staker %s balance mismatch: %s", sa.addr, bal)
	}
}
