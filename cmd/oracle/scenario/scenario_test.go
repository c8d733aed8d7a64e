// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/thor-oracle/clock"
	"github.com/vechain/thor-oracle/genesis"
	"github.com/vechain/thor-oracle/lvldb"
	"github.com/vechain/thor-oracle/state"
)

const disputeScenario = `
name: dispute the median
steps:
  - op: mine
    values: ["100", "101", "102", "103", "104"]
  - op: expect
    var: currentRequestId
    value: "1"
  - op: expect
    account: dev0
    value: "9905200000000000000000"
  - op: approve
    account: dev5
    amount: 200tok
  - op: deposit
    account: dev5
    amount: 100tok
  - op: dispute
    account: dev5
    index: 2
  - op: vote
    account: dev0
    support: true
  - op: vote
    account: dev1
    support: true
  - op: vote
    account: dev0
    expect: already voted
  - op: tally
    expect: lock not elapsed
  - op: advance
    seconds: 1900800
  - op: tally
  - op: expect
    var: stakerCount
    value: "5"
  - op: advance
    seconds: 172800
  - op: unlock
  - op: unlock
    expect: fee already unlocked
  - op: expect
    account: dev5
    value: 10000tok
`

func newRunner(t *testing.T) *Runner {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db, nil)
	gen := genesis.NewDevnet()
	clk := clock.NewManual(gen.LaunchTime)
	o, err := gen.Build(st, clk)
	require.NoError(t, err)
	return NewRunner(o, clk)
}

func TestRunDispute(t *testing.T) {
	sc, err := Parse([]byte(disputeScenario))
	require.NoError(t, err)
	assert.Equal(t, "dispute the median", sc.Name)

	r := newRunner(t)
	var done []string
	require.NoError(t, r.Run(context.Background(), sc, func(_ int, s *Step) {
		done = append(done, s.Op)
	}))
	assert.Len(t, done, len(sc.Steps))
	assert.Equal(t, uint64(1), r.lastDispute)

	d, err := r.oracle.AllDisputeVars(1)
	require.NoError(t, err)
	assert.True(t, d.Passed)
	assert.True(t, d.FeeUnlocked)
}

func TestRunStopsAtFailure(t *testing.T) {
	sc, err := Parse([]byte(`
steps:
  - op: expect
    var: uniqueStakers
    value: "5"
  - op: withdraw
    account: dev0
  - op: advance
    seconds: 1
`))
	require.NoError(t, err)

	r := newRunner(t)
	var ran int
	err = r.Run(context.Background(), sc, func(int, *Step) { ran++ })
	assert.ErrorContains(t, err, "step 1 (withdraw)")
	assert.ErrorContains(t, err, "not staked")
	assert.Equal(t, 1, ran)
}

func TestExpectMismatch(t *testing.T) {
	r := newRunner(t)

	err := r.Step(&Step{Op: "expect", Var: "difficulty", Value: "7"})
	assert.ErrorContains(t, err, "difficulty: want 7, got 1")

	err = r.Step(&Step{Op: "withdraw", Account: "dev0", Expect: "lock not elapsed"})
	assert.ErrorContains(t, err, `expected "lock not elapsed", got "not staked"`)

	err = r.Step(&Step{Op: "advance", Seconds: 10, Expect: "lock not elapsed"})
	assert.ErrorContains(t, err, "got success")

	r.clock = nil
	assert.Error(t, r.Step(&Step{Op: "advance", Seconds: 10}))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newRunner(t).Run(ctx, &Scenario{Steps: []Step{{Op: "advance", Seconds: 1}}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - op: fly\n"))
	assert.ErrorContains(t, err, `unknown op "fly"`)

	_, err = Parse([]byte("steps:\n  - op: tip\n    colour: red\n"))
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "0", true},
		{"42", "42", true},
		{"0x10", "16", true},
		{"3tok", "3000000000000000000", true},
		{"3 tok", "3000000000000000000", true},
		{"-5", "-5", true},
		{"abc", "", false},
		{"1.5tok", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestAccount(t *testing.T) {
	addr, err := Account("dev3")
	require.NoError(t, err)
	assert.Equal(t, genesis.DevAccounts()[3].Address, addr)

	addr, err = Account("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, byte(1), addr[19])

	for _, bad := range []string{"dev10", "dev-1", "devx", "0x01"} {
		_, err := Account(bad)
		assert.Error(t, err, bad)
	}
}
