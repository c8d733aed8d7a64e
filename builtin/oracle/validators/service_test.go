// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/lvldb"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(thor.InitialMinimumStake, big.NewInt(n))
}

func addr(i int) thor.Address {
	return thor.BytesToAddress([]byte{byte(i + 1)})
}

func newServices(t *testing.T) (*Service, *staking.Service) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := thor.BytesToAddress([]byte("oracle"))
	st := state.New(db, nil)
	sctx := solidity.NewContext(a, st)
	p := params.New(a, st)
	stakers := staking.New(sctx, p)
	return New(sctx, p, stakers), stakers
}

func deposit(t *testing.T, stakers *staking.Service, i int, n int64) {
	_, err := stakers.Deposit(addr(i), units(n), 0)
	require.NoError(t, err)
}

func TestRefreshTopsUp(t *testing.T) {
	svc, stakers := newServices(t)

	for i := range 3 {
		deposit(t, stakers, i, 1)
	}
	set, err := svc.Refresh()
	require.NoError(t, err)
	assert.Equal(t, []thor.Address{addr(0), addr(1), addr(2)}, set)

	for i := 3; i < 7; i++ {
		deposit(t, stakers, i, 1)
	}
	set, err = svc.Refresh()
	require.NoError(t, err)
	assert.Len(t, set, thor.MinersPerRound)
	assert.Equal(t, addr(4), set[4])

	selected, err := svc.IsSelected(addr(5))
	require.NoError(t, err)
	assert.False(t, selected)
}

func TestRefreshDropsIneligible(t *testing.T) {
	svc, stakers := newServices(t)

	for i := range 6 {
		deposit(t, stakers, i, 1)
	}
	_, err := svc.Refresh()
	require.NoError(t, err)

	require.NoError(t, stakers.RequestWithdraw(addr(1), units(1), 10))
	set, err := svc.Refresh()
	require.NoError(t, err)
	assert.Equal(t, []thor.Address{addr(0), addr(2), addr(3), addr(4), addr(5)}, set)

	selected, err := svc.IsSelected(addr(1))
	require.NoError(t, err)
	assert.False(t, selected)
}

func TestReselect(t *testing.T) {
	svc, stakers := newServices(t)
	svc.Init(1000)

	for i := range 7 {
		deposit(t, stakers, i, 1)
	}
	deposit(t, stakers, 6, 2)
	deposit(t, stakers, 3, 1)

	_, err := svc.Reselect(1000+3599, thor.BytesToBytes32([]byte("seed")))
	assert.Equal(t, reverts.ErrLockNotElapsed, err)

	set, err := svc.Reselect(1000+3600, thor.BytesToBytes32([]byte("seed")))
	require.NoError(t, err)
	assert.Len(t, set, 7)
	// ordered by active stake
	assert.Equal(t, addr(6), set[0])
	assert.Equal(t, addr(3), set[1])

	last, err := svc.LastReselect()
	require.NoError(t, err)
	assert.Equal(t, uint64(4600), last)

	cur, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, set, cur)

	_, err = svc.Reselect(4601, thor.BytesToBytes32([]byte("seed")))
	assert.Equal(t, reverts.ErrLockNotElapsed, err)
}

func TestReselectCapped(t *testing.T) {
	svc, stakers := newServices(t)

	for i := range 8 {
		deposit(t, stakers, i, 1)
	}
	require.NoError(t, svc.params.Set(thor.KeyMaxValidators, big.NewInt(6)))

	set, err := svc.Reselect(3600, thor.BytesToBytes32([]byte{1}))
	require.NoError(t, err)
	assert.Len(t, set, 6)

	// never below the round size
	require.NoError(t, svc.params.Set(thor.KeyMaxValidators, big.NewInt(2)))
	set, err = svc.Reselect(7200, thor.BytesToBytes32([]byte{2}))
	require.NoError(t, err)
	assert.Len(t, set, thor.MinersPerRound)
}

func TestReselectSameSeedSameOrder(t *testing.T) {
	svc1, stakers1 := newServices(t)
	svc2, stakers2 := newServices(t)
	for i := range 10 {
		deposit(t, stakers1, i, 1)
		deposit(t, stakers2, i, 1)
	}

	set1, err := svc1.Reselect(3600, thor.BytesToBytes32([]byte("x")))
	require.NoError(t, err)
	set2, err := svc2.Reselect(3600, thor.BytesToBytes32([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, set1, set2)
}
