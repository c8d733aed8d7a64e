// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/lvldb"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

func newService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	addr := thor.BytesToAddress([]byte("oracle"))
	st := state.New(db, nil)
	return New(solidity.NewContext(addr, st), params.New(addr, st))
}

func miner(i int) thor.Address {
	return thor.BytesToAddress([]byte{byte(i + 1)})
}

// mine opens a round for id at now and submits the given values from miners 0..4.
func mine(t *testing.T, svc *Service, id, now uint64, values ...int64) (*Round, *MinedValue) {
	_, err := svc.Open(id, big.NewInt(50), now)
	require.NoError(t, err)
	for i, v := range values {
		done, err := svc.Submit(miner(i), id, big.NewInt(v))
		require.NoError(t, err)
		assert.Equal(t, i == len(values)-1, done)
	}
	r, mv, err := svc.Finalize(now)
	require.NoError(t, err)
	return r, mv
}

func TestOpenTimestamp(t *testing.T) {
	svc := newService(t)

	r, err := svc.Open(1, big.NewInt(5), 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(960), r.Timestamp)
	assert.Equal(t, uint64(1000), r.OpenedAt)
	assert.True(t, r.Active())

	cur, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, r.Timestamp, cur.Timestamp)
	assert.Equal(t, int64(5), cur.TotalTips.Int64())

	cur, err = svc.AddTips(big.NewInt(20))
	require.NoError(t, err)
	assert.Equal(t, int64(25), cur.TotalTips.Int64())
}

func TestOpenTimestampStrictlyIncreasing(t *testing.T) {
	svc := newService(t)
	svc.Init(900)

	r, _ := mine(t, svc, 1, 1000, 1, 2, 3, 4, 5)
	assert.Equal(t, uint64(960), r.Timestamp)

	r, _ = mine(t, svc, 1, 1010, 1, 2, 3, 4, 5)
	assert.Equal(t, uint64(961), r.Timestamp)

	r, _ = mine(t, svc, 1, 1100, 1, 2, 3, 4, 5)
	assert.Equal(t, uint64(1080), r.Timestamp)

	stamps, err := svc.Timestamps(1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{960, 961, 1080}, stamps)

	count, err := svc.NewValueCount(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	ts, err := svc.TimestampByIndex(1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(961), ts)

	_, err = svc.TimestampByIndex(1, 3)
	assert.Equal(t, reverts.ErrIndexOutOfRange, err)
}

func TestSubmitErrors(t *testing.T) {
	svc := newService(t)

	_, err := svc.Submit(miner(0), 1, big.NewInt(1))
	assert.Equal(t, reverts.ErrWrongRequestID, err)
	_, err = svc.AddTips(big.NewInt(1))
	assert.Equal(t, reverts.ErrWrongRequestID, err)

	_, err = svc.Open(1, new(big.Int), 60)
	require.NoError(t, err)

	_, err = svc.Submit(miner(0), 3, big.NewInt(1))
	assert.Equal(t, reverts.ErrWrongRequestID, err)

	done, err := svc.Submit(miner(0), 1, big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, done)

	_, err = svc.Submit(miner(0), 1, big.NewInt(2))
	assert.Equal(t, reverts.ErrDuplicateSubmission, err)

	_, _, err = svc.Finalize(60)
	assert.Error(t, err)
	assert.False(t, reverts.IsRevertErr(err))
}

func TestFinalize(t *testing.T) {
	svc := newService(t)
	svc.Init(900)

	r, mv := mine(t, svc, 7, 1000, 5, 3, 5, 1, 3)
	assert.Equal(t, uint64(7), r.RequestID)
	assert.Equal(t, int64(50), r.TotalTips.Int64())

	// stable on submission order
	assert.Equal(t, []thor.Address{miner(3), miner(1), miner(4), miner(0), miner(2)}, mv.Miners)
	var values []int64
	for _, v := range mv.Values {
		values = append(values, v.Int64())
	}
	assert.Equal(t, []int64{1, 3, 3, 5, 5}, values)
	assert.Equal(t, int64(3), mv.Value.Int64())
	assert.Equal(t, miner(4), mv.Median())
	assert.Equal(t, uint64(1), mv.RoundNum)

	cur, err := svc.Current()
	require.NoError(t, err)
	assert.False(t, cur.Active())

	got, err := svc.RetrieveData(7, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Int64())

	num, err := svc.MinedBlockNum(7, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), num)

	num, err = svc.MinedBlockNum(7, r.Timestamp+1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), num)

	did, err := svc.DidMine(7, r.Timestamp, miner(2))
	require.NoError(t, err)
	assert.True(t, did)
	did, err = svc.DidMine(7, r.Timestamp, miner(9))
	require.NoError(t, err)
	assert.False(t, did)

	// 100s elapsed against a 600s target
	diff, err := svc.Difficulty()
	require.NoError(t, err)
	assert.Equal(t, int64(2), diff.Int64())

	last, err := svc.TimeOfLastNewValue()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), last)

	v, ref, ok, err := svc.LastNewValue()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v.Int64())
	assert.Equal(t, ValueRef{7, r.Timestamp}, ref)

	_, mv = mine(t, svc, 8, 1600, 1, 1, 1, 1, 1)
	assert.Equal(t, uint64(2), mv.RoundNum)
	rounds, err := svc.RoundCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rounds)
}

func TestDisputeFlags(t *testing.T) {
	svc := newService(t)

	r, _ := mine(t, svc, 1, 120, 10, 20, 30, 40, 50)

	in, err := svc.IsInDispute(1, r.Timestamp)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, svc.SetInDispute(1, r.Timestamp, true))
	in, err = svc.IsInDispute(1, r.Timestamp)
	require.NoError(t, err)
	assert.True(t, in)

	require.NoError(t, svc.ZeroValue(1, r.Timestamp))
	v, err := svc.RetrieveData(1, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())

	mv, err := svc.MinedValue(1, r.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, int64(30), mv.Values[2].Int64())

	assert.Equal(t, reverts.ErrUnknownID, svc.SetInDispute(1, r.Timestamp+1, true))
	assert.Equal(t, reverts.ErrUnknownID, svc.ZeroValue(2, r.Timestamp))
}

func TestLastNewValueEmpty(t *testing.T) {
	svc := newService(t)

	v, _, ok, err := svc.LastNewValue()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, v.Sign())

	diff, err := svc.Difficulty()
	require.NoError(t, err)
	assert.Equal(t, int64(1), diff.Int64())
}
