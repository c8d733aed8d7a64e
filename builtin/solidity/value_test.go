// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/thor-oracle/thor"
)

func TestValue(t *testing.T) {
	type pair struct {
		A uint64
		B []uint64
	}
	v := NewValue[pair](newTestContext(t), thor.Bytes32{3})

	got, err := v.Get()
	require.NoError(t, err)
	assert.Zero(t, got)

	require.NoError(t, v.Set(pair{A: 1, B: []uint64{2, 3}}))
	got, err = v.Get()
	require.NoError(t, err)
	assert.Equal(t, pair{A: 1, B: []uint64{2, 3}}, got)

	require.NoError(t, v.Set(pair{}))
	raw, err := v.context.State().GetRawStorage(v.context.Address(), thor.Bytes32{3})
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestUint256(t *testing.T) {
	u := NewUint256(newTestContext(t), thor.Bytes32{1})

	u.Set(big.NewInt(1000))
	value, err := u.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), value)

	assert.NoError(t, u.Add(big.NewInt(500)))
	value, err = u.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), value)

	assert.NoError(t, u.Sub(big.NewInt(200)))
	value, err = u.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1300), value)

	assert.ErrorIs(t, u.Sub(big.NewInt(1301)), errUnderflow)
	value, err = u.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1300), value)
}
