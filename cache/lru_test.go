// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetOrLoad(t *testing.T) {
	c, err := NewLRU(2)
	require.NoError(t, err)

	loads := 0
	loader := func(key any) (any, error) {
		loads++
		return key.(int) * 10, nil
	}

	v, err := c.GetOrLoad(1, loader)
	assert.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = c.GetOrLoad(1, loader)
	assert.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, loads)

	_, err = c.GetOrLoad(2, func(any) (any, error) { return nil, errors.New("failed") })
	assert.Error(t, err)
	assert.False(t, c.Contains(2))

	_, err = NewLRU(0)
	assert.Error(t, err)
}

func TestLRUEvict(t *testing.T) {
	var evicted []any
	c, err := NewLRUWithEvict(1, func(key, _ any) {
		evicted = append(evicted, key)
	})
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	assert.Equal(t, []any{"a"}, evicted)

	c.Purge()
	assert.Equal(t, []any{"a", "b"}, evicted)
}
