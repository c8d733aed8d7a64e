// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem(t *testing.T) {
	now := uint64(time.Now().Unix())
	got := System{}.Now()
	assert.InDelta(t, now, got, 2)
}

func TestManual(t *testing.T) {
	c := NewManual(1000)
	assert.Equal(t, uint64(1000), c.Now())

	assert.Equal(t, uint64(1060), c.Advance(60))
	assert.Equal(t, uint64(1060), c.Now())

	assert.Equal(t, uint64(2000), c.AdvanceTo(2000))
	// never goes back
	assert.Equal(t, uint64(2000), c.AdvanceTo(1500))
}

func TestManualConcurrent(t *testing.T) {
	c := NewManual(0)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(1)
			_ = c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(10), c.Now())
}
