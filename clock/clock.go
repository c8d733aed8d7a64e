// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package clock provides the unix time sources the oracle runs on.
package clock

import (
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
)

// System reads the wall clock.
type System struct{}

func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a clock that only moves when told to. It is safe for concurrent use.
type Manual struct {
	start uint64
	sim   mclock.Simulated
}

// NewManual creates a clock reading start.
func NewManual(start uint64) *Manual {
	return &Manual{start: start}
}

func (m *Manual) Now() uint64 {
	return m.start + uint64(time.Duration(m.sim.Now())/time.Second)
}

// Advance moves the clock forward by the given seconds and returns the new time.
func (m *Manual) Advance(seconds uint64) uint64 {
	m.sim.Run(time.Duration(seconds) * time.Second)
	return m.Now()
}

// AdvanceTo moves the clock to t, if t is ahead.
func (m *Manual) AdvanceTo(t uint64) uint64 {
	if now := m.Now(); t > now {
		return m.Advance(t - now)
	}
	return m.Now()
}
