// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"encoding/json"
	"math/big"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/thor"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Event is an indexed oracle event.
type Event struct {
	Seq       uint64
	RunID     string
	Kind      oracle.EventKind
	At        uint64
	RequestID uint64
	Timestamp uint64
	Account   thor.Address
	DisputeID uint64
	Amount    *big.Int
	Data      []byte // the full event as json
}

// Decode returns the oracle event stored in Data.
func (e *Event) Decode() (*oracle.Event, error) {
	var ev oracle.Event
	if err := json.Unmarshal(e.Data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Range is an inclusive interval over the event clock time.
// A To lower than From leaves the interval open.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// EventFilter selects events. Nil fields match everything.
type EventFilter struct {
	Kinds     []oracle.EventKind
	RequestID *uint64
	Account   *thor.Address
	DisputeID *uint64
	Range     *Range
	Options   *Options
	Order     Order
}
