// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/json"
	"fmt"
	"maps"
	"math/big"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin"
	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

var logger = log.WithContext("pkg", "genesis")

// Genesis describes the initial state of an oracle.
type Genesis struct {
	Name       string                           `json:"name,omitempty"`
	LaunchTime uint64                           `json:"launchTime"`
	Params     map[string]*math.HexOrDecimal256 `json:"params,omitempty"`
	Accounts   []Account                        `json:"accounts"`
	Stakers    []Staker                         `json:"stakers,omitempty"`
	Tips       []Tip                            `json:"tips,omitempty"`
}

// Account is credited with Balance tokens at launch.
type Account struct {
	Address thor.Address          `json:"address"`
	Balance *math.HexOrDecimal256 `json:"balance"`
}

// Staker deposits Amount out of its genesis balance.
type Staker struct {
	Address thor.Address          `json:"address"`
	Amount  *math.HexOrDecimal256 `json:"amount"`
}

// Tip is paid by Tipper out of its genesis balance. A tip with a label is
// placed through RequestData, otherwise it goes to RequestID.
type Tip struct {
	Tipper      thor.Address          `json:"tipper"`
	RequestID   uint64                `json:"requestId,omitempty"`
	Label       string                `json:"label,omitempty"`
	Granularity uint64                `json:"granularity,omitempty"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
}

// Load reads a json genesis file.
func Load(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	var gen Genesis
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, errors.Wrap(err, "decode genesis file")
	}
	if gen.Name == "" {
		gen.Name = "custom"
	}
	return &gen, gen.Validate()
}

func paramKey(name string) (thor.Bytes32, error) {
	if name == thor.NameStakeAmount {
		name = thor.NameMinimumStake
	}
	key := thor.UintVarKey(name)
	if _, ok := thor.DefaultParams()[key]; !ok {
		return thor.Bytes32{}, fmt.Errorf("unknown param %q", name)
	}
	return key, nil
}

func positive(v *math.HexOrDecimal256) bool {
	return v != nil && (*big.Int)(v).Sign() > 0
}

// Validate checks the genesis for values that can't be applied.
func (g *Genesis) Validate() error {
	for name, v := range g.Params {
		if _, err := paramKey(name); err != nil {
			return err
		}
		if !positive(v) {
			return fmt.Errorf("param %q must be a positive integer", name)
		}
	}
	for _, a := range g.Accounts {
		if !positive(a.Balance) {
			return fmt.Errorf("%s: balance must be a non-zero integer", a.Address)
		}
	}
	for _, s := range g.Stakers {
		if !positive(s.Amount) {
			return fmt.Errorf("%s: stake must be a non-zero integer", s.Address)
		}
	}
	for _, t := range g.Tips {
		if t.Amount == nil || (*big.Int)(t.Amount).Sign() < 0 {
			return fmt.Errorf("%s: tip must be a non-negative integer", t.Tipper)
		}
		if t.Label == "" && t.RequestID == 0 {
			return fmt.Errorf("%s: tip needs a request id or a label", t.Tipper)
		}
	}
	return nil
}

// Build applies the genesis onto an empty state and returns the initialized oracle.
// The clock should read LaunchTime.
func (g *Genesis) Build(st *state.State, clock oracle.Clock) (*oracle.Oracle, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	params := builtin.Params.WithState(st)
	for _, name := range slices.Sorted(maps.Keys(g.Params)) {
		key, _ := paramKey(name)
		if err := params.Set(key, (*big.Int)(g.Params[name])); err != nil {
			return nil, errors.Wrapf(err, "set param %s", name)
		}
	}

	o := builtin.Oracle.WithState(st, builtin.Token.WithState(st), clock)
	if err := o.Initialize(); err != nil {
		return nil, err
	}

	for _, a := range g.Accounts {
		if err := o.Mint(a.Address, (*big.Int)(a.Balance)); err != nil {
			return nil, errors.Wrapf(err, "mint %s", a.Address)
		}
	}

	for _, s := range g.Stakers {
		amount := (*big.Int)(s.Amount)
		if err := o.Approve(s.Address, o.Address(), amount); err != nil {
			return nil, err
		}
		if err := o.DepositStake(s.Address, amount); err != nil {
			return nil, errors.Wrapf(err, "stake %s", s.Address)
		}
	}

	for _, t := range g.Tips {
		amount := (*big.Int)(t.Amount)
		if err := o.Approve(t.Tipper, o.Address(), amount); err != nil {
			return nil, err
		}
		var err error
		if t.Label != "" {
			_, err = o.RequestData(t.Tipper, t.Label, t.Granularity, amount)
		} else {
			err = o.AddTip(t.Tipper, t.RequestID, amount)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "tip from %s", t.Tipper)
		}
	}

	logger.Info("genesis applied", "name", g.Name, "accounts", len(g.Accounts), "stakers", len(g.Stakers), "tips", len(g.Tips))
	return o, nil
}
