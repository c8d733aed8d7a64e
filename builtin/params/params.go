// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

// Params binder of the governance params of the oracle.
// A key that was never set, or was set to zero, reads as its default in thor.DefaultParams.
type Params struct {
	addr     thor.Address
	state    *state.State
	defaults map[thor.Bytes32]*big.Int
}

func New(addr thor.Address, state *state.State) *Params {
	return &Params{addr, state, thor.DefaultParams()}
}

// Get native way to get param.
func (p *Params) Get(key thor.Bytes32) (*big.Int, error) {
	var v big.Int
	if err := p.state.DecodeStorage(p.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &v)
	}); err != nil {
		return nil, errors.Wrap(err, "get param")
	}
	if v.Sign() == 0 {
		if def, ok := p.defaults[key]; ok {
			return new(big.Int).Set(def), nil
		}
	}
	return &v, nil
}

// GetUint64 reads a param that is known to fit in 64 bits, such as durations and counts.
func (p *Params) GetUint64(key thor.Bytes32) (uint64, error) {
	v, err := p.Get(key)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Errorf("param %v overflows uint64", key)
	}
	return v.Uint64(), nil
}

// Set native way to set param.
func (p *Params) Set(key thor.Bytes32, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		p.state.SetRawStorage(p.addr, key, nil)
		return nil
	}
	if value.Sign() < 0 {
		return errors.Errorf("negative param %v", key)
	}
	return p.state.EncodeStorage(p.addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}
