// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/token"
	"github.com/vechain/thor-oracle/state"
)

// Builtin contracts binding.
var (
	Params = &paramsContract{newContract("Params")}
	Token  = &tokenContract{newContract("Token")}
	Oracle = &oracleContract{newContract("Oracle")}
)

type (
	paramsContract struct{ *contract }
	tokenContract  struct{ *contract }
	oracleContract struct{ *contract }
)

func (p *paramsContract) WithState(state *state.State) *params.Params {
	return params.New(p.Address, state)
}

func (t *tokenContract) WithState(state *state.State) *token.Token {
	return token.New(t.Address, state)
}

// WithState binds the oracle to the state, with funds moved through ledger.
// Pass Token.WithState(state) as ledger to keep balances on the same state,
// so that failed operations roll them back too.
func (o *oracleContract) WithState(state *state.State, ledger oracle.Ledger, clock oracle.Clock) *oracle.Oracle {
	return oracle.New(o.Address, state, Params.WithState(state), ledger, clock)
}
