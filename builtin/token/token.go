// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token is a fungible balance ledger kept on state, in the manner of an ERC20 contract.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

var (
	slotBalances    = thor.BytesToBytes32([]byte("balances"))
	slotAllowances  = thor.BytesToBytes32([]byte("allowances"))
	slotTotalSupply = thor.BytesToBytes32([]byte("total-supply"))
)

type Token struct {
	balances    *solidity.Mapping[thor.Address, *big.Int]
	allowances  *solidity.Mapping[thor.Bytes32, *big.Int]
	totalSupply *solidity.Uint256
}

func New(addr thor.Address, state *state.State) *Token {
	sctx := solidity.NewContext(addr, state)
	return &Token{
		balances:    solidity.NewMapping[thor.Address, *big.Int](sctx, slotBalances),
		allowances:  solidity.NewMapping[thor.Bytes32, *big.Int](sctx, slotAllowances),
		totalSupply: solidity.NewUint256(sctx, slotTotalSupply),
	}
}

func allowanceKey(owner, spender thor.Address) thor.Bytes32 {
	return thor.Blake2b(owner.Bytes(), spender.Bytes())
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (t *Token) setBalance(addr thor.Address, bal *big.Int) error {
	if bal.Sign() == 0 {
		t.balances.Delete(addr)
		return nil
	}
	return t.balances.Set(addr, bal)
}

// TotalSupply returns the amount minted so far.
func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

func (t *Token) BalanceOf(addr thor.Address) (*big.Int, error) {
	bal, err := t.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "get balance")
	}
	return orZero(bal), nil
}

// Mint creates amount out of thin air and credits it to the given address.
func (t *Token) Mint(to thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.setBalance(to, bal.Add(bal, amount)); err != nil {
		return err
	}
	return t.totalSupply.Add(amount)
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		bal, err := t.BalanceOf(from)
		if err != nil {
			return err
		}
		if bal.Cmp(amount) < 0 {
			return reverts.ErrInsufficientBalance
		}
		return nil
	}

	fromBal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	toBal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.setBalance(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return t.setBalance(to, toBal.Add(toBal, amount))
}

// Approve sets the amount spender may move out of the owner's account.
func (t *Token) Approve(owner, spender thor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return reverts.ErrInvalidAmount
	}
	key := allowanceKey(owner, spender)
	if amount.Sign() == 0 {
		t.allowances.Delete(key)
		return nil
	}
	return t.allowances.Set(key, amount)
}

func (t *Token) Allowance(owner, spender thor.Address) (*big.Int, error) {
	v, err := t.allowances.Get(allowanceKey(owner, spender))
	if err != nil {
		return nil, errors.Wrap(err, "get allowance")
	}
	return orZero(v), nil
}

// TransferFrom moves amount out of the from account on behalf of spender, consuming allowance.
// An account spending its own balance needs no allowance.
func (t *Token) TransferFrom(spender, from, to thor.Address, amount *big.Int) error {
	if spender != from {
		allowed, err := t.Allowance(from, spender)
		if err != nil {
			return err
		}
		if allowed.Cmp(amount) < 0 {
			return reverts.ErrInsufficientBalance
		}
		if err := t.Transfer(from, to, amount); err != nil {
			return err
		}
		return t.Approve(from, spender, allowed.Sub(allowed, amount))
	}
	return t.Transfer(from, to, amount)
}
