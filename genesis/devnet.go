// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vechain/thor-oracle/thor"
)

// DevAccount account for development.
type DevAccount struct {
	Address    thor.Address
	PrivateKey *ecdsa.PrivateKey
}

var devAccounts atomic.Value

// DevAccounts returns pre-alloced accounts for the devnet.
func DevAccounts() []DevAccount {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]DevAccount)
	}

	var accs []DevAccount
	privKeys := []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
		"88d2d80b12b92feaa0da6d62309463d20408157723f2d7e799b6a74ead9a673b",
		"fbb9e7ba5fe9969a71c6599052237b91adeb1e5fc0c96727b66e56ff5d02f9d0",
		"547fb081e73dc2e22b4aae5c60e2970b008ac4fc3073aebc27d41ace9c4f53e9",
		"c8c53657e41a8d669349fc287f57457bd746cb1fcfc38cf94d235deb2cfca81b",
		"87e0eba9c86c494d98353800571089f316740b0cb84c9a7cdf2fe5c9997c7966",
	}
	for _, str := range privKeys {
		pk, err := crypto.HexToECDSA(str)
		if err != nil {
			panic(err)
		}
		addr := crypto.PubkeyToAddress(pk.PublicKey)
		accs = append(accs, DevAccount{thor.Address(addr), pk})
	}
	devAccounts.Store(accs)
	return accs
}

func tokens(n int64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18)))
}

// NewDevnet create genesis for local runs: every dev account holds 10000 tokens,
// the first five stake one minimum stake each and request 1 is tipped by the last account.
func NewDevnet() *Genesis {
	gen := &Genesis{
		Name:       "devnet",
		LaunchTime: 1700000000,
	}
	accs := DevAccounts()
	for _, acc := range accs {
		gen.Accounts = append(gen.Accounts, Account{acc.Address, tokens(10000)})
	}
	for _, acc := range accs[:thor.MinersPerRound] {
		gen.Stakers = append(gen.Stakers, Staker{acc.Address, (*math.HexOrDecimal256)(thor.InitialMinimumStake)})
	}
	gen.Tips = append(gen.Tips, Tip{
		Tipper:      accs[len(accs)-1].Address,
		Label:       "ETH/USD",
		Granularity: 1000,
		Amount:      tokens(1),
	})
	return gen
}
