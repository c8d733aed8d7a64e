// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math/big"
	"os"
	"path/filepath"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/builtin/oracle/mining"
	"github.com/vechain/thor-oracle/builtin/oracle/staking"
	"github.com/vechain/thor-oracle/genesis"
	"github.com/vechain/thor-oracle/thor"
)

// snapshot is what inspect reports.
type snapshot struct {
	Time       uint64
	Round      *mining.Round
	Difficulty *big.Int
	OnDeck     struct {
		RequestID uint64
		Pool      *big.Int
		Label     string
	}
	Queue      map[uint64]*big.Int // queue index to pool, non empty slots only
	Stakers    map[thor.Address]*staking.Staker
	Validators []thor.Address
	Vars       map[string]*big.Int
}

var inspectedVars = []string{
	thor.NameTotalStaked,
	thor.NameUniqueStakers,
	thor.NameStakerCount,
	thor.NameRequestCount,
	thor.NameDisputeCount,
	thor.NameTimeOfLastNewValue,
}

func takeSnapshot(o *oracle.Oracle, now uint64) (*snapshot, error) {
	snap := &snapshot{
		Time:    now,
		Queue:   make(map[uint64]*big.Int),
		Stakers: make(map[thor.Address]*staking.Staker),
		Vars:    make(map[string]*big.Int),
	}
	var err error
	if snap.Round, snap.Difficulty, err = o.CurrentVariables(); err != nil {
		return nil, err
	}
	if snap.OnDeck.RequestID, snap.OnDeck.Pool, snap.OnDeck.Label, err = o.VariablesOnDeck(); err != nil {
		return nil, err
	}
	tips, err := o.RequestQ()
	if err != nil {
		return nil, err
	}
	for i, tip := range tips {
		if tip.Sign() > 0 {
			snap.Queue[uint64(i)] = tip
		}
	}
	stakers, err := o.Stakers()
	if err != nil {
		return nil, err
	}
	for _, addr := range stakers {
		if snap.Stakers[addr], err = o.StakerInfo(addr); err != nil {
			return nil, err
		}
	}
	if snap.Validators, err = o.CurrentMiners(); err != nil {
		return nil, err
	}
	for _, name := range inspectedVars {
		if snap.Vars[name], err = o.UintVar(name); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (snap *snapshot) print(w io.Writer) {
	fmt.Fprintf(w, "Time          %d\n", snap.Time)
	fmt.Fprintf(w, "Difficulty    %v\n", snap.Difficulty)
	if snap.Round.Active() {
		fmt.Fprintf(w, "Round         request %d at %d, tips %v, %d/%d submitted\n",
			snap.Round.RequestID, snap.Round.Timestamp, snap.Round.TotalTips, len(snap.Round.Submissions), thor.MinersPerRound)
	} else {
		fmt.Fprintln(w, "Round         idle")
	}
	if snap.OnDeck.RequestID != 0 {
		fmt.Fprintf(w, "On deck       request %d %q, pool %v\n", snap.OnDeck.RequestID, snap.OnDeck.Label, snap.OnDeck.Pool)
	}
	fmt.Fprintf(w, "Queue         %d entries\n", len(snap.Queue))
	for _, name := range inspectedVars {
		fmt.Fprintf(w, "%-22s%v\n", name, snap.Vars[name])
	}

	fmt.Fprintln(w, "Validators")
	for i, addr := range snap.Validators {
		fmt.Fprintf(w, "  %2d %v\n", i, addr)
	}
	fmt.Fprintln(w, "Stakers")
	addrs := slices.SortedFunc(maps.Keys(snap.Stakers), func(a, b thor.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	for _, addr := range addrs {
		st := snap.Stakers[addr]
		fmt.Fprintf(w, "  %s %-18v count %-3d amount %v\n", shortAddr(addr), st.Status, st.Count, st.Amount)
	}
}

func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return errors.Errorf("--%s is required", dataDirFlag.Name)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "main.db")); err != nil {
		return errors.Wrap(err, "no persisted oracle")
	}
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	mainDB := openMainDB(dataDir, cacheMB, true)
	defer mainDB.Close()

	inst, manual, err := openInstance(mainDB, nil, cacheMB, nil)
	if err != nil {
		return err
	}
	snap, err := takeSnapshot(inst.oracle, manual.Now())
	if err != nil {
		return err
	}
	if ctx.Bool(rawFlag.Name) {
		spew.Fdump(os.Stdout, snap)
		return nil
	}
	snap.print(os.Stdout)
	return nil
}

func genesisAction(*cli.Context) error {
	data, err := json.MarshalIndent(genesis.NewDevnet(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
