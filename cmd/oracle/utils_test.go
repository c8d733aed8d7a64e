// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/cmd/oracle/scenario"
	"github.com/vechain/thor-oracle/genesis"
	"github.com/vechain/thor-oracle/logdb"
	"github.com/vechain/thor-oracle/lvldb"
	"github.com/vechain/thor-oracle/thor"
)

func TestOpenInstancePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.db")
	db, err := lvldb.New(path, lvldb.Options{})
	require.NoError(t, err)

	_, _, err = openInstance(db, nil, 16, nil)
	assert.Error(t, err, "empty db without genesis")

	gen := genesis.NewDevnet()
	inst, manual, err := openInstance(db, gen, 16, nil)
	require.NoError(t, err)
	require.NotNil(t, manual)
	assert.Equal(t, gen.LaunchTime, manual.Now())

	manual.Advance(120)
	require.NoError(t, inst.persist(manual.Now()))
	require.NoError(t, db.Close())

	db, err = lvldb.New(path, lvldb.Options{ReadOnly: true})
	require.NoError(t, err)
	defer db.Close()

	// the stored genesis wins over the one passed in
	reopened, manual, err := openInstance(db, nil, 16, nil)
	require.NoError(t, err)
	assert.Equal(t, "devnet", reopened.genesis.Name)
	assert.Equal(t, gen.LaunchTime+120, manual.Now())

	snap, err := takeSnapshot(reopened.oracle, manual.Now())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.Round.RequestID)
	assert.Len(t, snap.Validators, thor.MinersPerRound)
	assert.Len(t, snap.Stakers, thor.MinersPerRound)
	assert.Empty(t, snap.Queue)
	assert.Equal(t, "500000000000000000000", snap.Vars[thor.NameTotalStaked].String())
	assert.Equal(t, uint64(1), snap.Vars[thor.NameRequestCount].Uint64())

	var out bytes.Buffer
	snap.print(&out)
	assert.Contains(t, out.String(), "request 1 at")
	assert.Contains(t, out.String(), "staked")
}

func TestShortAddr(t *testing.T) {
	addr := genesis.DevAccounts()[0].Address
	assert.Equal(t, "0xf077b4..77fa", shortAddr(addr))
}

func TestOpenInstanceBadClock(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	data, err := json.Marshal(genesis.NewDevnet())
	require.NoError(t, err)
	meta := metaBucket.NewStore(db)
	require.NoError(t, meta.Put(genesisKey, data))
	require.NoError(t, meta.Put(clockKey, []byte{1, 2, 3}))

	_, _, err = openInstance(db, nil, 16, nil)
	assert.ErrorContains(t, err, "stored clock has 3 bytes")
}

func TestIndexingFromFirstStep(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	inst, manual, err := openInstance(db, genesis.NewDevnet(), 16, nil)
	require.NoError(t, err)

	logDB, err := logdb.NewMem()
	require.NoError(t, err)
	defer logDB.Close()

	sc, err := scenario.Parse([]byte(`
steps:
  - op: mine
    values: ["100", "101", "102", "103", "104"]
`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	startIndexing(ctx, &g, logDB, inst.oracle)

	require.NoError(t, scenario.NewRunner(inst.oracle, manual).Run(context.Background(), sc, nil))
	cancel()
	require.NoError(t, g.Wait())

	got, err := logDB.FilterEvents(context.Background(), &logdb.EventFilter{
		Kinds: []oracle.EventKind{oracle.KindValueRecorded},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	ev, err := got[0].Decode()
	require.NoError(t, err)
	median, err := scenario.ParseAmount("102")
	require.NoError(t, err)
	assert.Equal(t, median.String(), ev.Value.String())
}
