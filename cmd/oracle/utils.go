// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/beevik/ntp"
	"github.com/elastic/gosigar"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/thor-oracle/builtin"
	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/cache"
	"github.com/vechain/thor-oracle/clock"
	"github.com/vechain/thor-oracle/genesis"
	"github.com/vechain/thor-oracle/kv"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/logdb"
	"github.com/vechain/thor-oracle/lvldb"
	"github.com/vechain/thor-oracle/state"
	"github.com/vechain/thor-oracle/thor"
)

func fatal(args ...any) {
	var w io.Writer
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		} else {
			w = io.MultiWriter(os.Stdout, os.Stderr)
		}
	}
	fmt.Fprint(w, "Fatal: ")
	fmt.Fprintln(w, args...)
	os.Exit(1)
}

func initLogger(ctx *cli.Context) {
	lvl := log.FromLegacyLevel(int(ctx.Uint64(verbosityFlag.Name)))
	if ctx.Bool(jsonLogsFlag.Name) {
		log.SetDefault(log.NewJSONHandler(os.Stderr, lvl))
		return
	}
	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewTerminalHandler(os.Stderr, lvl, useColor))
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func selectGenesis(ctx *cli.Context) *genesis.Genesis {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet()
	}
	gen, err := genesis.Load(path)
	if err != nil {
		fatal(fmt.Sprintf("load genesis: %v", err))
	}
	return gen
}

func makeDataDir(ctx *cli.Context) string {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return ""
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		fatal(fmt.Sprintf("create data dir [%v]: %v", dataDir, err))
	}
	return dataDir
}

func openMainDB(dataDir string, cacheMB int, readOnly bool) *lvldb.LevelDB {
	if dataDir == "" {
		db, err := lvldb.NewMem()
		if err != nil {
			fatal(fmt.Sprintf("open memory database: %v", err))
		}
		return db
	}
	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{CacheSize: cacheMB / 2, ReadOnly: readOnly})
	if err != nil {
		fatal(fmt.Sprintf("open main database [%v]: %v", dir, err))
	}
	return db
}

func openLogDB(dataDir string) *logdb.LogDB {
	dir := filepath.Join(dataDir, "events.db")
	db, err := logdb.New(dir)
	if err != nil {
		fatal(fmt.Sprintf("open event database [%v]: %v", dir, err))
	}
	return db
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/4 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 4)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

// checkClockOffset warns when the system clock drifts by more than half the timestamp granularity.
func checkClockOffset(granularity uint64) {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		log.Debug("failed to access NTP", "err", err)
		return
	}
	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	if offset > time.Duration(granularity)*time.Second/2 {
		log.Warn("clock offset detected", "offset", resp.ClockOffset)
	}
}

var (
	metaBucket = kv.Bucket("m")
	genesisKey = []byte("genesis")
	clockKey   = []byte("clock")
)

// instance bundles an oracle with the storage it runs on.
type instance struct {
	db      *lvldb.LevelDB
	meta    kv.GetPutter
	state   *state.State
	oracle  *oracle.Oracle
	genesis *genesis.Genesis
	now     uint64 // clock reading saved by the last persisted run
}

// openInstance loads the oracle stored in db, or builds gen onto it when db is empty.
// clk is nil to resume the saved manual clock.
func openInstance(db *lvldb.LevelDB, gen *genesis.Genesis, cacheMB int, clk oracle.Clock) (*instance, *clock.Manual, error) {
	meta := metaBucket.NewStore(db)
	st := state.New(db, cache.NewBlob(cacheMB*1024*1024))
	inst := &instance{
		db:    db,
		meta:  meta,
		state: st,
	}

	stored, err := meta.Get(genesisKey)
	if err != nil && !meta.IsNotFound(err) {
		return nil, nil, errors.Wrap(err, "read genesis")
	}

	var manual *clock.Manual
	if stored != nil {
		inst.genesis = new(genesis.Genesis)
		if err := json.Unmarshal(stored, inst.genesis); err != nil {
			return nil, nil, errors.Wrap(err, "decode stored genesis")
		}
		raw, err := meta.Get(clockKey)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read clock")
		}
		if len(raw) != 8 {
			return nil, nil, errors.Errorf("stored clock has %d bytes, want 8", len(raw))
		}
		inst.now = binary.BigEndian.Uint64(raw)
		if clk == nil {
			manual = clock.NewManual(inst.now)
			clk = manual
		}
		inst.oracle = builtin.Oracle.WithState(st, builtin.Token.WithState(st), clk)
		log.Info("oracle loaded", "genesis", inst.genesis.Name, "time", inst.now)
		return inst, manual, nil
	}

	if gen == nil {
		return nil, nil, errors.New("no oracle stored")
	}
	inst.genesis = gen
	inst.now = gen.LaunchTime
	if clk == nil {
		manual = clock.NewManual(gen.LaunchTime)
		clk = manual
	}
	if inst.oracle, err = gen.Build(st, clk); err != nil {
		return nil, nil, errors.Wrap(err, "build genesis")
	}
	return inst, manual, nil
}

// persist commits the state, then records the genesis and the clock reading.
func (inst *instance) persist(now uint64) error {
	n, err := inst.oracle.Commit()
	if err != nil {
		return errors.Wrap(err, "commit state")
	}
	data, err := json.Marshal(inst.genesis)
	if err != nil {
		return err
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], now)

	batch := inst.meta.NewBatch()
	if err := batch.Put(genesisKey, data); err != nil {
		return err
	}
	if err := batch.Put(clockKey, raw[:]); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write meta")
	}
	inst.now = now
	log.Info("state committed", "slots", n, "time", now)
	return nil
}

func shortAddr(addr thor.Address) string {
	s := addr.String()
	return s[:8] + ".." + s[len(s)-4:]
}
