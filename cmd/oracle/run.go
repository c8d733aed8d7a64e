// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/clock"
	"github.com/vechain/thor-oracle/cmd/oracle/httpserver"
	"github.com/vechain/thor-oracle/cmd/oracle/scenario"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/logdb"
	"github.com/vechain/thor-oracle/metrics"
	"github.com/vechain/thor-oracle/thor"
)

func runAction(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	initLogger(ctx)
	exitCtx := handleExitSignal()

	path := ctx.String(scenarioFlag.Name)
	if path == "" {
		return errors.Errorf("--%s is required", scenarioFlag.Name)
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	var metricsURL string
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, stop, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		defer func() { log.Info("stopping metrics server..."); stop() }()
		metricsURL = url
	}

	dataDir := makeDataDir(ctx)
	cacheMB := normalizeCacheSize(ctx.Int(cacheFlag.Name))
	mainDB := openMainDB(dataDir, cacheMB, false)
	defer func() { log.Info("closing main database..."); mainDB.Close() }()

	var sysClock oracle.Clock
	if ctx.Bool(systemClockFlag.Name) {
		sysClock = clock.System{}
	}
	inst, manual, err := openInstance(mainDB, selectGenesis(ctx), cacheMB, sysClock)
	if err != nil {
		return err
	}
	if sysClock != nil {
		gran, err := inst.oracle.UintVar(thor.NameTimestampGranularity)
		if err != nil {
			return err
		}
		go checkClockOffset(gran.Uint64())
	}

	printStartupMessage(inst, dataDir, metricsURL, sc)

	runCtx, stopIndex := context.WithCancel(context.Background())
	var g errgroup.Group
	if dataDir != "" {
		logDB := openLogDB(dataDir)
		defer func() { log.Info("closing event database..."); logDB.Close() }()
		startIndexing(runCtx, &g, logDB, inst.oracle)
	}

	var bar *pb.ProgressBar
	if isTerminal() && len(sc.Steps) > 0 {
		bar = pb.New(len(sc.Steps)).SetMaxWidth(90).Start()
	}

	start := time.Now()
	runner := scenario.NewRunner(inst.oracle, manual)
	runErr := runner.Run(exitCtx, sc, func(int, *scenario.Step) {
		if bar != nil {
			bar.Increment()
		}
	})
	if bar != nil {
		if runErr != nil {
			bar.NotPrint = true
		} else {
			bar.Finish()
		}
	}

	stopIndex()
	if err := g.Wait(); err != nil {
		log.Warn("event indexing stopped", "err", err)
	}
	if runErr != nil {
		return runErr
	}
	log.Info("scenario completed", "steps", len(sc.Steps), "elapsed", time.Since(start))

	if ctx.Bool(persistFlag.Name) {
		if dataDir == "" {
			log.Warn("nothing persisted, no data dir given")
		} else {
			now := inst.now
			if manual != nil {
				now = manual.Now()
			} else if sysClock != nil {
				now = sysClock.Now()
			}
			if err := inst.persist(now); err != nil {
				return err
			}
		}
	}

	if metricsURL != "" {
		log.Info("serving metrics until interrupted", "url", metricsURL)
		<-exitCtx.Done()
	}
	return nil
}

// startIndexing subscribes db to the events of o before returning, then indexes
// them in g until ctx is done.
func startIndexing(ctx context.Context, g *errgroup.Group, db *logdb.LogDB, o *oracle.Oracle) {
	follower := db.Follow(o)
	g.Go(func() error { return follower.Run(ctx) })
}

func printStartupMessage(inst *instance, dataDir, metricsURL string, sc *scenario.Scenario) {
	if dataDir == "" {
		dataDir = "Memory"
	}
	if metricsURL == "" {
		metricsURL = "Disabled"
	}
	name := sc.Name
	if name == "" {
		name = "unnamed"
	}
	fmt.Printf(`Starting oracle
    Genesis     [ %v ]
    Clock       [ %v ]
    Scenario    [ %v, %d steps ]
    Data dir    [ %v ]
    Metrics     [ %v ]
`,
		inst.genesis.Name,
		time.Unix(int64(inst.now), 0).UTC().Format(time.RFC3339),
		name, len(sc.Steps),
		dataDir,
		metricsURL)
}
