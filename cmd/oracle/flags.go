// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/thor-oracle/log"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the oracle state and event index (in memory if not set)",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a genesis file (devnet if not set)",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "megabytes of ram allocated to the state cache",
		Value: 64,
	}
	verbosityFlag = cli.Uint64Flag{
		Name:  "verbosity",
		Value: uint64(log.LegacyLevelInfo),
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "log-json",
		Usage: "output logs in JSON format",
	}
	scenarioFlag = cli.StringFlag{
		Name:  "scenario",
		Usage: "path to the yaml scenario to run",
	}
	persistFlag = cli.BoolFlag{
		Name:  "persist",
		Usage: "commit the state to the data dir after the run",
	}
	systemClockFlag = cli.BoolFlag{
		Name:  "system-clock",
		Usage: "use the system clock instead of the scenario clock (advance steps fail)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "enables metrics collection and keeps serving them after the run until interrupted",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	rawFlag = cli.BoolFlag{
		Name:  "raw",
		Usage: "dump the raw records",
	}
	kindFlag = cli.StringSliceFlag{
		Name:  "kind",
		Usage: "event kinds to list, repeatable",
	}
	requestIDFlag = cli.Uint64Flag{
		Name:  "request",
		Usage: "list events of this request id only",
	}
	accountFlag = cli.StringFlag{
		Name:  "account",
		Usage: "list events of this account only",
	}
	limitFlag = cli.Uint64Flag{
		Name:  "limit",
		Value: 100,
		Usage: "maximum number of events to list",
	}
	descFlag = cli.BoolFlag{
		Name:  "desc",
		Usage: "list newest events first",
	}
)
