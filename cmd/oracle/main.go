// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "oracle",
		Usage:     "Data oracle economic core",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			verbosityFlag,
			jsonLogsFlag,
		},
		Commands: []cli.Command{
			{
				Name:  "run",
				Usage: "Replay a scenario against the oracle",
				Flags: []cli.Flag{
					scenarioFlag,
					dataDirFlag,
					genesisFlag,
					cacheFlag,
					persistFlag,
					systemClockFlag,
					enableMetricsFlag,
					metricsAddrFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: runAction,
			},
			{
				Name:  "inspect",
				Usage: "Print the state of a persisted oracle",
				Flags: []cli.Flag{
					dataDirFlag,
					cacheFlag,
					rawFlag,
					verbosityFlag,
				},
				Action: inspectAction,
			},
			{
				Name:  "events",
				Usage: "Query the event index of a data dir",
				Flags: []cli.Flag{
					dataDirFlag,
					kindFlag,
					requestIDFlag,
					accountFlag,
					limitFlag,
					descFlag,
					verbosityFlag,
				},
				Action: eventsAction,
			},
			{
				Name:   "genesis",
				Usage:  "Print the devnet genesis, a starting point for custom ones",
				Action: genesisAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
