// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/cmd/oracle/scenario"
	"github.com/vechain/thor-oracle/logdb"
)

func eventsFilter(ctx *cli.Context) (*logdb.EventFilter, error) {
	filter := &logdb.EventFilter{
		Options: &logdb.Options{Limit: ctx.Uint64(limitFlag.Name)},
		Order:   logdb.ASC,
	}
	if ctx.Bool(descFlag.Name) {
		filter.Order = logdb.DESC
	}
	for _, k := range ctx.StringSlice(kindFlag.Name) {
		filter.Kinds = append(filter.Kinds, oracle.EventKind(k))
	}
	if ctx.IsSet(requestIDFlag.Name) {
		id := ctx.Uint64(requestIDFlag.Name)
		filter.RequestID = &id
	}
	if name := ctx.String(accountFlag.Name); name != "" {
		addr, err := scenario.Account(name)
		if err != nil {
			return nil, err
		}
		filter.Account = &addr
	}
	return filter, nil
}

func eventsAction(ctx *cli.Context) error {
	initLogger(ctx)

	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return errors.Errorf("--%s is required", dataDirFlag.Name)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "events.db")); err != nil {
		return errors.Wrap(err, "no event index")
	}
	filter, err := eventsFilter(ctx)
	if err != nil {
		return err
	}

	db := openLogDB(dataDir)
	defer db.Close()

	events, err := db.FilterEvents(context.Background(), filter)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if err := enc.Encode(struct {
			Seq   uint64          `json:"seq"`
			Run   string          `json:"run"`
			Event json.RawMessage `json:"event"`
		}{ev.Seq, ev.RunID, ev.Data}); err != nil {
			return err
		}
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stderr, "no events")
	}
	return nil
}
