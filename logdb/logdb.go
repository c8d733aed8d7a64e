// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/event"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

const stmtCacheSize = 64

var logger = log.WithContext("pkg", "logdb")

// LogDB indexes the events of oracle runs in sqlite.
// Every LogDB instance tags the events it writes with its own run id.
type LogDB struct {
	path          string
	db            *sql.DB
	stmts         *stmtCache
	runID         string
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}
	stmts, err := newStmtCache(db, stmtCacheSize)
	if err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &LogDB{
		path:          path,
		db:            db,
		stmts:         stmts,
		runID:         uuid.New(),
		driverVersion: driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	db.stmts.Clear()
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// RunID returns the id tagged onto every event written through this instance.
func (db *LogDB) RunID() string {
	return db.runID
}

func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// Insert writes the events in one transaction.
func (db *LogDB) Insert(events ...*oracle.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := db.stmts.Prepare("INSERT INTO event(runID, kind, at, requestID, timestamp, account, disputeID, amount, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);")
	if err != nil {
		return err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	txStmt := tx.Stmt(stmt)
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := txStmt.Exec(
			db.runID,
			string(ev.Kind),
			ev.At,
			ev.RequestID,
			ev.Timestamp,
			accountValue(ev.Account),
			ev.DisputeID,
			amountValue(ev.Amount),
			data,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	metricInsertedCounter().Add(int64(len(events)))
	return nil
}

// EventSource is anything that publishes oracle events.
type EventSource interface {
	SubscribeEvents(ch chan<- *oracle.Event) event.Subscription
}

// Follower indexes the events of a source it is subscribed to.
type Follower struct {
	db  *LogDB
	ch  chan *oracle.Event
	sub event.Subscription
}

// Follow subscribes to src before returning, so every event src publishes
// afterwards is indexed once Run is called.
func (db *LogDB) Follow(src EventSource) *Follower {
	ch := make(chan *oracle.Event, 64)
	return &Follower{db: db, ch: ch, sub: src.SubscribeEvents(ch)}
}

// Run indexes events until ctx is done or the subscription fails, then unsubscribes.
// Events delivered before ctx is done are indexed too.
func (f *Follower) Run(ctx context.Context) error {
	defer f.sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-f.ch:
					if err := f.db.Insert(ev); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		case err := <-f.sub.Err():
			return err
		case ev := <-f.ch:
			if err := f.db.Insert(ev); err != nil {
				logger.Warn("failed to index event", "kind", ev.Kind, "err", err)
				return err
			}
		}
	}
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	const query = "SELECT seq, runID, kind, at, requestID, timestamp, account, disputeID, amount, data FROM event"
	if filter == nil {
		return db.queryEvents(ctx, query+" ORDER BY seq ASC")
	}
	metricsHandleEventsFilter(filter)

	var args []any
	stmt := query + " WHERE 1"
	if len(filter.Kinds) > 0 {
		stmt += " AND kind IN (?" + strings.Repeat(",?", len(filter.Kinds)-1) + ")"
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}
	if filter.RequestID != nil {
		args = append(args, *filter.RequestID)
		stmt += " AND requestID = ?"
	}
	if filter.Account != nil {
		args = append(args, filter.Account.Bytes())
		stmt += " AND account = ?"
	}
	if filter.DisputeID != nil {
		args = append(args, *filter.DisputeID)
		stmt += " AND disputeID = ?"
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND at >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND at <= ?"
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, query string, args ...any) ([]*Event, error) {
	stmt, err := db.stmts.Prepare(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			ev      Event
			kind    string
			account []byte
			amount  []byte
		)
		if err := rows.Scan(
			&ev.Seq,
			&ev.RunID,
			&kind,
			&ev.At,
			&ev.RequestID,
			&ev.Timestamp,
			&account,
			&ev.DisputeID,
			&amount,
			&ev.Data,
		); err != nil {
			return nil, err
		}
		ev.Kind = oracle.EventKind(kind)
		ev.Account = thor.BytesToAddress(account)
		if amount != nil {
			ev.Amount = new(big.Int).SetBytes(amount)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func accountValue(addr thor.Address) []byte {
	if addr.IsZero() {
		return nil
	}
	return addr.Bytes()
}

func amountValue(amount *big.Int) []byte {
	if amount == nil {
		return nil
	}
	return amount.Bytes()
}
