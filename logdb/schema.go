// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

// create a table for oracle events
const eventTableSchema = `
create table if not exists event (
	seq integer primary key autoincrement,
	runID text not null,
	kind text not null,
	at integer not null,
	requestID integer,
	timestamp integer,
	account blob(20),
	disputeID integer,
	amount blob,
	data blob
);

CREATE INDEX if not exists eventKindIndex on event(kind);
CREATE INDEX if not exists eventRequestIndex on event(requestID, timestamp);
CREATE INDEX if not exists eventAccountIndex on event(account);
CREATE INDEX if not exists eventAtIndex on event(at);
`
