// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"database/sql"

	"github.com/vechain/thor-oracle/cache"
)

// to cache prepared sql statement, which maps query string to stmt.
// Statements pushed out of the cache are closed.
type stmtCache struct {
	db  *sql.DB
	lru *cache.LRU
}

func newStmtCache(db *sql.DB, size int) (*stmtCache, error) {
	lru, err := cache.NewLRUWithEvict(size, func(_, value any) {
		_ = value.(*sql.Stmt).Close()
	})
	if err != nil {
		return nil, err
	}
	return &stmtCache{db: db, lru: lru}, nil
}

func (sc *stmtCache) Prepare(query string) (*sql.Stmt, error) {
	stmt, err := sc.lru.GetOrLoad(query, func(key any) (any, error) {
		return sc.db.Prepare(key.(string))
	})
	if err != nil {
		return nil, err
	}
	return stmt.(*sql.Stmt), nil
}

func (sc *stmtCache) Clear() {
	sc.lru.Purge()
}
