// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb_test

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/thor-oracle/builtin/oracle"
	"github.com/vechain/thor-oracle/logdb"
	"github.com/vechain/thor-oracle/thor"
)

func newEvents() []*oracle.Event {
	var events []*oracle.Event
	for i := range 100 {
		events = append(events, &oracle.Event{
			Kind:      oracle.KindTipAdded,
			At:        uint64(1000 + i),
			RequestID: uint64(i%4 + 1),
			Account:   thor.BytesToAddress([]byte{byte(i % 3)}),
			Amount:    big.NewInt(int64(i)),
			TotalTips: big.NewInt(int64(i * 2)),
		})
	}
	events = append(events, &oracle.Event{
		Kind:      oracle.KindValueRecorded,
		At:        2000,
		RequestID: 1,
		Timestamp: 1980,
		Value:     big.NewInt(42),
	})
	return events
}

func TestLogDB(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	assert.NotEmpty(t, db.RunID())
	assert.NotEmpty(t, db.DriverVersion())
	require.NoError(t, db.Insert(newEvents()...))

	all, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 101)
	assert.Equal(t, uint64(1), all[0].Seq)
	assert.Equal(t, db.RunID(), all[0].RunID)

	one := uint64(1)
	tests := []struct {
		name   string
		filter *logdb.EventFilter
		want   int
	}{
		{"kind", &logdb.EventFilter{Kinds: []oracle.EventKind{oracle.KindValueRecorded}}, 1},
		{"kinds", &logdb.EventFilter{Kinds: []oracle.EventKind{oracle.KindValueRecorded, oracle.KindTipAdded}}, 101},
		{"request", &logdb.EventFilter{RequestID: &one}, 26},
		{"range", &logdb.EventFilter{Range: &logdb.Range{From: 1010, To: 1019}}, 10},
		{"open range", &logdb.EventFilter{Range: &logdb.Range{From: 1090}}, 11},
		{"limit", &logdb.EventFilter{Options: &logdb.Options{Offset: 95, Limit: 10}}, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.FilterEvents(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	addr := thor.BytesToAddress([]byte{1})
	got, err := db.FilterEvents(context.Background(), &logdb.EventFilter{
		Account: &addr,
		Order:   logdb.DESC,
		Options: &logdb.Options{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, addr, got[0].Account)
	assert.Equal(t, uint64(1000+97), got[0].At)
	assert.Equal(t, int64(97), got[0].Amount.Int64())
	assert.Greater(t, got[0].Seq, got[1].Seq)

	ev, err := all[100].Decode()
	require.NoError(t, err)
	assert.Equal(t, oracle.KindValueRecorded, ev.Kind)
	assert.Equal(t, int64(42), ev.Value.Int64())
	assert.Equal(t, uint64(1980), ev.Timestamp)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	db, err := logdb.New(path)
	require.NoError(t, err)
	first := db.RunID()
	require.NoError(t, db.Insert(&oracle.Event{Kind: oracle.KindRoundOpened, At: 1, RequestID: 1}))
	require.NoError(t, db.Close())

	db, err = logdb.New(path)
	require.NoError(t, err)
	defer db.Close()
	assert.NotEqual(t, first, db.RunID())
	require.NoError(t, db.Insert(&oracle.Event{Kind: oracle.KindRoundOpened, At: 2, RequestID: 1}))

	all, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].RunID)
	assert.Equal(t, db.RunID(), all[1].RunID)
}

type feedSource struct {
	feed event.Feed
}

func (s *feedSource) SubscribeEvents(ch chan<- *oracle.Event) event.Subscription {
	return s.feed.Subscribe(ch)
}

func TestFollow(t *testing.T) {
	db, err := logdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	src := &feedSource{}
	follower := db.Follow(src)

	// published before Run starts, still delivered
	assert.Equal(t, 1, src.feed.Send(&oracle.Event{Kind: oracle.KindTipAdded, At: 7, RequestID: 3}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- follower.Run(ctx) }()

	src.feed.Send(&oracle.Event{Kind: oracle.KindRoundOpened, At: 8, RequestID: 3})
	require.Eventually(t, func() bool {
		got, err := db.FilterEvents(context.Background(), nil)
		return err == nil && len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)

	got, err := db.FilterEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, oracle.KindTipAdded, got[0].Kind)
	assert.Equal(t, uint64(3), got[0].RequestID)
	assert.Equal(t, 0, src.feed.Send(&oracle.Event{}), "unsubscribed after Run")
}

func TestFollowFirstEventThenCancel(t *testing.T) {
	for range 20 {
		db, err := logdb.NewMem()
		require.NoError(t, err)

		src := &feedSource{}
		follower := db.Follow(src)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- follower.Run(ctx) }()

		src.feed.Send(&oracle.Event{Kind: oracle.KindStakeDeposited, At: 1})
		cancel()
		require.NoError(t, <-done)

		got, err := db.FilterEvents(context.Background(), nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		require.NoError(t, db.Close())
	}
}
