// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	"github.com/vechain/thor-oracle/cache"
	"github.com/vechain/thor-oracle/kv"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/stackedmap"
	"github.com/vechain/thor-oracle/thor"
)

const storageBucket = kv.Bucket("s")

var logger = log.WithContext("pkg", "state")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr thor.Address
	key  thor.Bytes32
}

func (k storageKey) bytes() []byte {
	b := make([]byte, 0, len(k.addr)+len(k.key))
	b = append(b, k.addr[:]...)
	return append(b, k.key[:]...)
}

// State manages storage slots of all builtin contracts.
type State struct {
	store kv.GetPutter
	cache *cache.Blob // optional
	sm    *stackedmap.StackedMap
}

// New create state object on top of the given store.
// blob may be nil to disable caching of committed values.
func New(db kv.GetPutter, blob *cache.Blob) *State {
	s := &State{
		store: storageBucket.NewStore(db),
		cache: blob,
	}
	s.sm = stackedmap.New(s.load)
	return s
}

// load implements stackedmap.MapGetter.
func (s *State) load(key any) (any, bool, error) {
	sk := key.(storageKey)
	kb := sk.bytes()

	if s.cache != nil {
		if v, ok := s.cache.Get(kb); ok {
			metricStorageCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "cache"})
			if len(v) == 0 {
				return rlp.RawValue(nil), false, nil
			}
			return rlp.RawValue(v), true, nil
		}
	}

	metricStorageCounter().AddWithLabel(1, map[string]string{"type": "read", "target": "store"})
	enc, err := s.store.Get(kb)
	if err != nil {
		if s.store.IsNotFound(err) {
			if s.cache != nil {
				s.cache.Set(kb, nil)
			}
			return rlp.RawValue(nil), false, nil
		}
		return nil, false, err
	}
	raw, err := snappy.Decode(nil, enc)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		s.cache.Set(kb, raw)
	}
	return rlp.RawValue(raw), true, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr thor.Address, key thor.Bytes32) (thor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return thor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return thor.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return thor.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// structured value, hash of raw data stands for it
		return thor.Blake2b(raw), nil
	}
	return thor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr thor.Address, key, value thor.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr thor.Address, key thor.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw. Empty raw clears the slot.
func (s *State) SetRawStorage(addr thor.Address, key thor.Bytes32, raw rlp.RawValue) {
	metricStorageCounter().AddWithLabel(1, map[string]string{"type": "write", "target": "journal"})
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by enc will be absorbed by State instance.
func (s *State) EncodeStorage(addr thor.Address, key thor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr thor.Address, key thor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Commit flushes all journaled changes into the store in one batch.
// It returns the number of slots written. The journal is reset afterwards,
// so checkpoints taken before Commit become invalid.
func (s *State) Commit() (int, error) {
	var (
		order   []storageKey
		changes = make(map[storageKey]rlp.RawValue)
	)
	s.sm.Journal(func(k, v any) bool {
		sk := k.(storageKey)
		if _, ok := changes[sk]; !ok {
			order = append(order, sk)
		}
		changes[sk] = v.(rlp.RawValue)
		return true
	})

	batch := s.store.NewBatch()
	for _, sk := range order {
		raw := changes[sk]
		kb := sk.bytes()
		if len(raw) == 0 {
			if err := batch.Delete(kb); err != nil {
				return 0, &Error{err}
			}
		} else {
			if err := batch.Put(kb, snappy.Encode(nil, raw)); err != nil {
				return 0, &Error{err}
			}
		}
	}
	if err := batch.Write(); err != nil {
		return 0, &Error{err}
	}

	if s.cache != nil {
		for _, sk := range order {
			s.cache.Set(sk.bytes(), changes[sk])
		}
		if changed, hit, miss := s.cache.Stats(); changed {
			logger.Debug("storage cache stats", "hit", hit, "miss", miss, "rate", s.cache.HitRate())
		}
	}
	metricStorageCounter().AddWithLabel(int64(len(order)), map[string]string{"type": "write", "target": "store"})
	metricCommitSlots().Observe(int64(len(order)))

	s.sm = stackedmap.New(s.load)
	return len(order), nil
}
