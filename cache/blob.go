// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"github.com/qianbin/directcache"
)

// Blob caches byte values by byte keys in a fixed size arena, so it adds no GC pressure.
// Values handed out are copies.
type Blob struct {
	c     *directcache.Cache
	stats Stats
}

// NewBlob creates a blob cache with the given capacity in bytes.
func NewBlob(sizeBytes int) *Blob {
	return &Blob{c: directcache.New(sizeBytes)}
}

// Get returns a copy of the cached value.
func (b *Blob) Get(key []byte) ([]byte, bool) {
	var val []byte
	if b.c.AdvGet(key, func(v []byte) {
		val = append([]byte{}, v...)
	}, false) {
		b.stats.Hit()
		return val, true
	}
	b.stats.Miss()
	return nil, false
}

// Set stores the value. It reports false if the cache refused the entry.
func (b *Blob) Set(key, val []byte) bool {
	return b.c.Set(key, val)
}

// Del drops the key.
func (b *Blob) Del(key []byte) {
	b.c.Del(key)
}

// Stats returns hit/miss counters, see Stats.Stats.
func (b *Blob) Stats() (bool, int64, int64) {
	return b.stats.Stats()
}

func (b *Blob) HitRate() float64 {
	return b.stats.HitRate()
}
