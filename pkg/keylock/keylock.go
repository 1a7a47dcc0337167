// Package keylock provides sharded per-key mutual exclusion for the rating
// aggregator. Keys hashing to different shards never contend; keys on the
// same shard serialize, which is safe (coarser, never finer) with respect
// to the per-content-key critical section.
package keylock

import (
	"context"
	"hash/fnv"
)

const defaultShards = 64

type KeyLock struct {
	shards []chan struct{}
}

func New(shards int) *KeyLock {
	if shards <= 0 {
		shards = defaultShards
	}
	l := &KeyLock{
		shards: make([]chan struct{}, shards),
	}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock acquires the shard owning key, blocking until the lock is held or ctx
// is done. On success it returns the release func; the caller must invoke it
// exactly once.
func (l *KeyLock) Lock(ctx context.Context, key string) (func(), error) {
	shard := l.shards[l.shardIndex(key)]
	select {
	case shard <- struct{}{}:
		return func() { <-shard }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *KeyLock) shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.shards)))
}
