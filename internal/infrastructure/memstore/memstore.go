// Package memstore holds the engine's in-memory working-set stores: the
// per-user behavior profiles, the known-device registry and the assessment
// cache. Each store owns its own concurrency discipline; the profile and
// device stores are sharded by key hash so unrelated users never contend.
package memstore

import "hash/fnv"

const shardCount = 16

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % shardCount
}
