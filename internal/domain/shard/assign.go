// Package shard computes the static work partition for a worker fleet.
// Workers never coordinate at runtime: every worker lists the same input
// corpus, calls Assign with its own (workerIndex, shardCount), and keeps only
// its shard. Assign is a pure function of its inputs, so all workers agree on
// the partition without exchanging a single message.
package shard

import (
	"fmt"
	"sort"

	"github.com/framefleet/frame-extraction-worker/internal/domain/entity"
)

// Assign partitions videos into shardCount disjoint shards and returns the
// one owned by workerIndex. The listing is first sorted by storage key to fix
// a canonical order independent of listing order, then split round-robin so
// shard sizes differ by at most one. Empty shards are legal when the fleet is
// larger than the corpus.
func Assign(videos []entity.VideoRef, workerIndex, shardCount int) (entity.Shard, error) {
	if shardCount <= 0 {
		return entity.Shard{}, fmt.Errorf("%w: shard count must be > 0, got %d", entity.ErrConfiguration, shardCount)
	}
	if workerIndex < 0 || workerIndex >= shardCount {
		return entity.Shard{}, fmt.Errorf("%w: worker index %d out of range [0,%d)", entity.ErrConfiguration, workerIndex, shardCount)
	}

	ordered := make([]entity.VideoRef, len(videos))
	copy(ordered, videos)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Key < ordered[j].Key
	})

	var own []entity.VideoRef
	for i, v := range ordered {
		if i%shardCount == workerIndex {
			own = append(own, v)
		}
	}

	return entity.Shard{
		WorkerIndex: workerIndex,
		ShardCount:  shardCount,
		Videos:      own,
	}, nil
}
