package notification

import "github.com/Veraticus/go-test-notify/pkg/channel"

// DefaultChunkSize is the number of failure blocks per threaded reply.
const DefaultChunkSize = 10

// ThreadGroup is one chunk of blocks posted as a reply to Anchor.
type ThreadGroup struct {
	Anchor string
	Blocks []channel.Block
}

// Chunk splits items into consecutive groups of at most size elements,
// preserving order. A non-positive size yields a single group.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// threadGroups chunks blocks under a common anchor.
func threadGroups(anchor string, blocks []channel.Block, size int) []ThreadGroup {
	chunks := Chunk(blocks, size)
	groups := make([]ThreadGroup, 0, len(chunks))
	for _, c := range chunks {
		groups = append(groups, ThreadGroup{Anchor: anchor, Blocks: c})
	}
	return groups
}
