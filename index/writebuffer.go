package index

import "github.com/arthur-debert/kvindex/dnlist"

// writeBuffer is the transactional in-memory staging area mapping index-key
// to its current DN-list (spec.md §4.4, C4). It exists only for the
// lifetime of a transaction.
//
// The source stashes heap pointers as values in an in-memory KV (spec.md §9
// design note "opaque-pointer-as-value"); here that's just a plain Go map
// owning its *dnlist.List values outright — no pointer laundering needed.
type writeBuffer struct {
	staged map[string]*dnlist.List
}

func newWriteBuffer() *writeBuffer {
	return &writeBuffer{staged: make(map[string]*dnlist.List)}
}

// get returns the staged list for key and whether one is staged.
func (b *writeBuffer) get(key string) (*dnlist.List, bool) {
	l, ok := b.staged[key]
	return l, ok
}

// put stages list under key, replacing any earlier staged write — "a single
// staged write per key" (spec.md §4.4): later mutations update the existing
// staged entry in place rather than accumulating a write log, batching
// adjacent add/delete pairs on the same key into one eventual KV write.
func (b *writeBuffer) put(key string, list *dnlist.List) {
	b.staged[key] = list
}

// keys returns the set of staged keys, for commit's drain pass.
func (b *writeBuffer) keys() []string {
	keys := make([]string, 0, len(b.staged))
	for k := range b.staged {
		keys = append(keys, k)
	}
	return keys
}
