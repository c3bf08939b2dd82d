// Package cache provides a generic, thread-safe LRU cache.
//
// The notification store keeps its optimistic mutation journal in one, keyed
// by correlation id, so a late rejection can still be rolled back while the
// journal never grows without bound. The toast queue uses another to remember
// recently shown notification ids.
//
//	journal := cache.NewLRUCache[string, Mutation](256)
//	journal.Put(cid, m)
//	if m, ok := journal.Take(cid); ok {
//		m.undo()
//	}
//
// Eviction callbacks fire only when capacity pushes an entry out or Clear is
// called; Take and Remove are treated as consumption and stay silent.
package cache
