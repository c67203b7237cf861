// Package state persists argstore snapshots. The core argstore package stays
// memory-resident; persistence is an explicit restore or persist step driven
// by a Resolver over a Store.
//
// Responsibilities:
//   - Store only loads and saves one snapshot for one Ref.
//   - Resolver restores a snapshot into an *argstore.Store, persists a store
//     back, and runs read-modify-write mutations guarded by ETags.
//
// Data flow:
//
//	Store.Load -> argstore.Store.Restore -> ... -> argstore.Store.Snapshot -> Store.Save
//
// Deterministic keys:
//
//	Ref.Identifier() returns `args/<namespace>`. Adapters (MemoryStore,
//	sqlitestore, filestore) key their records by it or by the namespace.
package state
