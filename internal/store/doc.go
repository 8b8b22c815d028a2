// Package store provides SQLite-backed durable storage for recorded virtual
// dom sessions.
//
// A session is one VirtualDom run. Every committed mutation batch is stored
// under (session_id, generation), encoded in the session's wire format, so a
// session can be replayed into a fresh document later. Template shapes seen
// in RegisterTemplate mutations are also stored, keyed by fingerprint.
//
// # Patterns
//
// Idempotent writes
//   - PRIMARY KEY(session_id, generation) with ON CONFLICT DO NOTHING
//   - Recording the same batch twice is a no-op
//
// Logical ordering
//   - Sessions order by seq, batches by generation, never by timestamps
//   - Reads always ORDER BY so replays are deterministic
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
