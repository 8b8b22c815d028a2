// Package replay interprets mutation batches against an in-memory document,
// the way a host renderer would.
//
// A Document is a stack machine. Create mutations push nodes, placement
// mutations pop them into the tree, and every other mutation addresses a
// node by the ElementID it was given. Removing a node forgets the ids of
// its whole subtree so the engine can reuse them.
//
// Replay is strict: an unknown id, an unknown template, a stack underflow,
// a batch that leaves nodes on the stack, or a batch older than the last
// one applied is an error. A replayed document serializes (dom.HTML) to
// exactly what the engine's Snapshot serializes to.
package replay
