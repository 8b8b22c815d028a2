// Package mutation defines the instruction stream the engine emits for
// renderers.
//
// Mutations drive a stack machine. Creating nodes (LoadTemplate,
// CreateTextNode, CreatePlaceholder, PushRoot) pushes them; structural edits
// carry a count m and pop that many nodes off the stack. Every
// renderer-visible node is addressed by an ElementID the engine assigns. ID 0
// is the mount point the host attaches the tree to.
//
// Applying a stream strictly in order against an empty renderer reproduces
// the engine's committed tree. RegisterTemplate precedes the first
// LoadTemplate of every template so streams are self-contained.
package mutation
