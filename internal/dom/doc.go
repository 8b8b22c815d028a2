// Package dom is a minimal in-memory document: elements, text and
// placeholder anchors with parent links, sorted attribute output and a
// canonical HTML serializer.
//
// Two producers build dom trees. The replay package applies mutation batches
// to one, the way a real renderer would; the engine snapshots its committed
// tree into another. Both serialize through WriteHTML, so comparing their
// output checks that the mutation stream reproduces the committed tree.
//
// Canonical form:
//
//	<tag ns:attr="v" attr="v">children</tag>   attributes sorted by (namespace, name)
//	text                                       HTML-escaped
//	<!--placeholder-->                         empty anchors
//
// Event listeners are recorded on the node but never serialized.
package dom
