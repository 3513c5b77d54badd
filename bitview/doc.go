// Package bitview decodes shader container blobs into labeled range trees
// for structural inspection.
//
// Where the container package answers "what does this part mean", bitview
// answers "which bits does each field occupy". Decode walks a buffer with a
// bit cursor and emits a tree of nodes, each optionally carrying the exact
// bit range it was decoded from. Aggregation then assigns every grouping
// node the minimal range covering its children, so any bit offset in the
// decoded regions can be resolved to the deepest field containing it.
//
// # Error containment
//
// Decode never fails and never panics on input data. A structural problem
// in some region, such as a part offset pointing outside the buffer or a
// truncated parameter table, is appended to the label of the node being
// decoded, and decoding continues with the remaining siblings. The
// resulting tree always describes as much of the buffer as was readable.
//
// # Hit testing
//
//	tree := bitview.Decode(blob)
//	node := bitview.At(tree, bitOffset)
//	path := bitview.Path(tree, bitOffset)
//
// At descends from the root, taking the first child containing the offset
// at each level. When sibling ranges overlap (signature records overlap
// the semantic name table they point into) the earlier sibling wins, so
// resolution is deterministic.
//
// # Concurrency
//
// Decoding borrows the buffer and never writes to it. Distinct trees may
// be decoded and queried from any number of goroutines as long as each
// tree value itself is confined to one goroutine at a time.
package bitview
