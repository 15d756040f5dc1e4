// Package domain holds the value records exchanged around the genealogy
// journal: nodes, edges and transmitted intervals, the batch handed to an
// external simplifier with its verdict, and the archive contract for
// persisted compaction segments.
//
// Nodes and edges are flat records indexed by integer identifier. Nothing
// here points at anything else; identifiers are only meaningful between two
// compactions of the journal that issued them.
package domain
