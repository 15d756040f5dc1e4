package domain

import "sort"

// NodeID identifies a genome copy recorded by the journal. Identifiers are
// unique between two compactions.
type NodeID = int64

// Node records the birth of a single genome copy.
type Node struct {
	ID         NodeID  `json:"id"`
	Time       float64 `json:"time"`
	Population int32   `json:"population"`
}

// Edge records transmission of the half-open genomic interval [Left, Right)
// from Parent to Child.
type Edge struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Parent NodeID  `json:"parent"`
	Child  NodeID  `json:"child"`
}

// Interval is a transmitted segment [Left, Right) produced by recombination.
type Interval struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// NewNode builds a node record.
func NewNode(id NodeID, time float64, population int32) Node {
	return Node{ID: id, Time: time, Population: population}
}

// NewEdge builds an edge record.
func NewEdge(left, right float64, parent, child NodeID) Edge {
	return Edge{Left: left, Right: right, Parent: parent, Child: child}
}

// Span returns the interval covered by the edge.
func (e Edge) Span() Interval {
	return Interval{Left: e.Left, Right: e.Right}
}

// Length returns Right-Left.
func (iv Interval) Length() float64 {
	return iv.Right - iv.Left
}

// NodeLess orders nodes by time, then id, then population.
func NodeLess(a, b Node) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Population < b.Population
}

// SortNodes sorts nodes in place using NodeLess.
func SortNodes(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool { return NodeLess(nodes[i], nodes[j]) })
}
