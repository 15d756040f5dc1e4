package core

import (
	"fmt"

	"argjournal/pkg/domain"
)

// AllocateOffspringPair issues the two genome-copy identifiers of one
// offspring and records them for the generation being built.
func (j *Journal) AllocateOffspringPair() (domain.NodeID, domain.NodeID) {
	a, b := j.nextID, j.nextID+1
	j.nextID += 2
	j.offspring = append(j.offspring, a, b)
	return a, b
}

// ResolveParentPair maps a parental individual's position to its two genome
// copy identifiers. With swapped set the second copy is returned first.
// position must be below ParentCount.
func (j *Journal) ResolveParentPair(position uint32, swapped bool) (domain.NodeID, domain.NodeID) {
	if int64(position) >= j.ParentCount() {
		j.violate(opResolveParentPair, fmt.Sprintf("position %d outside parental generation of %d", position, j.ParentCount()))
	}
	var swap domain.NodeID
	if swapped {
		swap = 1
	}
	base := j.windowStart + 2*domain.NodeID(position)
	return base + swap, base + (1 - swap)
}
