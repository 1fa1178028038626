package cluster

import "github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"

// Components applies the five signal rules over all appearances and returns
// the connected components, each one a candidate party group. Rules are
// transitive through one shared union-find, so any single shared signal is
// enough to chain two appearances into the same component.
func Components(apps []scan.Appearance) [][]int {
	uf := NewUnionFind(len(apps))
	idx := buildIndex(apps)

	// Rule 1: identical normalized name. Numbered companies are excluded so
	// unrelated shell companies never merge on name alone; rule 5 recovers
	// them when the contact matches too.
	for name, members := range idx.byName {
		if scan.IsNumberedName(name) {
			continue
		}
		unionAll(uf, members)
	}

	// Rule 2: shared phone. High-fan-out phones (law firms, management
	// switchboards) only count when the contact person also matches.
	for phone, members := range idx.byPhone {
		if !idx.HighFanOut(phone) {
			unionAll(uf, members)
			continue
		}
		byContact := make(map[string][]int)
		for _, i := range members {
			contact := apps[i].NormalizedContact
			if contact == "" {
				continue
			}
			byContact[contact] = append(byContact[contact], i)
		}
		for _, group := range byContact {
			unionAll(uf, group)
		}
	}

	// Rule 3: shared cleaned alias or alternate name.
	for _, members := range idx.byAlias {
		unionAll(uf, members)
	}

	// Rule 4: companies sharing a normalized address. Person home addresses
	// are excluded at index time.
	for _, members := range idx.byAddress {
		unionAll(uf, members)
	}

	// Rule 5: numbered companies with identical name and contact person.
	for _, members := range idx.byNumberedContact {
		unionAll(uf, members)
	}

	return uf.Components()
}

func unionAll(uf *UnionFind, members []int) {
	for i := 1; i < len(members); i++ {
		uf.Union(members[0], members[i])
	}
}
