// Package cluster groups appearances into candidate party groups by applying
// the identity signal rules over a disjoint-set structure.
package cluster

import "sort"

// UnionFind is a disjoint-set over integer elements with path compression and
// union by rank. Instantiated per use; never shared global state.
type UnionFind struct {
	parent []int
	rank   []int
}

func NewUnionFind(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

// Find returns the representative of x's set.
func (u *UnionFind) Find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// Union merges the sets containing a and b.
func (u *UnionFind) Union(a, b int) {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// Connected reports whether a and b are in the same set.
func (u *UnionFind) Connected(a, b int) bool {
	return u.Find(a) == u.Find(b)
}

// Components returns the sets as sorted member slices, ordered by their
// smallest member so output is deterministic.
func (u *UnionFind) Components() [][]int {
	byRoot := make(map[int][]int)
	for i := range u.parent {
		root := u.Find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	components := make([][]int, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Ints(members)
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i][0] < components[j][0]
	})
	return components
}
