package clustering

// unionFind joins record indexes. The smaller index always becomes the
// root so the resulting forest depends only on the set of links.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra == rb:
		return
	case ra < rb:
		u.parent[rb] = ra
	default:
		u.parent[ra] = rb
	}
}

// components returns the member indexes of each component, ascending,
// ordered by root index.
func (u *unionFind) components() [][]int {
	byRoot := make(map[int]int)
	var out [][]int
	for i := range u.parent {
		r := u.find(i)
		pos, ok := byRoot[r]
		if !ok {
			pos = len(out)
			byRoot[r] = pos
			out = append(out, nil)
		}
		out[pos] = append(out[pos], i)
	}
	return out
}
