package disjoint_set

// Forest is a Disjoint Set Union over the indices [0, n).
//
// It is meant to be created, filled and discarded within a single clustering
// pass, so it carries no lock: a Forest must not be shared across goroutines.
type Forest struct {
	parent []int
	rank   []int
}

// NewForest creates a forest of n singleton sets.
func NewForest(n int) *Forest {
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	return &Forest{
		parent: parent,
		rank:   rank,
	}
}

// Find returns the representative of the set containing x.
// Every node on the path from x is reparented directly to the root.
func (f *Forest) Find(x int) int {
	if f.parent[x] == x {
		return x
	}

	f.parent[x] = f.Find(f.parent[x]) // Path compression
	return f.parent[x]
}

// Union merges the sets containing x and y. The lower-rank root is attached
// under the higher-rank root; on a tie the surviving root's rank increments.
func (f *Forest) Union(x int, y int) {
	rootX := f.Find(x)
	rootY := f.Find(y)

	if rootX == rootY {
		return
	}

	if f.rank[rootX] > f.rank[rootY] {
		f.parent[rootY] = rootX
	} else if f.rank[rootX] < f.rank[rootY] {
		f.parent[rootX] = rootY
	} else {
		f.parent[rootY] = rootX
		f.rank[rootX]++
	}
}

// Connected checks if two elements are in the same set
func (f *Forest) Connected(x int, y int) bool {
	return f.Find(x) == f.Find(y)
}

// Size returns the number of elements in the forest.
func (f *Forest) Size() int {
	return len(f.parent)
}

// CountSets returns the number of distinct sets in the forest.
func (f *Forest) CountSets() int {
	roots := make(map[int]bool)
	for i := range f.parent {
		roots[f.Find(i)] = true
	}

	return len(roots)
}

// Groups buckets every element by its representative. Bucket order and
// member order are unspecified.
func (f *Forest) Groups() [][]int {
	byRoot := make(map[int][]int)
	for i := range f.parent {
		root := f.Find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	groups := make([][]int, 0, len(byRoot))
	for _, members := range byRoot {
		groups = append(groups, members)
	}
	return groups
}
