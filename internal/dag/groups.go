package dag

// Group is a weakly connected subset of the graph: no node in a group
// depends on, or is depended on by, a node outside it. Groups can be
// bundled and loaded independently of each other.
type Group struct {
	// ID is the group's position in the result, starting at 0.
	ID int

	// NodeIDs lists the group's nodes in global topological order.
	NodeIDs []string
}

// Groups partitions the graph into independent groups. Groups are
// ordered by the topological position of their first node, so the
// concatenation of all groups is the TopologicalSort result. Returns
// the sort's error if the graph contains a cycle.
func (d *DAG) Groups() ([]Group, error) {
	if len(d.order) == 0 {
		return nil, nil
	}
	sorted, err := d.TopologicalSort()
	if err != nil {
		return nil, err
	}

	uf := newUnionFind(len(d.order))
	for from, deps := range d.adjacency {
		for _, to := range deps {
			uf.union(from, to)
		}
	}

	byRoot := make(map[int]int)
	var groups []Group
	for _, id := range sorted {
		root := uf.find(d.index[id])
		gi, ok := byRoot[root]
		if !ok {
			gi = len(groups)
			byRoot[root] = gi
			groups = append(groups, Group{ID: gi})
		}
		groups[gi].NodeIDs = append(groups[gi].NodeIDs, id)
	}
	return groups, nil
}
