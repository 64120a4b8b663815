package linalg

import "sort"

// rcm returns a reverse Cuthill-McKee ordering of the symmetric pattern
// adj. perm[k] is the original index placed at position k.
func rcm(adj [][]int) []int {
	n := len(adj)
	deg := func(i int) int { return len(adj[i]) }
	visited := make([]bool, n)
	order := make([]int, 0, n)

	for {
		// Start each component at a low degree vertex pushed to the far end
		// of the component by a few breadth-first sweeps.
		start := -1
		for i := 0; i < n; i++ {
			if !visited[i] && (start < 0 || deg(i) < deg(start)) {
				start = i
			}
		}
		if start < 0 {
			break
		}
		start = peripheral(adj, start, visited)

		queue := []int{start}
		visited[start] = true
		for h := 0; h < len(queue); h++ {
			v := queue[h]
			order = append(order, v)
			var nb []int
			for _, u := range adj[v] {
				if !visited[u] {
					visited[u] = true
					nb = append(nb, u)
				}
			}
			sort.Slice(nb, func(a, b int) bool {
				if deg(nb[a]) != deg(nb[b]) {
					return deg(nb[a]) < deg(nb[b])
				}
				return nb[a] < nb[b]
			})
			queue = append(queue, nb...)
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// peripheral walks to the last level of repeated breadth-first searches
// until the eccentricity stops growing.
func peripheral(adj [][]int, start int, done []bool) int {
	best, ecc := start, -1
	for iter := 0; iter < 8; iter++ {
		level := map[int]int{best: 0}
		queue := []int{best}
		last := best
		for h := 0; h < len(queue); h++ {
			v := queue[h]
			for _, u := range adj[v] {
				if done[u] {
					continue
				}
				if _, ok := level[u]; !ok {
					level[u] = level[v] + 1
					queue = append(queue, u)
					if level[u] > level[last] || (level[u] == level[last] && len(adj[u]) < len(adj[last])) {
						last = u
					}
				}
			}
		}
		if level[last] <= ecc {
			break
		}
		best, ecc = last, level[last]
	}
	return best
}
