package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// CycleError reports named components that reference each other through
// use. Rendering such a component would never terminate.
type CycleError struct {
	Path []string `json:"path"`
}

func (e *CycleError) Error() string {
	if len(e.Path) == 2 && e.Path[0] == e.Path[1] {
		return fmt.Sprintf("component %s uses itself", e.Path[0])
	}
	return fmt.Sprintf("component cycle: %s", strings.Join(e.Path, " -> "))
}

// AnalyzeCycles finds reference cycles among named components.
//
// It builds a component -> used-components graph and runs Tarjan's
// algorithm over it. Each strongly connected component with more than one
// member, or a single member that uses itself, is reported. Results are
// ordered by their first path element.
func AnalyzeCycles(components map[string]TreeSpec) []*CycleError {
	if len(components) == 0 {
		return nil
	}

	graph := buildUseGraph(components)
	var cycles []*CycleError
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, &CycleError{Path: reconstructCyclePath(scc, graph)})
		}
	}
	slices.SortFunc(cycles, func(a, b *CycleError) int { return strings.Compare(a.Path[0], b.Path[0]) })
	return cycles
}

// useGraph maps a component name to the names it uses, sorted.
type useGraph map[string][]string

func buildUseGraph(components map[string]TreeSpec) useGraph {
	graph := make(useGraph, len(components))
	for name, tree := range components {
		seen := make(map[string]bool)
		collectUses(&tree, seen)
		graph[name] = sortedKeys(seen)
	}
	return graph
}

func collectUses(t *TreeSpec, into map[string]bool) {
	for i := range t.Nodes {
		d := &t.Nodes[i]
		switch {
		case d.Use != "":
			into[d.Use] = true
		case d.Fragment != nil:
			for j := range d.Fragment {
				collectUses(&d.Fragment[j], into)
			}
		case d.Component != nil && d.Component.Tree != nil:
			collectUses(d.Component.Tree, into)
		case d.Boundary != nil && d.Boundary.Component.Tree != nil:
			collectUses(d.Boundary.Component.Tree, into)
		}
	}
}

func hasSelfLoop(node string, graph useGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the output is deterministic.
func tarjanSCC(graph useGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range slices.Sorted(maps.Keys(graph)) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside scc from its first member until
// it returns there. A self-loop yields [name, name].
func reconstructCyclePath(scc []string, graph useGraph) []string {
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
