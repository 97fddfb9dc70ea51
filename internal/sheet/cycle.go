package sheet

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statsim/internal/ir"
)

// DependencyCycle is a set of derived stats that read each other.
type DependencyCycle struct {
	Path    []string `json:"path"` // Closed path: ["a", "b", "a"]
	Message string   `json:"message"`
}

// AnalyzeDependencies finds dependency cycles among the sheet's stats.
//
// It builds a stat → dependency graph and runs Tarjan's algorithm. Every
// strongly connected component with more than one stat, or a stat that
// reads itself, is a cycle. An acyclic sheet returns an empty slice.
func AnalyzeDependencies(spec *ir.SheetSpec) []DependencyCycle {
	graph, roots := buildDependencyGraph(spec)

	cycles := []DependencyCycle{}
	for _, scc := range tarjanSCC(graph, roots) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// BuildOrder returns stat IDs with every dependency ahead of its
// dependents. Independent stats keep declaration order.
func BuildOrder(spec *ir.SheetSpec) ([]string, error) {
	if cycles := AnalyzeDependencies(spec); len(cycles) > 0 {
		return nil, fmt.Errorf("sheet %q: %s", spec.Name, cycles[0].Message)
	}
	graph, roots := buildDependencyGraph(spec)

	// Tarjan emits a component only after every component it reaches.
	var order []string
	for _, scc := range tarjanSCC(graph, roots) {
		order = append(order, scc...)
	}
	return order, nil
}

// dependencyGraph maps stat ID → stats it reads.
type dependencyGraph map[string][]string

// buildDependencyGraph returns the graph and the stat IDs in declaration
// order, which fixes traversal order.
func buildDependencyGraph(spec *ir.SheetSpec) (dependencyGraph, []string) {
	graph := make(dependencyGraph, len(spec.Stats))
	roots := make([]string, 0, len(spec.Stats))
	for _, s := range spec.Stats {
		graph[s.ID] = s.Dependencies()
		roots = append(roots, s.ID)
	}
	return graph, roots
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Components come out in reverse topological order of the graph.
func tarjanSCC(graph dependencyGraph, roots []string) [][]string {
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
			// Popped in reverse visit order.
			slices.Reverse(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, v := range roots {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}

// sccToCycle reports the shortest cycle through the component's
// first-visited stat.
func sccToCycle(scc []string, graph dependencyGraph) DependencyCycle {
	members := make(map[string]bool, len(scc))
	for _, s := range scc {
		members[s] = true
	}

	start := scc[0]
	parent := map[string]string{}
	queue := []string{start}
	last := start
search:
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, w := range graph[cur] {
			if w == start {
				last = cur
				break search
			}
			if _, seen := parent[w]; !seen && members[w] {
				parent[w] = cur
				queue = append(queue, w)
			}
		}
	}

	path := []string{start}
	for n := last; n != start; n = parent[n] {
		path = append(path, n)
	}
	slices.Reverse(path[1:])
	path = append(path, start)

	return DependencyCycle{
		Path:    path,
		Message: "dependency cycle: " + strings.Join(path, " -> "),
	}
}
