// Package resolve implements the dependency resolver: a topological sort
// over required-dependency edges with deterministic priority tiebreak
//. The algorithm is Kahn's with an explicit ready set, walked
// by hand rather than through container/heap: module counts are small
// (tens, not millions) so a linear scan for the minimum-priority ready node
// each step is simpler than heap bookkeeping and carries no measurable
// cost — see DESIGN.md for why no pack library covers graph resolution.
package resolve

import (
	"fmt"
	"strings"

	"github.com/zephyr-sh/zephyr/pkg/manifest"
	"github.com/zephyr-sh/zephyr/pkg/zerr"
)

type node struct {
	module   *manifest.Module
	index    int // stable input order, used as the final tiebreak
	inDegree int
}

// Resolve orders modules so that every required dependency of a module
// appears earlier in the output. Among modules mutually
// unconstrained by dependency edges, the ready node with the lowest
// priority is chosen next; ties broken by stable input order. Optional
// dependencies never constrain ordering and are silently dropped when
// absent.
func Resolve(modules []*manifest.Module) ([]*manifest.Module, error) {
	byName := make(map[string]*node, len(modules))
	for i, m := range modules {
		if _, dup := byName[m.Name]; dup {
			return nil, zerr.Newf(zerr.Conflict, "duplicate module name %q", m.Name)
		}
		byName[m.Name] = &node{module: m, index: i}
	}

	dependents := make(map[string][]string, len(modules))
	for _, m := range modules {
		for _, req := range m.Required {
			if _, ok := byName[req]; !ok {
				return nil, zerr.Newf(zerr.NotFound, "module %s has missing dependency %q", m.Name, req)
			}
			byName[m.Name].inDegree++
			dependents[req] = append(dependents[req], m.Name)
		}
	}

	ready := make([]string, 0, len(modules))
	for name, n := range byName {
		if n.inDegree == 0 {
			ready = append(ready, name)
		}
	}

	var order []*manifest.Module
	remaining := len(modules)
	for len(ready) > 0 {
		// Select the lowest-priority ready node, stable-input-order tiebreak.
		bestIdx := 0
		for i := 1; i < len(ready); i++ {
			a, b := byName[ready[i]], byName[ready[bestIdx]]
			if a.module.Priority < b.module.Priority ||
				(a.module.Priority == b.module.Priority && a.index < b.index) {
				bestIdx = i
			}
		}
		name := ready[bestIdx]
		ready = append(ready[:bestIdx], ready[bestIdx+1:]...)

		n := byName[name]
		order = append(order, n.module)
		remaining--

		for _, depName := range dependents[name] {
			byName[depName].inDegree--
			if byName[depName].inDegree == 0 {
				ready = append(ready, depName)
			}
		}
	}

	if remaining > 0 {
		cycle := findCycle(byName)
		return nil, zerr.Newf(zerr.Conflict, "Circular dependency detected involving: %s", strings.Join(cycle, ", "))
	}

	return order, nil
}

// findCycle locates one cycle among the nodes that Resolve could not
// process (those with inDegree > 0 remaining), by following required edges
// until a node repeats.
func findCycle(byName map[string]*node) []string {
	var start string
	for name, n := range byName {
		if n.inDegree > 0 {
			start = name
			break
		}
	}

	visited := map[string]int{} // name -> position in path
	var path []string
	cur := start
	for {
		if pos, seen := visited[cur]; seen {
			return append(append([]string(nil), path[pos:]...), cur)
		}
		visited[cur] = len(path)
		path = append(path, cur)

		n := byName[cur]
		next := ""
		for _, req := range n.module.Required {
			if rn, ok := byName[req]; ok && rn.inDegree > 0 {
				next = req
				break
			}
		}
		if next == "" {
			// Fall back to any required edge; the set is cyclic so one exists.
			if len(n.module.Required) == 0 {
				return path
			}
			next = n.module.Required[0]
		}
		cur = next
	}
}

// ResolutionKey derives a stable cache key for a set of modules' names and
// versions, used by pkg/cache's secondary resolution-order cache.
func ResolutionKey(modules []*manifest.Module) string {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = fmt.Sprintf("%s@%s", m.Name, m.Version)
	}
	return strings.Join(names, ",")
}
