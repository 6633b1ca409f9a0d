// Package query implements the read-only operations over a built
// semantic map: filtered search, impact analysis, and navigation
// suggestions.
package query

import (
	"github.com/cartograph-dev/semamap/internal/semantic"
)

// Direction selects which edges a traversal follows from a node.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// breadthFirst walks the relationship graph from the seed ids. Related
// expansion and impact reachability share this primitive; they differ
// only in direction, depth, and the edge-type set.
//
// edgeFn fires once per distinct scanned edge. nodeFn fires once per
// newly discovered node with its hop distance from the nearest seed.
// Seeds themselves do not reach nodeFn. types nil means all edge types;
// maxDepth < 0 means unlimited. A visited set guarantees termination on
// cyclic graphs.
func breadthFirst(
	m *semantic.SemanticMap,
	seeds []string,
	dir Direction,
	maxDepth int,
	types map[semantic.RelationshipType]bool,
	edgeFn func(*semantic.CodeRelationship),
	nodeFn func(id string, depth int),
) {
	type item struct {
		id    string
		depth int
	}

	visited := make(map[string]bool, len(seeds))
	seenEdge := make(map[string]bool)

	queue := make([]item, 0, len(seeds))
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, item{id: id})
		}
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}

		var rels []*semantic.CodeRelationship
		switch dir {
		case DirOut:
			rels = m.Outgoing(cur.id)
		case DirIn:
			rels = m.Incoming(cur.id)
		default:
			rels = m.Touching(cur.id)
		}

		for _, rel := range rels {
			if types != nil && !types[rel.Type] {
				continue
			}
			if !seenEdge[rel.ID] {
				seenEdge[rel.ID] = true
				if edgeFn != nil {
					edgeFn(rel)
				}
			}

			var next string
			switch dir {
			case DirOut:
				next = rel.Target
			case DirIn:
				next = rel.Source
			default:
				if rel.Source == cur.id {
					next = rel.Target
				} else {
					next = rel.Source
				}
			}

			if visited[next] {
				continue
			}
			visited[next] = true
			if nodeFn != nil {
				nodeFn(next, cur.depth+1)
			}
			queue = append(queue, item{id: next, depth: cur.depth + 1})
		}
	}
}
