package store

import (
	"regexp"
	"strings"
)

var (
	nodeListQuery = regexp.MustCompile("(?i)^match \\(n(?::(\\w+|`[^`]+`))?\\) return n$")
	edgeListQuery = regexp.MustCompile(`(?i)^match \(n\)-\[r\]->\(m\) return n, ?r, ?m$`)
)

// ListQuery is one of the two inspection queries every Querier backend
// understands, even when it has no query engine of its own:
//
//	MATCH (n) RETURN n                 every node, optionally by label
//	MATCH (n)-[r]->(m) RETURN n, r, m  every edge with its endpoints
type ListQuery struct {
	// Edges selects the edge listing.
	Edges bool

	// Label restricts the node listing. Empty matches all nodes.
	Label string
}

// ParseListQuery recognizes q as a ListQuery. Case and whitespace are not
// significant.
func ParseListQuery(q string) (ListQuery, bool) {
	normalized := strings.Join(strings.Fields(q), " ")

	if m := nodeListQuery.FindStringSubmatch(normalized); m != nil {
		return ListQuery{Label: strings.Trim(m[1], "`")}, true
	}
	if edgeListQuery.MatchString(normalized) {
		return ListQuery{Edges: true}, true
	}
	return ListQuery{}, false
}

// Run evaluates the query over nodes and edges given in creation order.
func (q ListQuery) Run(nodes []Node, edges []Edge) *QueryResult {
	if !q.Edges {
		res := &QueryResult{Columns: []string{"n"}}
		for _, n := range nodes {
			if q.Label == "" || n.Label == q.Label {
				res.Rows = append(res.Rows, []any{n})
			}
		}
		return res
	}

	byHandle := make(map[NodeHandle]Node, len(nodes))
	for _, n := range nodes {
		byHandle[n.Handle] = n
	}

	res := &QueryResult{Columns: []string{"n", "r", "m"}}
	for _, e := range edges {
		res.Rows = append(res.Rows, []any{byHandle[e.From], e, byHandle[e.To]})
	}
	return res
}
