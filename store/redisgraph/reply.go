package redisgraph

import (
	"fmt"
	"strconv"

	"github.com/zero-day-ai/docgraph/store"
)

// parseReply decodes a verbose GRAPH.QUERY reply. Write queries reply with
// statistics only; read queries reply with header, rows and statistics.
func parseReply(reply []any) (*store.QueryResult, error) {
	res := &store.QueryResult{}

	switch len(reply) {
	case 1:
		stats, err := parseStats(reply[0])
		if err != nil {
			return nil, err
		}
		res.Stats = stats
		return res, nil

	case 3:
		header, ok := reply[0].([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected header type %T", reply[0])
		}
		for _, h := range header {
			name, err := columnName(h)
			if err != nil {
				return nil, err
			}
			res.Columns = append(res.Columns, name)
		}

		rows, ok := reply[1].([]any)
		if !ok {
			return nil, fmt.Errorf("unexpected rows type %T", reply[1])
		}
		for _, r := range rows {
			cells, ok := r.([]any)
			if !ok {
				return nil, fmt.Errorf("unexpected row type %T", r)
			}
			row := make([]any, len(cells))
			for i, c := range cells {
				row[i] = parseCell(c)
			}
			res.Rows = append(res.Rows, row)
		}

		stats, err := parseStats(reply[2])
		if err != nil {
			return nil, err
		}
		res.Stats = stats
		return res, nil

	default:
		return nil, fmt.Errorf("unexpected reply with %d elements", len(reply))
	}
}

func parseStats(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected statistics type %T", v)
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected statistic type %T", it)
		}
		out = append(out, s)
	}
	return out, nil
}

// columnName accepts both the plain and the [type, name] header forms.
func columnName(v any) (string, error) {
	switch h := v.(type) {
	case string:
		return h, nil
	case []any:
		if len(h) == 2 {
			if name, ok := h[1].(string); ok {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("unexpected column header %v", v)
}

// parseCell turns verbose node and edge encodings into store.Node and
// store.Edge. Other values are returned as decoded by go-redis.
func parseCell(v any) any {
	pairs, ok := v.([]any)
	if !ok || len(pairs) == 0 {
		return v
	}

	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		kv, ok := p.([]any)
		if !ok || len(kv) != 2 {
			return v
		}
		k, ok := kv[0].(string)
		if !ok {
			return v
		}
		fields[k] = kv[1]
	}

	id, hasID := fields["id"]
	if !hasID {
		return v
	}

	if labels, ok := fields["labels"].([]any); ok {
		n := store.Node{
			Handle:     handleOf(id),
			Properties: parseProperties(fields["properties"]),
		}
		if len(labels) > 0 {
			n.Label, _ = labels[0].(string)
		}
		return n
	}

	if typ, ok := fields["type"].(string); ok {
		return store.Edge{
			From: handleOf(fields["src_node"]),
			Name: typ,
			To:   handleOf(fields["dest_node"]),
		}
	}

	return v
}

func parseProperties(v any) map[string]any {
	pairs, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		kv, ok := p.([]any)
		if !ok || len(kv) != 2 {
			continue
		}
		if k, ok := kv[0].(string); ok {
			out[k] = kv[1]
		}
	}
	return out
}

func handleOf(v any) store.NodeHandle {
	switch id := v.(type) {
	case int64:
		return store.NodeHandle(strconv.FormatInt(id, 10))
	case string:
		return store.NodeHandle(id)
	default:
		return store.NodeHandle(fmt.Sprint(v))
	}
}
