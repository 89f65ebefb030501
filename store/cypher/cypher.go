// Package cypher builds the Cypher statements used by the graph database
// backends.
package cypher

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedValue indicates a value with no Cypher literal form.
var ErrUnsupportedValue = errors.New("value has no cypher literal")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QuoteIdentifier returns name usable as a label, relationship type, alias
// or property key. Names that are not plain identifiers are wrapped in
// backticks.
//
// Example:
//
//	QuoteIdentifier("friend")         // Returns: "friend"
//	QuoteIdentifier("favorite-color") // Returns: "`favorite-color`"
func QuoteIdentifier(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteString returns s as a single-quoted Cypher string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Literal renders a scalar or a list of scalars as a Cypher literal. Strings
// must be valid UTF-8.
func Literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		if !utf8.ValidString(x) {
			return "", fmt.Errorf("%w: invalid UTF-8 in %q", ErrUnsupportedValue, x)
		}
		return QuoteString(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			s, err := Literal(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

// MapLiteral renders properties as a Cypher map literal with keys sorted.
// An empty map renders as "".
//
// Example:
//
//	MapLiteral(map[string]any{"b": 2, "a": "A"}) // Returns: "{a: 'A', b: 2}"
func MapLiteral(properties map[string]any) (string, error) {
	if len(properties) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		if !utf8.ValidString(k) {
			return "", fmt.Errorf("%w: invalid UTF-8 in key %q", ErrUnsupportedValue, k)
		}
		lit, err := Literal(properties[k])
		if err != nil {
			return "", fmt.Errorf("property %q: %w", k, err)
		}
		parts[i] = QuoteIdentifier(k) + ": " + lit
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// NodePattern renders a node pattern with inline properties.
//
// Example:
//
//	NodePattern("n0", "parent", map[string]any{"a": "A"}) // Returns: "(n0:parent {a: 'A'})"
func NodePattern(alias, label string, properties map[string]any) (string, error) {
	props, err := MapLiteral(properties)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(QuoteIdentifier(alias))
	if label != "" {
		b.WriteByte(':')
		b.WriteString(QuoteIdentifier(label))
	}
	if props != "" {
		b.WriteByte(' ')
		b.WriteString(props)
	}
	b.WriteByte(')')
	return b.String(), nil
}

// EdgePattern renders a directed relationship between two bound aliases.
//
// Example:
//
//	EdgePattern("n0", "child", "n1") // Returns: "(n0)-[:child]->(n1)"
func EdgePattern(fromAlias, name, toAlias string) string {
	return fmt.Sprintf("(%s)-[:%s]->(%s)",
		QuoteIdentifier(fromAlias), QuoteIdentifier(name), QuoteIdentifier(toAlias))
}

// BuildCreate joins patterns into a single CREATE clause. It returns "" when
// there is nothing to create.
func BuildCreate(patterns []string) string {
	if len(patterns) == 0 {
		return ""
	}
	return "CREATE " + strings.Join(patterns, ", ")
}

// BuildMatch generates a MATCH clause for nodes with the given label and
// alias. An empty label matches every node.
//
// Example:
//
//	BuildMatch("friend", "n") // Returns: "MATCH (n:friend)"
//	BuildMatch("", "n")       // Returns: "MATCH (n)"
func BuildMatch(label, alias string) string {
	if label == "" {
		return fmt.Sprintf("MATCH (%s)", QuoteIdentifier(alias))
	}
	return fmt.Sprintf("MATCH (%s:%s)", QuoteIdentifier(alias), QuoteIdentifier(label))
}

// BuildReturn generates a RETURN clause with the specified alias and optional
// fields. If fields is empty, returns the entire node.
//
// Examples:
//
//	BuildReturn("n", nil)                // Returns: "RETURN n"
//	BuildReturn("n", []string{"a", "b"}) // Returns: "RETURN n.a, n.b"
func BuildReturn(alias string, fields []string) string {
	if len(fields) == 0 {
		return "RETURN " + QuoteIdentifier(alias)
	}

	refs := make([]string, len(fields))
	for i, f := range fields {
		refs[i] = QuoteIdentifier(alias) + "." + QuoteIdentifier(f)
	}
	return "RETURN " + strings.Join(refs, ", ")
}

// BuildNodeQuery returns the query listing nodes, optionally restricted to a
// label: MATCH (n[:label]) RETURN n.
func BuildNodeQuery(label string) string {
	return BuildMatch(label, "n") + " " + BuildReturn("n", nil)
}

// EdgeQuery lists every edge with its endpoints.
const EdgeQuery = "MATCH (n)-[r]->(m) RETURN n, r, m"

// ParamsPrefix renders params as the "CYPHER name=value ..." header RedisGraph
// accepts in front of a parameterized query. Names are sorted. It returns ""
// for no params.
func ParamsPrefix(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", nil
	}

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		if !identifier.MatchString(k) {
			return "", fmt.Errorf("invalid parameter name %q", k)
		}
		lit, err := Literal(params[k])
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", k, err)
		}
		parts[i] = k + "=" + lit
	}
	return "CYPHER " + strings.Join(parts, " ") + " ", nil
}
