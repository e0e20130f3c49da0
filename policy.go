package jsonsql

import (
	"fmt"
	"sort"
)

// Wildcard is the admit-all marker. Placing it in any allow list admits
// every entity in that category, subject to the matching deny list.
const Wildcard = "*"

// defaultJoinTypes is the allow list used when no join types are
// configured.
var defaultJoinTypes = []string{
	"INNER JOIN",
	"LEFT JOIN",
	"RIGHT JOIN",
	"FULL OUTER JOIN",
	"CROSS JOIN",
	"NATURAL JOIN",
}

// PolicyConfig is the declaration shape for a Policy. All lists default
// to empty, which means strict deny-all, except join types which default
// to the standard SQL join keywords.
//
// Table entries may be plain names or single-entry maps from a table
// name to a list of its columns:
//
//	tables:
//	  - users
//	  - orders: [id, total]
//
// Column values name the expected kind of literal operands for that
// column; a "*" entry declares a permissive kind for all columns.
type PolicyConfig struct {
	Queries     []string          `json:"queries" mapstructure:"queries"`
	Items       []string          `json:"items" mapstructure:"items"`
	Tables      []interface{}     `json:"tables" mapstructure:"tables"`
	Connections []string          `json:"connections" mapstructure:"connections"`
	JoinTypes   []string          `json:"join_types" mapstructure:"join_types"`
	Columns     map[string]string `json:"columns" mapstructure:"columns"`
	Denied      DeniedConfig      `json:"denied" mapstructure:"denied"`
}

// DeniedConfig holds the per-category deny lists. Deny always overrides
// allow, including under a wildcard allow.
type DeniedConfig struct {
	Queries     []string `json:"queries" mapstructure:"queries"`
	Items       []string `json:"items" mapstructure:"items"`
	Tables      []string `json:"tables" mapstructure:"tables"`
	Connections []string `json:"connections" mapstructure:"connections"`
	JoinTypes   []string `json:"join_types" mapstructure:"join_types"`
	Columns     []string `json:"columns" mapstructure:"columns"`
}

// stringSet is a membership set over entity names.
type stringSet map[string]struct{}

func newStringSet(entries []string) stringSet {
	s := make(stringSet, len(entries))
	for _, e := range entries {
		s[e] = struct{}{}
	}
	return s
}

func (s stringSet) contains(entity string) bool {
	_, ok := s[entity]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Policy is the compiled, immutable allow/deny configuration shared by
// every compile call. It is read-only after construction and safe for
// concurrent use without synchronization.
type Policy struct {
	queries     stringSet
	items       stringSet
	connections stringSet
	joinTypes   stringSet

	// tables maps each allowed table to its declared column list.
	// A table declared as a plain name has a nil list.
	tables map[string][]string

	// columns maps column names to expected literal kinds. A "*" entry
	// declares a kind for all columns not explicitly listed.
	columns map[string]ValueKind

	denied struct {
		queries     stringSet
		items       stringSet
		tables      stringSet
		connections stringSet
		joinTypes   stringSet
		columns     stringSet
	}
}

// NewPolicy compiles a PolicyConfig into an immutable Policy. It fails
// on malformed table declarations and unknown column kind names.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	p := &Policy{
		queries:     newStringSet(cfg.Queries),
		items:       newStringSet(cfg.Items),
		connections: newStringSet(cfg.Connections),
		tables:      make(map[string][]string, len(cfg.Tables)),
		columns:     make(map[string]ValueKind, len(cfg.Columns)),
	}

	joinTypes := cfg.JoinTypes
	if len(joinTypes) == 0 {
		joinTypes = defaultJoinTypes
	}
	p.joinTypes = newStringSet(joinTypes)

	for _, entry := range cfg.Tables {
		switch t := entry.(type) {
		case string:
			p.tables[t] = nil
		case map[string]interface{}:
			for name, cols := range t {
				list, err := toColumnList(cols)
				if err != nil {
					return nil, fmt.Errorf("table %q: %w", name, err)
				}
				p.tables[name] = list
			}
		case map[interface{}]interface{}:
			// YAML decoders hand back interface-keyed maps.
			for key, cols := range t {
				name, ok := key.(string)
				if !ok {
					return nil, fmt.Errorf("table name %v is not a string", key)
				}
				list, err := toColumnList(cols)
				if err != nil {
					return nil, fmt.Errorf("table %q: %w", name, err)
				}
				p.tables[name] = list
			}
		default:
			return nil, fmt.Errorf("table entry %v is neither a name nor a name-to-columns map", entry)
		}
	}

	for column, kindName := range cfg.Columns {
		kind, err := ParseValueKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		p.columns[column] = kind
	}

	p.denied.queries = newStringSet(cfg.Denied.Queries)
	p.denied.items = newStringSet(cfg.Denied.Items)
	p.denied.tables = newStringSet(cfg.Denied.Tables)
	p.denied.connections = newStringSet(cfg.Denied.Connections)
	p.denied.joinTypes = newStringSet(cfg.Denied.JoinTypes)
	p.denied.columns = newStringSet(cfg.Denied.Columns)

	return p, nil
}

// toColumnList normalizes a declared column list.
func toColumnList(v interface{}) ([]string, error) {
	switch cols := v.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(cols))
		copy(out, cols)
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(cols))
		for _, c := range cols {
			s, ok := c.(string)
			if !ok {
				return nil, fmt.Errorf("column %v is not a string", c)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("columns must be a list, got %T", v)
	}
}

// isAllowed applies the resolution order shared by every category:
// deny-list membership refuses first, an empty allow list refuses,
// a wildcard admits, otherwise allow-list membership decides.
func isAllowed(entity string, allow, deny stringSet) bool {
	if deny.contains(entity) {
		return false
	}
	if len(allow) == 0 {
		return false
	}
	if allow.contains(Wildcard) {
		return true
	}
	return allow.contains(entity)
}

// AllowQuery reports whether the query verb is admitted.
func (p *Policy) AllowQuery(verb string) bool {
	return isAllowed(verb, p.queries, p.denied.queries)
}

// AllowItem reports whether a SELECT item is admitted.
func (p *Policy) AllowItem(item string) bool {
	return isAllowed(item, p.items, p.denied.items)
}

// AllowConnection reports whether a connection keyword is admitted.
func (p *Policy) AllowConnection(connection string) bool {
	return isAllowed(connection, p.connections, p.denied.connections)
}

// AllowJoinType reports whether a join type is admitted. Callers are
// expected to upper-case the type first.
func (p *Policy) AllowJoinType(joinType string) bool {
	return isAllowed(joinType, p.joinTypes, p.denied.joinTypes)
}

// AllowTable reports whether a table is admitted. Resolution runs over
// the declared table names; declared column lists are carried for
// introspection but do not widen or narrow table admission.
func (p *Policy) AllowTable(table string) bool {
	if p.denied.tables.contains(table) {
		return false
	}
	if len(p.tables) == 0 {
		return false
	}
	if _, ok := p.tables[Wildcard]; ok {
		return true
	}
	_, ok := p.tables[table]
	return ok
}

// AllowColumn reports whether a column is admitted. A "*" entry in the
// column-kind map admits all columns not explicitly denied.
func (p *Policy) AllowColumn(column string) bool {
	if p.denied.columns.contains(column) {
		return false
	}
	if len(p.columns) == 0 {
		return false
	}
	if _, ok := p.columns[Wildcard]; ok {
		return true
	}
	_, ok := p.columns[column]
	return ok
}

// ColumnKind returns the declared literal kind for a column, falling
// back to the wildcard entry and then to KindAny.
func (p *Policy) ColumnKind(column string) ValueKind {
	if kind, ok := p.columns[column]; ok {
		return kind
	}
	if kind, ok := p.columns[Wildcard]; ok {
		return kind
	}
	return KindAny
}

// wildcardColumns reports whether the column map carries a "*" entry,
// which switches literal/column classification to heuristic mode.
func (p *Policy) wildcardColumns() bool {
	_, ok := p.columns[Wildcard]
	return ok
}

// TableColumns returns the declared column list for a table, or nil if
// the table is unknown or declared without columns.
func (p *Policy) TableColumns(table string) []string {
	cols := p.tables[table]
	if cols == nil {
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Snapshot reconstructs a PolicyConfig from the compiled policy for
// display and introspection. Lists come back sorted.
func (p *Policy) Snapshot() PolicyConfig {
	cfg := PolicyConfig{
		Queries:     p.queries.sorted(),
		Items:       p.items.sorted(),
		Connections: p.connections.sorted(),
		JoinTypes:   p.joinTypes.sorted(),
		Columns:     make(map[string]string, len(p.columns)),
	}

	tableNames := make([]string, 0, len(p.tables))
	for name := range p.tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)
	for _, name := range tableNames {
		if cols := p.tables[name]; cols != nil {
			cfg.Tables = append(cfg.Tables, map[string]interface{}{name: cols})
		} else {
			cfg.Tables = append(cfg.Tables, name)
		}
	}

	for column, kind := range p.columns {
		cfg.Columns[column] = kind.String()
	}

	cfg.Denied = DeniedConfig{
		Queries:     p.denied.queries.sorted(),
		Items:       p.denied.items.sorted(),
		Tables:      p.denied.tables.sorted(),
		Connections: p.denied.connections.sorted(),
		JoinTypes:   p.denied.joinTypes.sorted(),
		Columns:     p.denied.columns.sorted(),
	}

	return cfg
}

// AllowedQueries returns the sorted query allow list for suggestion
// rendering.
func (p *Policy) AllowedQueries() []string { return p.queries.sorted() }

// AllowedItems returns the sorted item allow list.
func (p *Policy) AllowedItems() []string { return p.items.sorted() }

// AllowedTables returns the sorted table allow list.
func (p *Policy) AllowedTables() []string {
	names := make([]string, 0, len(p.tables))
	for name := range p.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowedConnections returns the sorted connection allow list.
func (p *Policy) AllowedConnections() []string { return p.connections.sorted() }

// AllowedJoinTypes returns the sorted join-type allow list.
func (p *Policy) AllowedJoinTypes() []string { return p.joinTypes.sorted() }

// AllowedColumns returns the sorted declared column names.
func (p *Policy) AllowedColumns() []string {
	names := make([]string, 0, len(p.columns))
	for name := range p.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
