package catalog

import (
	"strings"
)

const pokemonColumns = `id, name, height, weight, base_exp, types, abilities, stats, sprites, generation, updated_at`

// predicate is one AND-ed condition. User values only ever travel in args.
type predicate struct {
	sql  string
	args []any
}

// backend turns the part of a Filter it understands into predicates.
type backend interface {
	predicates(f Filter) []predicate
}

// structuredBackend covers column equality, set membership and substring search.
type structuredBackend struct{}

func (structuredBackend) predicates(f Filter) []predicate {
	var out []predicate

	switch len(f.Generations) {
	case 0:
	case 1:
		out = append(out, predicate{sql: "generation = ?", args: []any{f.Generations[0]}})
	default:
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.Generations)), ",")
		args := make([]any, 0, len(f.Generations))
		for _, g := range f.Generations {
			args = append(args, g)
		}
		out = append(out, predicate{sql: "generation IN (" + marks + ")", args: args})
	}

	if f.Search != "" {
		out = append(out, predicate{
			sql:  `LOWER(name) LIKE ? ESCAPE '\'`,
			args: []any{"%" + escapeLike(strings.ToLower(f.Search)) + "%"},
		})
	}
	return out
}

// elementMatchBackend matches rows whose types list holds an element with the
// requested type name. The column stores a JSON array so this goes through json_each.
type elementMatchBackend struct{}

func (elementMatchBackend) predicates(f Filter) []predicate {
	if f.Type == "" {
		return nil
	}
	return []predicate{{
		sql: `EXISTS (SELECT 1 FROM json_each(pokemon.types) AS t
			WHERE LOWER(json_extract(t.value, '$.type.name')) = ?)`,
		args: []any{strings.ToLower(f.Type)},
	}}
}

// plan picks the backends a filter needs.
func plan(f Filter) []backend {
	backends := []backend{structuredBackend{}}
	if f.Type != "" {
		backends = append(backends, elementMatchBackend{})
	}
	return backends
}

func whereClause(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	for _, b := range plan(f) {
		for _, p := range b.predicates(f) {
			where = append(where, p.sql)
			args = append(args, p.args...)
		}
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// buildListSQL builds either COUNT(*) or the paged SELECT for f.
// f must already be normalized.
func buildListSQL(f Filter, countOnly bool) (string, []any) {
	where, args := whereClause(f)

	if countOnly {
		return `SELECT COUNT(*) FROM pokemon` + where, args
	}

	sqlStr := `SELECT ` + pokemonColumns + ` FROM pokemon` + where +
		` ORDER BY id ASC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Skip())
	return sqlStr, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
