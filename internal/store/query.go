package store

import (
	"fmt"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/domain"
)

// quoteIdent quotes a SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// buildSelect renders q as a parameterised SELECT over table. Every column the
// query touches must be one of known.
func buildSelect(table string, known []string, q domain.EntityQuery) (string, []any, error) {
	knownSet := make(map[string]struct{}, len(known))
	for _, c := range known {
		knownSet[c] = struct{}{}
	}
	check := func(col string) error {
		if _, ok := knownSet[col]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
		return nil
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		sb.WriteString("*")
	} else {
		for i, col := range q.Columns {
			if err := check(col); err != nil {
				return "", nil, err
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(col))
		}
	}
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(table))

	var (
		where []string
		args  []any
	)
	if q.KeyColumn != "" {
		if err := check(q.KeyColumn); err != nil {
			return "", nil, err
		}
		where = append(where, quoteIdent(q.KeyColumn)+" = ?")
		args = append(args, q.Key)
	}
	for _, clause := range q.Filter.Clauses {
		if len(clause.Values) == 0 {
			continue
		}
		if err := check(clause.Column); err != nil {
			return "", nil, err
		}
		alts := make([]string, len(clause.Values))
		for i, v := range clause.Values {
			alts[i] = quoteIdent(clause.Column) + " = ? COLLATE NOCASE"
			args = append(args, v)
		}
		where = append(where, "("+strings.Join(alts, " OR ")+")")
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY rowid")
	return sb.String(), args, nil
}

// buildUpdate renders an UPDATE of the row whose keyColumn equals key.
func buildUpdate(table string, known []string, keyColumn, key string, set map[string]string) (string, []any, error) {
	knownSet := make(map[string]struct{}, len(known))
	for _, c := range known {
		knownSet[c] = struct{}{}
	}
	if _, ok := knownSet[keyColumn]; !ok {
		return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, keyColumn)
	}
	if len(set) == 0 {
		return "", nil, fmt.Errorf("update %s: no columns to set", table)
	}

	// Iterate in column order so the statement text is deterministic.
	var (
		assignments []string
		args        []any
	)
	for _, col := range known {
		v, ok := set[col]
		if !ok {
			continue
		}
		assignments = append(assignments, quoteIdent(col)+" = ?")
		args = append(args, v)
	}
	if len(assignments) != len(set) {
		for col := range set {
			if _, ok := knownSet[col]; !ok {
				return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
			}
		}
	}
	args = append(args, key)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quoteIdent(table), strings.Join(assignments, ", "), quoteIdent(keyColumn))
	return stmt, args, nil
}

// FilterFromConstraints converts slot constraints into a column filter with
// clauses sorted by slot name.
func FilterFromConstraints(c domain.Constraints) domain.EntityFilter {
	var f domain.EntityFilter
	for _, slot := range c.Slots() {
		f.Clauses = append(f.Clauses, domain.FilterClause{Column: slot, Values: c[slot]})
	}
	return f
}
