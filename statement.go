package akita

import (
	"strings"

	"github.com/akita-go/akita/schema"
	"github.com/akita-go/akita/utils"
	"github.com/akita-go/akita/value"
)

// Statement renders one Wrapper AST into SQL text plus an ordered parameter
// list for a single dialect. Rendering is pure: the same AST and dialect
// always produce the same text and parameter order.
type Statement struct {
	Dialect Dialect
	Schema  *schema.Schema
	SQL     strings.Builder
	Vars    []interface{}
}

// NewStatement creates a renderer for one execution.
func NewStatement(dialect Dialect, s *schema.Schema) *Statement {
	return &Statement{Dialect: dialect, Schema: s}
}

// AddVar appends one bound parameter and writes its placeholder.
func (stmt *Statement) AddVar(v value.Value) {
	stmt.Vars = append(stmt.Vars, v.Interface())
	stmt.SQL.WriteString(stmt.Dialect.BindVar(len(stmt.Vars)))
}

// WriteQuoted writes an identifier, quoting each dot-separated part. `*` and
// anything that is not a plain identifier path, like expressions or
// pre-quoted names, passes through verbatim.
func (stmt *Statement) WriteQuoted(field string) {
	if field == "*" || strings.ContainsFunc(field, utils.IsValidDBNameChar) {
		stmt.SQL.WriteString(field)
		return
	}
	for i, part := range strings.Split(field, ".") {
		if i > 0 {
			stmt.SQL.WriteByte('.')
		}
		if part == "*" {
			stmt.SQL.WriteString(part)
		} else {
			stmt.SQL.WriteString(stmt.Dialect.Quote(part))
		}
	}
}

func (stmt *Statement) tableName(w *Wrapper) (string, error) {
	if w != nil && w.table != "" {
		return w.table, nil
	}
	if stmt.Schema != nil && stmt.Schema.Table != "" {
		return stmt.Schema.Table, nil
	}
	return "", ErrMissingTable
}

// BuildSelect renders the data query for w.
func (stmt *Statement) BuildSelect(w *Wrapper) error {
	if err := w.Err(); err != nil {
		return err
	}
	table, err := stmt.tableName(w)
	if err != nil {
		return err
	}

	stmt.SQL.WriteString("SELECT ")
	if w.distinct {
		stmt.SQL.WriteString("DISTINCT ")
	}
	stmt.writeSelectColumns(w)
	stmt.SQL.WriteString(" FROM ")
	stmt.WriteQuoted(table)
	if w.alias != "" {
		stmt.SQL.WriteByte(' ')
		stmt.SQL.WriteString(w.alias)
	}

	if err := stmt.writeJoins(w); err != nil {
		return err
	}
	if err := stmt.writeWhere(w); err != nil {
		return err
	}
	if err := stmt.writeGroupHaving(w); err != nil {
		return err
	}
	stmt.writeOrderBy(w)
	stmt.SQL.WriteString(stmt.Dialect.LimitAndOffsetSQL(w.limit, w.offset, len(w.orders) > 0))
	stmt.writeTail(w)
	return nil
}

// writeTail appends the wrapper's trailing raw fragment. Every builder whose
// guard counts lastSQL as a condition must render it.
func (stmt *Statement) writeTail(w *Wrapper) {
	if w.lastSQL != "" {
		stmt.SQL.WriteByte(' ')
		stmt.SQL.WriteString(w.lastSQL)
	}
}

// BuildCount renders the COUNT variant of w: same predicates and joins, no
// ordering or pagination. A grouped query is counted through a derived table.
func (stmt *Statement) BuildCount(w *Wrapper) error {
	if err := w.Err(); err != nil {
		return err
	}
	table, err := stmt.tableName(w)
	if err != nil {
		return err
	}

	if len(w.groupBy) > 0 {
		inner := w.clone()
		inner.orders = nil
		inner.limit = nil
		inner.offset = nil
		innerStmt := NewStatement(stmt.Dialect, stmt.Schema)
		if err := innerStmt.BuildSelect(inner); err != nil {
			return err
		}
		stmt.SQL.WriteString("SELECT COUNT(*) FROM (")
		stmt.SQL.WriteString(innerStmt.SQL.String())
		stmt.SQL.WriteString(") ")
		stmt.SQL.WriteString("akita_count")
		stmt.Vars = append(stmt.Vars, innerStmt.Vars...)
		return nil
	}

	stmt.SQL.WriteString("SELECT COUNT(*) FROM ")
	stmt.WriteQuoted(table)
	if w.alias != "" {
		stmt.SQL.WriteByte(' ')
		stmt.SQL.WriteString(w.alias)
	}
	if err := stmt.writeJoins(w); err != nil {
		return err
	}
	return stmt.writeWhere(w)
}

// BuildUpdate renders an UPDATE from the wrapper's set list.
func (stmt *Statement) BuildUpdate(w *Wrapper) error {
	if err := w.Err(); err != nil {
		return err
	}
	table, err := stmt.tableName(w)
	if err != nil {
		return err
	}
	if len(w.sets) == 0 {
		return ErrMalformedRaw
	}

	stmt.SQL.WriteString("UPDATE ")
	stmt.WriteQuoted(table)
	stmt.SQL.WriteString(" SET ")
	for i, set := range w.sets {
		if i > 0 {
			stmt.SQL.WriteString(", ")
		}
		stmt.WriteQuoted(set.column)
		stmt.SQL.WriteString(" = ")
		stmt.AddVar(set.value)
	}
	if err := stmt.writeWhere(w); err != nil {
		return err
	}
	stmt.writeTail(w)
	return nil
}

// BuildUpdateColumns renders an UPDATE from explicit column/value pairs, used
// by the entity update entry points.
func (stmt *Statement) BuildUpdateColumns(w *Wrapper, columns []string, vals []value.Value) error {
	if err := w.Err(); err != nil {
		return err
	}
	table, err := stmt.tableName(w)
	if err != nil {
		return err
	}

	stmt.SQL.WriteString("UPDATE ")
	stmt.WriteQuoted(table)
	stmt.SQL.WriteString(" SET ")
	for i, column := range columns {
		if i > 0 {
			stmt.SQL.WriteString(", ")
		}
		stmt.WriteQuoted(column)
		stmt.SQL.WriteString(" = ")
		stmt.AddVar(vals[i])
	}
	if err := stmt.writeWhere(w); err != nil {
		return err
	}
	stmt.writeTail(w)
	return nil
}

// BuildDelete renders a DELETE honoring the wrapper conditions.
func (stmt *Statement) BuildDelete(w *Wrapper) error {
	if err := w.Err(); err != nil {
		return err
	}
	table, err := stmt.tableName(w)
	if err != nil {
		return err
	}
	stmt.SQL.WriteString("DELETE FROM ")
	stmt.WriteQuoted(table)
	if err := stmt.writeWhere(w); err != nil {
		return err
	}
	stmt.writeTail(w)
	return nil
}

// BuildInsert renders an INSERT of one or more rows. When returning is set the
// generated key column is appended as a RETURNING clause.
func (stmt *Statement) BuildInsert(table string, columns []string, rows [][]value.Value, returning string) error {
	if table == "" {
		return ErrMissingTable
	}
	stmt.SQL.WriteString("INSERT INTO ")
	stmt.WriteQuoted(table)
	stmt.SQL.WriteString(" (")
	for i, column := range columns {
		if i > 0 {
			stmt.SQL.WriteString(", ")
		}
		stmt.WriteQuoted(column)
	}
	stmt.SQL.WriteString(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			stmt.SQL.WriteString(", ")
		}
		stmt.SQL.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				stmt.SQL.WriteString(", ")
			}
			stmt.AddVar(v)
		}
		stmt.SQL.WriteByte(')')
	}
	if returning != "" && stmt.Dialect.SupportsReturning() {
		stmt.SQL.WriteString(" RETURNING ")
		stmt.WriteQuoted(returning)
	}
	return nil
}

// BuildRaw renders a raw statement: `?` placeholders are rewritten to the
// dialect's syntax and bound positionally, `:name` tokens resolve against the
// named parameter map.
func (stmt *Statement) BuildRaw(sql string, positional []value.Value, named map[string]value.Value) error {
	return stmt.expandFragment(sql, positional, named)
}

func (stmt *Statement) writeSelectColumns(w *Wrapper) {
	if len(w.selects) == 0 {
		if stmt.Schema != nil {
			first := true
			for _, field := range stmt.Schema.Fields {
				if !field.Exists {
					continue
				}
				if !first {
					stmt.SQL.WriteString(", ")
				}
				first = false
				stmt.WriteQuoted(field.DBName)
			}
			return
		}
		stmt.SQL.WriteByte('*')
		return
	}
	for i, column := range w.selects {
		if i > 0 {
			stmt.SQL.WriteString(", ")
		}
		stmt.WriteQuoted(column)
	}
}

func (stmt *Statement) writeJoins(w *Wrapper) error {
	for _, join := range w.joins {
		stmt.SQL.WriteByte(' ')
		stmt.SQL.WriteString(join.kind)
		stmt.SQL.WriteByte(' ')
		stmt.WriteQuoted(join.table)
		stmt.SQL.WriteString(" ON ")
		if err := stmt.expandFragment(join.on, nil, w.params); err != nil {
			return err
		}
	}
	return nil
}

func (stmt *Statement) writeWhere(w *Wrapper) error {
	if len(w.conditions) == 0 {
		return nil
	}
	stmt.SQL.WriteString(" WHERE ")
	return stmt.writeConditions(w.conditions, w.params)
}

// writeConditions renders an ordered clause list. The first clause's
// connector is suppressed, at every nesting level.
func (stmt *Statement) writeConditions(conds []condition, named map[string]value.Value) error {
	for i, cond := range conds {
		if i > 0 {
			stmt.SQL.WriteByte(' ')
			stmt.SQL.WriteString(string(cond.connector))
			stmt.SQL.WriteByte(' ')
		}
		switch cond.kind {
		case condGroup:
			stmt.SQL.WriteByte('(')
			if err := stmt.writeConditions(cond.nested.conditions, cond.nested.params); err != nil {
				return err
			}
			stmt.SQL.WriteByte(')')
		case condRaw:
			if err := stmt.expandFragment(cond.raw, cond.values, named); err != nil {
				return err
			}
		default:
			if err := stmt.writePredicate(cond); err != nil {
				return err
			}
		}
	}
	return nil
}

func (stmt *Statement) writePredicate(cond condition) error {
	stmt.WriteQuoted(cond.column)
	stmt.SQL.WriteByte(' ')
	stmt.SQL.WriteString(string(cond.operator))

	switch cond.operator {
	case OpIsNull, OpIsNotNull:
		// no operand
	case OpIn, OpNotIn:
		if len(cond.values) == 0 {
			return ErrEmptyInList
		}
		stmt.SQL.WriteString(" (")
		for i, v := range cond.values {
			if i > 0 {
				stmt.SQL.WriteString(", ")
			}
			stmt.AddVar(v)
		}
		stmt.SQL.WriteByte(')')
	case OpBetween, OpNotBetween:
		stmt.SQL.WriteByte(' ')
		stmt.AddVar(cond.values[0])
		stmt.SQL.WriteString(" AND ")
		stmt.AddVar(cond.values[1])
	default:
		stmt.SQL.WriteByte(' ')
		stmt.AddVar(cond.values[0])
	}
	return nil
}

func (stmt *Statement) writeGroupHaving(w *Wrapper) error {
	if len(w.groupBy) > 0 {
		stmt.SQL.WriteString(" GROUP BY ")
		for i, column := range w.groupBy {
			if i > 0 {
				stmt.SQL.WriteString(", ")
			}
			stmt.WriteQuoted(column)
		}
	}
	if len(w.having) > 0 {
		stmt.SQL.WriteString(" HAVING ")
		for i, cond := range w.having {
			if i > 0 {
				stmt.SQL.WriteByte(' ')
				stmt.SQL.WriteString(string(cond.connector))
				stmt.SQL.WriteByte(' ')
			}
			// having expressions pass through verbatim, values still bind
			stmt.SQL.WriteString(cond.column)
			stmt.SQL.WriteByte(' ')
			stmt.SQL.WriteString(string(cond.operator))
			stmt.SQL.WriteByte(' ')
			stmt.AddVar(cond.values[0])
		}
	}
	return nil
}

func (stmt *Statement) writeOrderBy(w *Wrapper) {
	if len(w.orders) == 0 {
		return
	}
	stmt.SQL.WriteString(" ORDER BY ")
	for i, order := range w.orders {
		if i > 0 {
			stmt.SQL.WriteString(", ")
		}
		stmt.WriteQuoted(order.column)
		if order.desc {
			stmt.SQL.WriteString(" DESC")
		} else {
			stmt.SQL.WriteString(" ASC")
		}
	}
}

// expandFragment copies a raw fragment, rewriting `?` to dialect placeholders
// bound from positional and `:name` tokens bound from named. Quoted literals
// and `::` casts are left untouched.
func (stmt *Statement) expandFragment(sql string, positional []value.Value, named map[string]value.Value) error {
	var (
		inQuote bool
		posIdx  int
	)
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			stmt.SQL.WriteByte(c)
		case inQuote:
			stmt.SQL.WriteByte(c)
		case c == '?':
			if posIdx >= len(positional) {
				return ErrMalformedRaw
			}
			stmt.AddVar(positional[posIdx])
			posIdx++
		case c == ':' && i+1 < len(sql) && sql[i+1] == ':':
			stmt.SQL.WriteString("::")
			i++
		case c == ':' && i+1 < len(sql) && isNameStart(sql[i+1]):
			j := i + 1
			for j < len(sql) && isNameChar(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			v, ok := named[name]
			if !ok {
				return ErrMissingParam
			}
			stmt.AddVar(v)
			i = j - 1
		default:
			stmt.SQL.WriteByte(c)
		}
	}
	if posIdx != len(positional) {
		return ErrMalformedRaw
	}
	return nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
