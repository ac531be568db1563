package akita

import (
	"github.com/akita-go/akita/value"
)

// Op is a predicate operator usable with Having.
type Op string

// Predicate operators.
const (
	OpEq         Op = "="
	OpNe         Op = "!="
	OpGt         Op = ">"
	OpGe         Op = ">="
	OpLt         Op = "<"
	OpLe         Op = "<="
	OpLike       Op = "LIKE"
	OpNotLike    Op = "NOT LIKE"
	OpIn         Op = "IN"
	OpNotIn      Op = "NOT IN"
	OpIsNull     Op = "IS NULL"
	OpIsNotNull  Op = "IS NOT NULL"
	OpBetween    Op = "BETWEEN"
	OpNotBetween Op = "NOT BETWEEN"
)

func (op Op) isNullCheck() bool { return op == OpIsNull || op == OpIsNotNull }

type connector string

const (
	connAnd connector = "AND"
	connOr  connector = "OR"
)

type condKind int

const (
	condPredicate condKind = iota
	condGroup
	condRaw
)

// condition is one WHERE / HAVING clause node. Nodes keep the order in which
// the builder calls were issued.
type condition struct {
	kind      condKind
	connector connector
	column    string
	operator  Op
	values    []value.Value
	raw       string   // condRaw: fragment passed through verbatim
	nested    *Wrapper // condGroup: parenthesized sub-expression
}

type orderByClause struct {
	column string
	desc   bool
}

type joinClause struct {
	kind  string // "INNER JOIN", "LEFT JOIN", "RIGHT JOIN"
	table string
	on    string
}

type assignment struct {
	column string
	value  value.Value
}

// Wrapper is the fluent condition builder. Every builder call appends exactly
// one clause and returns the same builder, so rendered clause order always
// equals call order. A Wrapper is not safe for concurrent use.
type Wrapper struct {
	table      string
	alias      string
	selects    []string
	distinct   bool
	joins      []joinClause
	conditions []condition
	groupBy    []string
	having     []condition
	orders     []orderByClause
	limit      *int64
	offset     *int64
	sets       []assignment
	params     map[string]value.Value
	lastSQL    string

	skipNext bool
	err      error
}

// NewWrapper creates an empty condition builder.
func NewWrapper() *Wrapper {
	return &Wrapper{}
}

// Err returns the first build error recorded while chaining, if any.
func (w *Wrapper) Err() error {
	return w.err
}

func (w *Wrapper) addError(err error) {
	if w.err == nil {
		w.err = err
	}
}

// take consumes the When gate for the next clause.
func (w *Wrapper) take() bool {
	if w.skipNext {
		w.skipNext = false
		return false
	}
	return true
}

// When gates the next clause-appending call: if cond is false the next call is
// skipped entirely, no empty clause is emitted. Lets callers include filters
// conditionally without branching.
func (w *Wrapper) When(cond bool) *Wrapper {
	w.skipNext = !cond
	return w
}

// Unless is the negation of When.
func (w *Wrapper) Unless(cond bool) *Wrapper {
	return w.When(!cond)
}

// Table sets the target table, overriding the entity schema's table name.
func (w *Wrapper) Table(table string) *Wrapper {
	w.table = table
	return w
}

// Alias sets the table alias.
func (w *Wrapper) Alias(alias string) *Wrapper {
	w.alias = alias
	return w
}

// Select restricts the selected columns.
func (w *Wrapper) Select(columns ...string) *Wrapper {
	w.selects = columns
	return w
}

// SelectDistinct restricts the selected columns and adds DISTINCT.
func (w *Wrapper) SelectDistinct(columns ...string) *Wrapper {
	w.selects = columns
	w.distinct = true
	return w
}

// Last appends a raw fragment after every rendered clause.
func (w *Wrapper) Last(sql string) *Wrapper {
	w.lastSQL = sql
	return w
}

func (w *Wrapper) appendPredicate(column string, op Op, vals ...value.Value) *Wrapper {
	w.conditions = append(w.conditions, condition{
		kind:      condPredicate,
		connector: connAnd,
		column:    column,
		operator:  op,
		values:    vals,
	})
	return w
}

func (w *Wrapper) addCondition(column string, op Op, vals ...value.Value) *Wrapper {
	if !w.take() {
		return w
	}
	return w.appendPredicate(column, op, vals...)
}

// Eq appends `column = ?`.
func (w *Wrapper) Eq(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpEq, value.ToValue(v))
}

// Ne appends `column != ?`.
func (w *Wrapper) Ne(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpNe, value.ToValue(v))
}

// Gt appends `column > ?`.
func (w *Wrapper) Gt(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpGt, value.ToValue(v))
}

// Ge appends `column >= ?`.
func (w *Wrapper) Ge(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpGe, value.ToValue(v))
}

// Lt appends `column < ?`.
func (w *Wrapper) Lt(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpLt, value.ToValue(v))
}

// Le appends `column <= ?`.
func (w *Wrapper) Le(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpLe, value.ToValue(v))
}

// Like appends `column LIKE ?`.
func (w *Wrapper) Like(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpLike, value.ToValue(v))
}

// NotLike appends `column NOT LIKE ?`.
func (w *Wrapper) NotLike(column string, v interface{}) *Wrapper {
	return w.addCondition(column, OpNotLike, value.ToValue(v))
}

// IsNull appends `column IS NULL`.
func (w *Wrapper) IsNull(column string) *Wrapper {
	return w.addCondition(column, OpIsNull)
}

// IsNotNull appends `column IS NOT NULL`.
func (w *Wrapper) IsNotNull(column string) *Wrapper {
	return w.addCondition(column, OpIsNotNull)
}

// In appends `column IN (?, ...)`. An empty value set is a build error, it is
// never rendered as `IN ()`.
func (w *Wrapper) In(column string, vals ...interface{}) *Wrapper {
	if !w.take() {
		return w
	}
	if len(vals) == 0 {
		w.addError(ErrEmptyInList)
		return w
	}
	return w.appendPredicate(column, OpIn, value.ToValues(vals)...)
}

// NotIn appends `column NOT IN (?, ...)`. An empty value set is a build error.
func (w *Wrapper) NotIn(column string, vals ...interface{}) *Wrapper {
	if !w.take() {
		return w
	}
	if len(vals) == 0 {
		w.addError(ErrEmptyInList)
		return w
	}
	return w.appendPredicate(column, OpNotIn, value.ToValues(vals)...)
}

// Between appends `column BETWEEN ? AND ?`.
func (w *Wrapper) Between(column string, start, end interface{}) *Wrapper {
	return w.addCondition(column, OpBetween, value.ToValue(start), value.ToValue(end))
}

// NotBetween appends `column NOT BETWEEN ? AND ?`.
func (w *Wrapper) NotBetween(column string, start, end interface{}) *Wrapper {
	return w.addCondition(column, OpNotBetween, value.ToValue(start), value.ToValue(end))
}

func (w *Wrapper) addGroup(conn connector, fn func(*Wrapper)) *Wrapper {
	if !w.take() {
		return w
	}
	nested := NewWrapper()
	fn(nested)
	if nested.err != nil {
		w.addError(nested.err)
	}
	if len(nested.conditions) == 0 {
		return w
	}
	w.conditions = append(w.conditions, condition{
		kind:      condGroup,
		connector: conn,
		nested:    nested,
	})
	return w
}

// And appends a parenthesized sub-expression joined with AND. The callback
// receives a fresh nested builder scoped to that group.
func (w *Wrapper) And(fn func(*Wrapper)) *Wrapper {
	return w.addGroup(connAnd, fn)
}

// Or appends a parenthesized sub-expression joined with OR.
func (w *Wrapper) Or(fn func(*Wrapper)) *Wrapper {
	return w.addGroup(connOr, fn)
}

// Apply appends a raw fragment. `?` placeholders inside the fragment bind the
// given args in order; the values themselves are never inlined.
func (w *Wrapper) Apply(sql string, args ...interface{}) *Wrapper {
	if !w.take() {
		return w
	}
	if countPlaceholders(sql) != len(args) {
		w.addError(ErrMalformedRaw)
		return w
	}
	w.conditions = append(w.conditions, condition{
		kind:      condRaw,
		connector: connAnd,
		raw:       sql,
		values:    value.ToValues(args),
	})
	return w
}

// SetParam records a named parameter for `:name` tokens in raw fragments.
func (w *Wrapper) SetParam(name string, v interface{}) *Wrapper {
	if w.params == nil {
		w.params = map[string]value.Value{}
	}
	w.params[name] = value.ToValue(v)
	return w
}

// InnerJoin appends an INNER JOIN.
func (w *Wrapper) InnerJoin(table, on string) *Wrapper {
	return w.addJoin("INNER JOIN", table, on)
}

// LeftJoin appends a LEFT JOIN.
func (w *Wrapper) LeftJoin(table, on string) *Wrapper {
	return w.addJoin("LEFT JOIN", table, on)
}

// RightJoin appends a RIGHT JOIN.
func (w *Wrapper) RightJoin(table, on string) *Wrapper {
	return w.addJoin("RIGHT JOIN", table, on)
}

func (w *Wrapper) addJoin(kind, table, on string) *Wrapper {
	if !w.take() {
		return w
	}
	w.joins = append(w.joins, joinClause{kind: kind, table: table, on: on})
	return w
}

// GroupBy appends grouping columns.
func (w *Wrapper) GroupBy(columns ...string) *Wrapper {
	if !w.take() {
		return w
	}
	w.groupBy = append(w.groupBy, columns...)
	return w
}

// Having appends a HAVING condition. expr is rendered verbatim, the value is
// bound as a parameter.
func (w *Wrapper) Having(expr string, op Op, v interface{}) *Wrapper {
	if !w.take() {
		return w
	}
	w.having = append(w.having, condition{
		kind:      condPredicate,
		connector: connAnd,
		column:    expr,
		operator:  op,
		values:    []value.Value{value.ToValue(v)},
	})
	return w
}

// OrderByAsc appends ascending ordering columns.
func (w *Wrapper) OrderByAsc(columns ...string) *Wrapper {
	return w.addOrderBy(false, columns)
}

// OrderByDesc appends descending ordering columns.
func (w *Wrapper) OrderByDesc(columns ...string) *Wrapper {
	return w.addOrderBy(true, columns)
}

func (w *Wrapper) addOrderBy(desc bool, columns []string) *Wrapper {
	if !w.take() {
		return w
	}
	for _, column := range columns {
		w.orders = append(w.orders, orderByClause{column: column, desc: desc})
	}
	return w
}

// Limit sets the row limit.
func (w *Wrapper) Limit(n int64) *Wrapper {
	w.limit = &n
	return w
}

// Offset sets the row offset.
func (w *Wrapper) Offset(n int64) *Wrapper {
	w.offset = &n
	return w
}

// Page sets limit/offset from a 1-based page number and page size.
func (w *Wrapper) Page(page, size int64) *Wrapper {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * size
	w.limit = &size
	w.offset = &offset
	return w
}

// Set records a column assignment for UPDATE statements.
func (w *Wrapper) Set(column string, v interface{}) *Wrapper {
	if !w.take() {
		return w
	}
	w.sets = append(w.sets, assignment{column: column, value: value.ToValue(v)})
	return w
}

// clone returns a shallow copy sharing the immutable clause slices, used by
// the pagination engine to derive the COUNT variant.
func (w *Wrapper) clone() *Wrapper {
	dup := *w
	return &dup
}

func countPlaceholders(sql string) (n int) {
	inQuote := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote:
			n++
		}
	}
	return
}
