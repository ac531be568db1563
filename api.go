package akita

import (
	"context"
	"fmt"
	"reflect"

	"github.com/akita-go/akita/schema"
	"github.com/akita-go/akita/value"
)

// The entry points are package-level generic functions because Go methods
// cannot carry type parameters. Each takes a Session, so the same call runs
// against an *Akita or inside a *Tx.

func schemaFor[T any](s Session) (*schema.Schema, error) {
	var model T
	return s.registry().Parse(&model)
}

func runQuery(ctx context.Context, s Session, op OperationType, stmt *Statement) (*execResult, error) {
	ec := newExecuteContext(ctx, op, stmt.SQL.String(), stmt.Vars)
	return s.dispatch(ec, true)
}

func runExec(ctx context.Context, s Session, op OperationType, stmt *Statement) (*execResult, error) {
	ec := newExecuteContext(ctx, op, stmt.SQL.String(), stmt.Vars)
	return s.dispatch(ec, false)
}

func decodeRows[T any](sch *schema.Schema, res *execResult) ([]T, error) {
	out := make([]T, 0, len(res.rows))
	for _, row := range res.rows {
		var entity T
		rv := reflect.ValueOf(&entity).Elem()
		for i, column := range res.columns {
			field := sch.LookUpField(column)
			if field == nil || !field.Exists {
				continue
			}
			if err := row[i].Assign(field.ValueOf(rv)); err != nil {
				return nil, err
			}
		}
		out = append(out, entity)
	}
	return out, nil
}

// List runs the wrapper's query and decodes every row into T.
func List[T any](ctx context.Context, s Session, w *Wrapper) ([]T, error) {
	sch, err := schemaFor[T](s)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = NewWrapper()
	}
	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildSelect(w); err != nil {
		return nil, err
	}
	res, err := runQuery(ctx, s, OpSelect, stmt)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](sch, res)
}

// First returns the first matching row, ErrRecordNotFound when none matches.
func First[T any](ctx context.Context, s Session, w *Wrapper) (T, error) {
	var zero T
	if w == nil {
		w = NewWrapper()
	}
	limited := w.clone()
	limited.Limit(1)
	records, err := List[T](ctx, s, limited)
	if err != nil {
		return zero, err
	}
	if len(records) == 0 {
		return zero, ErrRecordNotFound
	}
	return records[0], nil
}

// SelectByID fetches one entity by primary key.
func SelectByID[T any](ctx context.Context, s Session, id interface{}) (T, error) {
	var zero T
	sch, err := schemaFor[T](s)
	if err != nil {
		return zero, err
	}
	if sch.PrimaryField == nil {
		return zero, ErrPrimaryKeyRequired
	}
	return First[T](ctx, s, NewWrapper().Eq(sch.PrimaryField.DBName, id))
}

// Count runs the wrapper's count query.
func Count[T any](ctx context.Context, s Session, w *Wrapper) (int64, error) {
	sch, err := schemaFor[T](s)
	if err != nil {
		return 0, err
	}
	if w == nil {
		w = NewWrapper()
	}
	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildCount(w); err != nil {
		return 0, err
	}
	res, err := runQuery(ctx, s, OpSelect, stmt)
	if err != nil {
		return 0, err
	}
	if len(res.rows) == 0 || len(res.rows[0]) == 0 {
		return 0, nil
	}
	return res.rows[0][0].AsInt64()
}

// Page runs a count query for the wrapper, then fetches the requested page.
// page numbers start at 1, out-of-range values are normalized. size 0 skips
// the data query entirely and returns only totals.
func Page[T any](ctx context.Context, s Session, page, size int64, w *Wrapper) (*IPage[T], error) {
	if page < 1 {
		page = 1
	}
	if size < 0 {
		size = 0
	}
	if w == nil {
		w = NewWrapper()
	}

	total, err := Count[T](ctx, s, w)
	if err != nil {
		return nil, err
	}

	records := []T{}
	if size > 0 && total > 0 {
		limited := w.clone()
		limited.Limit(size).Offset((page - 1) * size)
		records, err = List[T](ctx, s, limited)
		if err != nil {
			return nil, err
		}
	}
	return newPage(page, size, total, records), nil
}

func applyFill(sch *schema.Schema, rv reflect.Value, on schema.FillPolicy) error {
	for _, field := range sch.Fields {
		if field.FillFunc == nil {
			continue
		}
		if field.FillPolicy != on && field.FillPolicy != schema.FillInsertUpdate {
			continue
		}
		if !field.IsZero(rv) {
			continue
		}
		if err := value.ToValue(field.FillFunc()).Assign(field.ValueOf(rv)); err != nil {
			return err
		}
	}
	return nil
}

func insertColumns(sch *schema.Schema, skipAuto bool) []string {
	columns := make([]string, 0, len(sch.Fields))
	for _, field := range sch.Fields {
		if !field.Exists {
			continue
		}
		if skipAuto && field.AutoIncrement {
			continue
		}
		columns = append(columns, field.DBName)
	}
	return columns
}

func rowValues(sch *schema.Schema, rv reflect.Value, columns []string) []value.Value {
	vals := make([]value.Value, len(columns))
	for i, column := range columns {
		field := sch.FieldsByDBName[column]
		vals[i] = value.ToValue(field.ValueOf(rv).Interface())
	}
	return vals
}

// Save inserts one entity. A zero auto-increment primary key is omitted from
// the column list and written back from the generated key, via RETURNING on
// dialects that support it and LastInsertId elsewhere.
func Save[T any](ctx context.Context, s Session, entity *T) error {
	sch, err := s.registry().Parse(entity)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(entity).Elem()
	if err := applyFill(sch, rv, schema.FillInsert); err != nil {
		return err
	}

	auto := sch.PrimaryField != nil && sch.PrimaryField.AutoIncrement
	skipAuto := auto && sch.PrimaryField.IsZero(rv)
	columns := insertColumns(sch, skipAuto)
	vals := rowValues(sch, rv, columns)

	returning := ""
	if skipAuto && s.dialector().SupportsReturning() {
		returning = sch.PrimaryField.DBName
	}

	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildInsert(sch.Table, columns, [][]value.Value{vals}, returning); err != nil {
		return err
	}

	if returning != "" {
		res, err := runQuery(ctx, s, OpInsert, stmt)
		if err != nil {
			return err
		}
		if len(res.rows) > 0 && len(res.rows[0]) > 0 {
			return res.rows[0][0].Assign(sch.PrimaryField.ValueOf(rv))
		}
		return nil
	}

	res, err := runExec(ctx, s, OpInsert, stmt)
	if err != nil {
		return err
	}
	if skipAuto && res.hasInsertID && res.lastInsertID != 0 && s.dialector().SupportsLastInsertID() {
		return value.Int(res.lastInsertID).Assign(sch.PrimaryField.ValueOf(rv))
	}
	return nil
}

// SaveBatch inserts all entities with one multi-row statement. Auto-increment
// keys are always generated by the database here; there is no key writeback.
func SaveBatch[T any](ctx context.Context, s Session, entities []*T) (int64, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	sch, err := s.registry().Parse(entities[0])
	if err != nil {
		return 0, err
	}
	columns := insertColumns(sch, true)
	rows := make([][]value.Value, 0, len(entities))
	for _, entity := range entities {
		rv := reflect.ValueOf(entity).Elem()
		if err := applyFill(sch, rv, schema.FillInsert); err != nil {
			return 0, err
		}
		rows = append(rows, rowValues(sch, rv, columns))
	}

	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildInsert(sch.Table, columns, rows, ""); err != nil {
		return 0, err
	}
	res, err := runExec(ctx, s, OpInsert, stmt)
	if err != nil {
		return 0, err
	}
	return res.rowsAffected, nil
}

// SaveOrUpdate inserts when the primary key is zero, updates by primary key
// otherwise.
func SaveOrUpdate[T any](ctx context.Context, s Session, entity *T) error {
	sch, err := s.registry().Parse(entity)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(entity).Elem()
	if sch.PrimaryField == nil || sch.PrimaryField.IsZero(rv) {
		return Save(ctx, s, entity)
	}
	_, err = UpdateByID(ctx, s, entity)
	return err
}

// Update writes the entity's non-zero fields, plus any explicit Set clauses
// on the wrapper, to every row the wrapper matches. Zero fields are treated
// as unset; use Set to force a column to its zero value. An unconditioned
// wrapper is rejected rather than updating the whole table.
func Update[T any](ctx context.Context, s Session, entity *T, w *Wrapper) (int64, error) {
	sch, err := s.registry().Parse(entity)
	if err != nil {
		return 0, err
	}
	if w == nil || (len(w.conditions) == 0 && w.lastSQL == "") {
		return 0, ErrMissingWhereClause
	}
	rv := reflect.ValueOf(entity).Elem()
	if err := applyFill(sch, rv, schema.FillUpdate); err != nil {
		return 0, err
	}

	explicit := make(map[string]bool, len(w.sets))
	for _, set := range w.sets {
		explicit[set.column] = true
	}

	var columns []string
	var vals []value.Value
	for _, field := range sch.Fields {
		if !field.Exists || field.PrimaryKey || explicit[field.DBName] || field.IsZero(rv) {
			continue
		}
		columns = append(columns, field.DBName)
		vals = append(vals, value.ToValue(field.ValueOf(rv).Interface()))
	}
	for _, set := range w.sets {
		columns = append(columns, set.column)
		vals = append(vals, set.value)
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("%w: update without assignments", ErrSQLBuild)
	}

	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildUpdateColumns(w, columns, vals); err != nil {
		return 0, err
	}
	res, err := runExec(ctx, s, OpUpdate, stmt)
	if err != nil {
		return 0, err
	}
	return res.rowsAffected, nil
}

// UpdateByID writes the entity's non-zero fields to the row matching its
// primary key.
func UpdateByID[T any](ctx context.Context, s Session, entity *T) (int64, error) {
	sch, err := s.registry().Parse(entity)
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(entity).Elem()
	if sch.PrimaryField == nil || sch.PrimaryField.IsZero(rv) {
		return 0, ErrPrimaryKeyRequired
	}
	if err := applyFill(sch, rv, schema.FillUpdate); err != nil {
		return 0, err
	}

	var columns []string
	var vals []value.Value
	for _, field := range sch.Fields {
		if !field.Exists || field.PrimaryKey || field.IsZero(rv) {
			continue
		}
		columns = append(columns, field.DBName)
		vals = append(vals, value.ToValue(field.ValueOf(rv).Interface()))
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("%w: update without assignments", ErrSQLBuild)
	}

	w := NewWrapper().Eq(sch.PrimaryField.DBName, sch.PrimaryField.ValueOf(rv).Interface())
	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildUpdateColumns(w, columns, vals); err != nil {
		return 0, err
	}
	res, err := runExec(ctx, s, OpUpdate, stmt)
	if err != nil {
		return 0, err
	}
	return res.rowsAffected, nil
}

// UpdateBatchByID updates every entity by its primary key, one statement per
// entity, and returns the summed affected count. Run it inside a transaction
// when the batch must be atomic.
func UpdateBatchByID[T any](ctx context.Context, s Session, entities []*T) (int64, error) {
	var total int64
	for _, entity := range entities {
		n, err := UpdateByID(ctx, s, entity)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Remove deletes every row the wrapper matches. An unconditioned wrapper is
// rejected rather than emptying the table.
func Remove[T any](ctx context.Context, s Session, w *Wrapper) (int64, error) {
	sch, err := schemaFor[T](s)
	if err != nil {
		return 0, err
	}
	if w == nil || (len(w.conditions) == 0 && w.lastSQL == "") {
		return 0, ErrMissingWhereClause
	}
	stmt := NewStatement(s.dialector(), sch)
	if err := stmt.BuildDelete(w); err != nil {
		return 0, err
	}
	res, err := runExec(ctx, s, OpDelete, stmt)
	if err != nil {
		return 0, err
	}
	return res.rowsAffected, nil
}

// RemoveByID deletes one row by primary key.
func RemoveByID[T any](ctx context.Context, s Session, id interface{}) (int64, error) {
	sch, err := schemaFor[T](s)
	if err != nil {
		return 0, err
	}
	if sch.PrimaryField == nil {
		return 0, ErrPrimaryKeyRequired
	}
	return Remove[T](ctx, s, NewWrapper().Eq(sch.PrimaryField.DBName, id))
}

// RemoveByIDs deletes all rows whose primary key is in ids. An empty id list
// is an error, never a full-table delete.
func RemoveByIDs[T any](ctx context.Context, s Session, ids ...interface{}) (int64, error) {
	sch, err := schemaFor[T](s)
	if err != nil {
		return 0, err
	}
	if sch.PrimaryField == nil {
		return 0, ErrPrimaryKeyRequired
	}
	return Remove[T](ctx, s, NewWrapper().In(sch.PrimaryField.DBName, ids...))
}

// Rows is the untyped result of a raw query.
type Rows struct {
	Columns []string
	Data    [][]value.Value
}

// Row is one raw result row keyed by column name.
type Row map[string]value.Value

func splitRawArgs(args []interface{}) ([]value.Value, map[string]value.Value) {
	if len(args) == 1 {
		if m, ok := args[0].(map[string]interface{}); ok {
			named := make(map[string]value.Value, len(m))
			for k, v := range m {
				named[k] = value.ToValue(v)
			}
			return nil, named
		}
	}
	return value.ToValues(args), nil
}

func execRawQuery(ctx context.Context, s Session, sqlStr string, args []interface{}) (*Rows, error) {
	positional, named := splitRawArgs(args)
	stmt := NewStatement(s.dialector(), nil)
	if err := stmt.BuildRaw(sqlStr, positional, named); err != nil {
		return nil, err
	}
	res, err := runQuery(ctx, s, OpRaw, stmt)
	if err != nil {
		return nil, err
	}
	return &Rows{Columns: res.columns, Data: res.rows}, nil
}

func execRawFirst(ctx context.Context, s Session, sqlStr string, args []interface{}) (Row, error) {
	rows, err := execRawQuery(ctx, s, sqlStr, args)
	if err != nil {
		return nil, err
	}
	if len(rows.Data) == 0 {
		return nil, ErrRecordNotFound
	}
	row := make(Row, len(rows.Columns))
	for i, column := range rows.Columns {
		row[column] = rows.Data[0][i]
	}
	return row, nil
}

func execRawDrop(ctx context.Context, s Session, sqlStr string, args []interface{}) (int64, error) {
	positional, named := splitRawArgs(args)
	stmt := NewStatement(s.dialector(), nil)
	if err := stmt.BuildRaw(sqlStr, positional, named); err != nil {
		return 0, err
	}
	res, err := runExec(ctx, s, OpRaw, stmt)
	if err != nil {
		return 0, err
	}
	return res.rowsAffected, nil
}

// ExecRaw runs a raw query and returns every row. Parameters are positional
// `?` args, or one map[string]interface{} bound to `:name` tokens.
func (a *Akita) ExecRaw(ctx context.Context, sql string, args ...interface{}) (*Rows, error) {
	return execRawQuery(ctx, a, sql, args)
}

// ExecFirst runs a raw query and returns the first row, ErrRecordNotFound
// when the result is empty.
func (a *Akita) ExecFirst(ctx context.Context, sql string, args ...interface{}) (Row, error) {
	return execRawFirst(ctx, a, sql, args)
}

// ExecDrop runs a raw statement and returns the affected row count.
func (a *Akita) ExecDrop(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	return execRawDrop(ctx, a, sql, args)
}

// ExecRaw runs a raw query on the transaction's connection.
func (tx *Tx) ExecRaw(ctx context.Context, sql string, args ...interface{}) (*Rows, error) {
	return execRawQuery(ctx, tx, sql, args)
}

// ExecFirst runs a raw query on the transaction's connection and returns the
// first row.
func (tx *Tx) ExecFirst(ctx context.Context, sql string, args ...interface{}) (Row, error) {
	return execRawFirst(ctx, tx, sql, args)
}

// ExecDrop runs a raw statement on the transaction's connection.
func (tx *Tx) ExecDrop(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	return execRawDrop(ctx, tx, sql, args)
}
