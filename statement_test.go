package akita

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akita-go/akita/schema"
	"github.com/akita-go/akita/value"
)

func dialectFor(t *testing.T, name string) Dialect {
	t.Helper()
	d, ok := GetDialect(name)
	require.True(t, ok, "dialect %s not registered", name)
	return d
}

func render(t *testing.T, name string, w *Wrapper) (string, []interface{}) {
	t.Helper()
	stmt := NewStatement(dialectFor(t, name), nil)
	require.NoError(t, stmt.BuildSelect(w))
	return stmt.SQL.String(), stmt.Vars
}

func TestBuildSelectMySQL(t *testing.T) {
	w := NewWrapper().Table("users").
		Select("id", "name").
		Eq("status", 1).
		Gt("age", 18).
		OrderByDesc("id").
		Limit(10).Offset(20)

	sql, vars := render(t, "mysql", w)
	assert.Equal(t, "SELECT `id`, `name` FROM `users` WHERE `status` = ? AND `age` > ? ORDER BY `id` DESC LIMIT 10 OFFSET 20", sql)
	assert.Equal(t, []interface{}{int64(1), int64(18)}, vars)
}

func TestBuildSelectPostgresPlaceholders(t *testing.T) {
	w := NewWrapper().Table("users").
		Select("id").
		Eq("status", 1).
		In("role", "admin", "owner")

	sql, vars := render(t, "postgres", w)
	assert.Equal(t, `SELECT "id" FROM "users" WHERE "status" = $1 AND "role" IN ($2, $3)`, sql)
	assert.Equal(t, []interface{}{int64(1), "admin", "owner"}, vars)
}

func TestBuildSelectMSSQLPagination(t *testing.T) {
	w := NewWrapper().Table("users").Select("id").Limit(10).Offset(20)
	sql, _ := render(t, "mssql", w)
	assert.Equal(t, "SELECT [id] FROM [users] ORDER BY (SELECT NULL) OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY", sql)

	w = NewWrapper().Table("users").Select("id").OrderByAsc("id").Limit(10)
	sql, _ = render(t, "mssql", w)
	assert.Equal(t, "SELECT [id] FROM [users] ORDER BY [id] ASC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", sql)
}

func TestBuildSelectNestedGroups(t *testing.T) {
	w := NewWrapper().Table("users").
		Eq("status", 1).
		Or(func(or *Wrapper) {
			or.Eq("role", "admin").Or(func(inner *Wrapper) {
				inner.Eq("role", "owner")
			})
		})

	sql, vars := render(t, "mysql", w)
	assert.Equal(t, "SELECT * FROM `users` WHERE `status` = ? OR (`role` = ? OR (`role` = ?))", sql)
	assert.Len(t, vars, 3)
}

func TestBuildSelectBetweenAndNull(t *testing.T) {
	w := NewWrapper().Table("users").
		Between("age", 18, 60).
		IsNotNull("email")

	sql, vars := render(t, "mysql", w)
	assert.Equal(t, "SELECT * FROM `users` WHERE `age` BETWEEN ? AND ? AND `email` IS NOT NULL", sql)
	assert.Equal(t, []interface{}{int64(18), int64(60)}, vars)
}

func TestBuildSelectJoinsGroupHaving(t *testing.T) {
	w := NewWrapper().Table("orders").Alias("o").
		Select("o.user_id", "COUNT(*) cnt").
		LeftJoin("users", "users.id = o.user_id").
		GroupBy("o.user_id").
		Having("COUNT(*)", OpGt, 5)

	sql, vars := render(t, "mysql", w)
	assert.Equal(t, "SELECT `o`.`user_id`, COUNT(*) cnt FROM `orders` o LEFT JOIN `users` ON users.id = o.user_id GROUP BY `o`.`user_id` HAVING COUNT(*) > ?", sql)
	assert.Equal(t, []interface{}{int64(5)}, vars)
}

func TestBuildSelectRawFragment(t *testing.T) {
	w := NewWrapper().Table("users").
		Eq("status", 1).
		Apply("age BETWEEN ? AND ?", 18, 60)

	sql, vars := render(t, "postgres", w)
	assert.Equal(t, `SELECT * FROM "users" WHERE "status" = $1 AND age BETWEEN $2 AND $3`, sql)
	assert.Len(t, vars, 3)
}

func TestBuildSelectNamedParams(t *testing.T) {
	w := NewWrapper().Table("users").
		Apply("created_at > :since").
		SetParam("since", "2024-01-01")

	sql, vars := render(t, "mysql", w)
	assert.Equal(t, "SELECT * FROM `users` WHERE created_at > ?", sql)
	assert.Equal(t, []interface{}{"2024-01-01"}, vars)
}

func TestBuildSelectMissingNamedParam(t *testing.T) {
	w := NewWrapper().Table("users").Apply("created_at > :since")
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	assert.ErrorIs(t, stmt.BuildSelect(w), ErrMissingParam)
}

func TestBuildSelectPostgresCastPassthrough(t *testing.T) {
	w := NewWrapper().Table("users").Apply("payload::jsonb @> ?", `{"a":1}`)
	sql, _ := render(t, "postgres", w)
	assert.Equal(t, `SELECT * FROM "users" WHERE payload::jsonb @> $1`, sql)
}

func TestBuildSelectMissingTable(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	assert.ErrorIs(t, stmt.BuildSelect(NewWrapper()), ErrMissingTable)
}

func TestBuildSelectColumnsFromSchema(t *testing.T) {
	reg := schema.NewRegistry(nil)
	sch, err := reg.Parse(&testUser{})
	require.NoError(t, err)

	stmt := NewStatement(dialectFor(t, "mysql"), sch)
	require.NoError(t, stmt.BuildSelect(NewWrapper()))
	assert.Equal(t, "SELECT `id`, `name`, `age` FROM `test_users`", stmt.SQL.String())
}

func TestBuildCount(t *testing.T) {
	w := NewWrapper().Table("users").
		Eq("status", 1).
		OrderByDesc("id").
		Limit(10).Offset(20)

	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildCount(w))
	assert.Equal(t, "SELECT COUNT(*) FROM `users` WHERE `status` = ?", stmt.SQL.String())
	assert.Equal(t, []interface{}{int64(1)}, stmt.Vars)
}

func TestBuildCountGroupedUsesDerivedTable(t *testing.T) {
	w := NewWrapper().Table("orders").
		Select("user_id").
		GroupBy("user_id").
		OrderByAsc("user_id").
		Limit(10)

	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildCount(w))
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT `user_id` FROM `orders` GROUP BY `user_id`) akita_count", stmt.SQL.String())
}

func TestBuildUpdateFromSets(t *testing.T) {
	w := NewWrapper().Table("users").
		Set("name", "bob").
		Set("age", 30).
		Eq("id", 7)

	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildUpdate(w))
	assert.Equal(t, "UPDATE `users` SET `name` = ?, `age` = ? WHERE `id` = ?", stmt.SQL.String())
	assert.Equal(t, []interface{}{"bob", int64(30), int64(7)}, stmt.Vars)
}

func TestBuildUpdateWithoutSets(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	assert.ErrorIs(t, stmt.BuildUpdate(NewWrapper().Table("users")), ErrMalformedRaw)
}

func TestBuildDelete(t *testing.T) {
	w := NewWrapper().Table("users").In("id", 1, 2, 3)
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildDelete(w))
	assert.Equal(t, "DELETE FROM `users` WHERE `id` IN (?, ?, ?)", stmt.SQL.String())
}

func TestBuildInsertMultiRow(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	rows := [][]value.Value{
		{value.Text("a"), value.Int(1)},
		{value.Text("b"), value.Int(2)},
	}
	require.NoError(t, stmt.BuildInsert("users", []string{"name", "age"}, rows, ""))
	assert.Equal(t, "INSERT INTO `users` (`name`, `age`) VALUES (?, ?), (?, ?)", stmt.SQL.String())
	assert.Equal(t, []interface{}{"a", int64(1), "b", int64(2)}, stmt.Vars)
}

func TestBuildInsertReturning(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "postgres"), nil)
	rows := [][]value.Value{{value.Text("a")}}
	require.NoError(t, stmt.BuildInsert("users", []string{"name"}, rows, "id"))
	assert.Equal(t, `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`, stmt.SQL.String())
}

func TestBuildInsertReturningIgnoredWithoutSupport(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	rows := [][]value.Value{{value.Text("a")}}
	require.NoError(t, stmt.BuildInsert("users", []string{"name"}, rows, "id"))
	assert.Equal(t, "INSERT INTO `users` (`name`) VALUES (?)", stmt.SQL.String())
}

func TestBuildRawLeftoverPositional(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	err := stmt.BuildRaw("SELECT 1", []value.Value{value.Int(1)}, nil)
	assert.ErrorIs(t, err, ErrMalformedRaw)
}

func TestBuildRawQuotedLiteralUntouched(t *testing.T) {
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildRaw("SELECT * FROM users WHERE name = 'a?b'", nil, nil))
	assert.Equal(t, "SELECT * FROM users WHERE name = 'a?b'", stmt.SQL.String())
}

func TestBuildDeleteRendersTrailingRaw(t *testing.T) {
	w := NewWrapper().Table("users").Last("WHERE `id` = 1")
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildDelete(w))
	assert.Equal(t, "DELETE FROM `users` WHERE `id` = 1", stmt.SQL.String())
}

func TestBuildUpdateRendersTrailingRaw(t *testing.T) {
	w := NewWrapper().Table("users").
		Set("name", "bob").
		Last("WHERE `id` = 1")

	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildUpdate(w))
	assert.Equal(t, "UPDATE `users` SET `name` = ? WHERE `id` = 1", stmt.SQL.String())
	assert.Equal(t, []interface{}{"bob"}, stmt.Vars)
}

func TestBuildUpdateColumnsRendersTrailingRaw(t *testing.T) {
	w := NewWrapper().Table("users").Last("WHERE `id` = 1")
	stmt := NewStatement(dialectFor(t, "mysql"), nil)
	require.NoError(t, stmt.BuildUpdateColumns(w, []string{"name"}, []value.Value{value.Text("bob")}))
	assert.Equal(t, "UPDATE `users` SET `name` = ? WHERE `id` = 1", stmt.SQL.String())
}

func TestWriteQuotedPassthrough(t *testing.T) {
	sql, _ := render(t, "mysql", NewWrapper().Table("users").Select("COUNT(*)", "`users`.`name`", "u.age"))
	assert.Equal(t, "SELECT COUNT(*), `users`.`name`, `u`.`age` FROM `users`", sql)
}
