package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/testutil"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db, "pgx"), mock
}

func TestRun_ReadQueriesRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT * FROM item WHERE name = $1 LIMIT $2 OFFSET $3").
		WithArgs("bolt", int64(10), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("1", []byte("bolt")))

	plan := queryir.NewRead(testutil.Item()).
		Where(queryir.Text("name").Eq("bolt")).
		Page(queryir.Page(0, 10)).
		MustBuild()
	res, err := Run(context.Background(), s, plan)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, Row{"id": "1", "name": "bolt"}, res.Rows[0])
}

func TestRun_ExistsScansBool(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS(SELECT 1 FROM soft_item WHERE deleted_at IS NULL LIMIT $1 OFFSET $2)").
		WithArgs(int64(1), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	res, err := Run(context.Background(), s, queryir.NewRead(testutil.SoftItem()).Exists().MustBuild())
	require.NoError(t, err)
	require.NotNil(t, res.Exists)
	assert.True(t, *res.Exists)
}

func TestRun_SoftDeleteExecs(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE soft_item SET deleted_at = NOW() WHERE name = $1").
		WithArgs("x").
		WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := Run(context.Background(), s, queryir.NewDelete(testutil.SoftItem()).
		Where(queryir.Text("name").Eq("x")).MustBuild())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)
}

func TestRun_UpdateReturningQueries(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("UPDATE item SET updated_at = NOW(), name = $1 RETURNING id").
		WithArgs("nut").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("1").AddRow("2"))

	res, err := Run(context.Background(), s, queryir.NewUpdate(testutil.Item()).
		Set(map[string]any{"name": "nut"}).Returning("id").MustBuild())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)
	assert.Len(t, res.Rows, 2)
}

func TestRun_DriverErrorsAreWrapped(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("DELETE FROM item").WillReturnError(boom)

	_, err := Run(context.Background(), s, queryir.NewDelete(testutil.Item()).MustBuild())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "exec statement")
}

func TestRun_CompileErrorSkipsDatabase(t *testing.T) {
	s, _ := newMockStore(t)
	plan := &queryir.Read{
		Entity: testutil.Item(),
		Filter: queryir.Text("name").Via(queryir.PathOf(testutil.ItemMaterial)).Eq("x"),
	}
	_, err := Run(context.Background(), s, plan)
	require.Error(t, err)
	assert.True(t, queryir.HasCode(err, queryir.ErrCodeUndeclaredJoin))
}
