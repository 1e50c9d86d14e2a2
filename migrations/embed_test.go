package migrations

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0002_b.up.sql": {Data: []byte("CREATE TABLE b (id INT)")},
		"0001_a.up.sql": {Data: []byte("CREATE TABLE a (id INT)")},
		"README.md":     {Data: []byte("ignored")},
	}
}

func expectExists(mock sqlmock.Sqlmock, version string, exists bool) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`)).
		WithArgs(version).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestApply(t *testing.T) {
	t.Run("applies pending files in name order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		expectExists(mock, "0001_a", true)
		expectExists(mock, "0002_b", false)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("0002_b").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		applied, err := apply(context.Background(), db, testFiles())
		require.NoError(t, err)
		assert.Equal(t, []string{"0002_b"}, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed file rolls back and stops", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		expectExists(mock, "0001_a", false)
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE a").WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		applied, err := apply(context.Background(), db, testFiles())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "0001_a")
		assert.Empty(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEmbeddedSchema(t *testing.T) {
	for _, name := range []string{"0001_identity.up.sql", "0002_enquiry.up.sql", "0003_audit.up.sql", "0004_enquiry_pending.up.sql"} {
		_, err := FS.ReadFile(name)
		assert.NoError(t, err, name)
	}
}
