package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingxuan-bi/report-service/internal/config"
)

func mockConnector(t *testing.T) (*MySQLConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := NewMySQLConnector(config.DatabaseConfig{Host: "localhost", Port: "3306", Database: "report"})
	c.db = db
	return c, mock
}

func TestMySQLQueryPreservesColumnOrder(t *testing.T) {
	c, mock := mockConnector(t)

	queried := time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT").
		WithArgs("2025-08-01").
		WillReturnRows(sqlmock.NewRows([]string{"订单号", "门店编码", "下单时间"}).
			AddRow("DD001", []byte("1001"), queried))

	result, err := c.Query(context.Background(), "SELECT 1 FROM t_order WHERE create_time >= ?", []interface{}{"2025-08-01"})
	require.NoError(t, err)

	assert.Equal(t, []string{"订单号", "门店编码", "下单时间"}, result.Columns)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "DD001", result.Data[0]["订单号"])
	// Byte slices become strings, timestamps become display strings.
	assert.Equal(t, "1001", result.Data[0]["门店编码"])
	assert.Equal(t, "2025-08-01 10:30:00", result.Data[0]["下单时间"])
	assert.Equal(t, int64(1), result.AffectedRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLQueryRetriesDeadlockOnce(t *testing.T) {
	c, mock := mockConnector(t)

	mock.ExpectQuery("SELECT").WillReturnError(&mysql.MySQLError{Number: errCodeDeadlock, Message: "deadlock"})
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(int64(1)))

	result, err := c.Query(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLQueryDoesNotRetryTwice(t *testing.T) {
	c, mock := mockConnector(t)

	mock.ExpectQuery("SELECT").WillReturnError(&mysql.MySQLError{Number: errCodeDeadlock, Message: "deadlock"})
	mock.ExpectQuery("SELECT").WillReturnError(&mysql.MySQLError{Number: errCodeDeadlock, Message: "deadlock"})

	_, err := c.Query(context.Background(), "SELECT 1", nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLQueryEmptyResult(t *testing.T) {
	c, mock := mockConnector(t)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"total"}))

	result, err := c.Query(context.Background(), "SELECT COUNT(*) AS total FROM t_order", nil)
	require.NoError(t, err)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Data)
	assert.Equal(t, []string{"total"}, result.Columns)
}

func TestTruncateSQL(t *testing.T) {
	long := make([]byte, logSQLMaxLen+50)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, truncateSQL(string(long)), logSQLMaxLen+3)
	assert.Equal(t, "SELECT 1", truncateSQL("SELECT 1"))
}
