package database

import (
	"context"

	"github.com/jingxuan-bi/report-service/internal/models"
)

// Connector is the uniform contract over heterogeneous backends: the
// pooled MySQL-wire primary and the task-submission secondary both
// execute a statement and answer with the same QueryResult shape.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Query(ctx context.Context, sql string, params []interface{}) (*models.QueryResult, error)
	TestConnection(ctx context.Context) bool
	ConnectionInfo() string
}

// Kind identifies a connector type in the manager's registry and in
// health-check responses.
type Kind string

const (
	KindOceanBase Kind = "oceanbase"
	KindDataWorks Kind = "dataworks"
)

const (
	// Queries slower than this are logged as warnings.
	slowQueryThresholdMs = 1000

	// SQL text is truncated to this length in log fields. Parameter
	// values are never logged, only their count.
	logSQLMaxLen = 200
)

func truncateSQL(sql string) string {
	if len(sql) > logSQLMaxLen {
		return sql[:logSQLMaxLen] + "..."
	}
	return sql
}
