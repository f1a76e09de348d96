package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/models"
)

// MySQL server error codes the connector reacts to.
const (
	errCodeDeadlock       = 1213
	errCodeServerShutdown = 1053
)

// MySQLConnector wraps a bounded connection pool to the OceanBase
// primary (MySQL wire protocol). database/sql handles acquire/release;
// the connector adds deadlock and server-shutdown retry semantics plus
// slow-query logging.
type MySQLConnector struct {
	cfg config.DatabaseConfig

	mu sync.Mutex
	db *sql.DB
}

func NewMySQLConnector(cfg config.DatabaseConfig) *MySQLConnector {
	return &MySQLConnector{cfg: cfg}
}

func (c *MySQLConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *MySQLConnector) connectLocked(ctx context.Context) error {
	if c.db != nil {
		return nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=Local&timeout=%s",
		c.cfg.Username, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.Database, c.cfg.ConnectTimeout)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql pool: %w", err)
	}

	db.SetMaxOpenConns(c.cfg.ConnectionLimit)
	db.SetMaxIdleConns(c.cfg.ConnectionLimit)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to %s:%s: %w", c.cfg.Host, c.cfg.Port, err)
	}

	c.db = db
	log.Info().
		Str("host", c.cfg.Host).
		Str("port", c.cfg.Port).
		Str("database", c.cfg.Database).
		Int("connectionLimit", c.cfg.ConnectionLimit).
		Msg("Connected to OceanBase")
	return nil
}

func (c *MySQLConnector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *MySQLConnector) Query(ctx context.Context, sqlText string, params []interface{}) (*models.QueryResult, error) {
	return c.query(ctx, sqlText, params, false)
}

func (c *MySQLConnector) query(ctx context.Context, sqlText string, params []interface{}, retried bool) (*models.QueryResult, error) {
	start := time.Now()

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	db := c.db
	c.mu.Unlock()

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout(ctx))
	defer cancel()

	rows, err := db.QueryContext(queryCtx, sqlText, params...)
	if err != nil {
		duration := time.Since(start)
		c.logQuery(sqlText, len(params), duration, false)

		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && !retried {
			switch myErr.Number {
			case errCodeDeadlock:
				log.Warn().Msg("Deadlock detected, retrying query once")
				time.Sleep(time.Second)
				return c.query(ctx, sqlText, params, true)
			case errCodeServerShutdown:
				log.Error().Msg("Server shutdown reported, recreating pool")
				if rErr := c.reconnect(ctx); rErr != nil {
					return nil, rErr
				}
				return c.query(ctx, sqlText, params, true)
			}
		}
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	data, columns, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read result set: %w", err)
	}

	duration := time.Since(start)
	if duration.Milliseconds() > slowQueryThresholdMs {
		log.Warn().
			Str("sql", truncateSQL(sqlText)).
			Int("paramCount", len(params)).
			Dur("duration", duration).
			Msg("Slow query")
	}
	c.logQuery(sqlText, len(params), duration, true)

	return &models.QueryResult{
		Success:      true,
		Data:         data,
		Columns:      columns,
		QueryTime:    duration.Milliseconds(),
		AffectedRows: int64(len(data)),
	}, nil
}

func (c *MySQLConnector) TestConnection(ctx context.Context) bool {
	result, err := c.Query(ctx, "SELECT 1 AS connection_test", nil)
	if err != nil {
		log.Error().Err(err).Msg("OceanBase connection test failed")
		return false
	}
	return result.Success
}

func (c *MySQLConnector) ConnectionInfo() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return fmt.Sprintf("oceanbase %s:%s/%s (disconnected)", c.cfg.Host, c.cfg.Port, c.cfg.Database)
	}
	stats := c.db.Stats()
	return fmt.Sprintf("oceanbase %s:%s/%s open=%d idle=%d waiting=%d",
		c.cfg.Host, c.cfg.Port, c.cfg.Database, stats.OpenConnections, stats.Idle, stats.WaitCount)
}

func (c *MySQLConnector) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	return c.connectLocked(ctx)
}

func (c *MySQLConnector) logQuery(sqlText string, paramCount int, duration time.Duration, success bool) {
	ev := log.Debug()
	if !success {
		ev = log.Error()
	}
	ev.Str("sql", truncateSQL(sqlText)).
		Int("paramCount", paramCount).
		Dur("duration", duration).
		Bool("success", success).
		Msg("Query executed")
}

// scanRows materializes a result set as ordered column names plus one
// map per row. Byte slices are converted to strings so rows marshal to
// JSON cleanly.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	data := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		data = append(data, row)
	}
	return data, columns, rows.Err()
}

func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return val
	}
}

func queryTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
	}
	return 30 * time.Second
}
