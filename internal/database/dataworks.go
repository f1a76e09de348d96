package database

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/models"
)

const (
	taskPollInterval = 2 * time.Second
	taskPollMaxTries = 60
	taskResultPage   = 1000
)

// DataWorksConnector talks to the big-data secondary over a signed
// HTTP task API: submit the SQL as a named task, poll its status, then
// fetch the result page. There is no persistent connection. The task
// API has no parameter binding, so positional parameters are inlined
// into the statement with SQL escaping before submission.
type DataWorksConnector struct {
	cfg    config.DataWorksConfig
	client *http.Client

	mu        sync.Mutex
	connected bool
}

type executeTaskRequest struct {
	ProjectID  string `json:"ProjectId"`
	SQLContent string `json:"SqlContent"`
	ScriptType string `json:"ScriptType"`
}

type executeTaskResponse struct {
	RequestID string `json:"RequestId"`
	Data      struct {
		TaskID  string `json:"TaskId"`
		Status  string `json:"Status"`
		Message string `json:"Message"`
	} `json:"Data"`
}

type taskResultRequest struct {
	TaskID     string `json:"TaskId"`
	PageNumber int    `json:"PageNumber"`
	PageSize   int    `json:"PageSize"`
}

type taskResultResponse struct {
	RequestID string `json:"RequestId"`
	Data      struct {
		Status         string                   `json:"Status"`
		ErrorMessage   string                   `json:"ErrorMessage"`
		ColumnMetaData []taskColumn             `json:"ColumnMetaData"`
		Data           []map[string]interface{} `json:"Data"`
		TotalCount     int64                    `json:"TotalCount"`
	} `json:"Data"`
}

type taskColumn struct {
	ColumnName string `json:"ColumnName"`
	ColumnType string `json:"ColumnType"`
}

func NewDataWorksConnector(cfg config.DataWorksConfig) *DataWorksConnector {
	return &DataWorksConnector{
		cfg: cfg,
		client: &http.Client{
			// Large warehouse queries can run for minutes.
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *DataWorksConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	// A task id coming back proves the signed API is reachable; there
	// is no need to wait for the test query to finish.
	if _, err := c.submitTask(ctx, "SELECT 1 AS connection_test"); err != nil {
		return fmt.Errorf("dataworks connection test failed: %w", err)
	}

	c.connected = true
	log.Info().Str("endpoint", c.cfg.Endpoint).Str("projectId", c.cfg.ProjectID).Msg("DataWorks API reachable")
	return nil
}

func (c *DataWorksConnector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *DataWorksConnector) Query(ctx context.Context, sqlText string, params []interface{}) (*models.QueryResult, error) {
	start := time.Now()

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	inlined, err := inlineParams(sqlText, params)
	if err != nil {
		return nil, err
	}

	taskID, err := c.submitTask(ctx, inlined)
	if err != nil {
		log.Error().Err(err).Str("sql", truncateSQL(sqlText)).Int("paramCount", len(params)).Msg("DataWorks task submission failed")
		return nil, err
	}
	log.Debug().Str("taskId", taskID).Str("sql", truncateSQL(sqlText)).Msg("DataWorks task submitted")

	result, err := c.pollTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	columns := make([]string, 0, len(result.Data.ColumnMetaData))
	for _, col := range result.Data.ColumnMetaData {
		columns = append(columns, col.ColumnName)
	}

	log.Debug().
		Str("taskId", taskID).
		Int("rows", len(result.Data.Data)).
		Dur("duration", duration).
		Msg("DataWorks task finished")

	return &models.QueryResult{
		Success:      true,
		Data:         result.Data.Data,
		Columns:      columns,
		QueryTime:    duration.Milliseconds(),
		AffectedRows: int64(len(result.Data.Data)),
	}, nil
}

func (c *DataWorksConnector) TestConnection(ctx context.Context) bool {
	if err := c.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("DataWorks connection test failed")
		return false
	}
	return true
}

func (c *DataWorksConnector) ConnectionInfo() string {
	c.mu.Lock()
	state := "disconnected"
	if c.connected {
		state = "connected"
	}
	c.mu.Unlock()
	return fmt.Sprintf("dataworks %s/%s (%s)", c.cfg.Endpoint, c.cfg.ProjectID, state)
}

func (c *DataWorksConnector) submitTask(ctx context.Context, sqlText string) (string, error) {
	path := fmt.Sprintf("/api/v2/projects/%s/tasks/execute", c.cfg.ProjectID)
	body := executeTaskRequest{
		ProjectID:  c.cfg.ProjectID,
		SQLContent: sqlText,
		ScriptType: "MYSQL_SQL",
	}

	var resp executeTaskResponse
	if err := c.post(ctx, path, body, &resp); err != nil {
		return "", err
	}
	if resp.Data.TaskID == "" {
		return "", fmt.Errorf("dataworks did not return a task id: %s", resp.Data.Message)
	}
	return resp.Data.TaskID, nil
}

func (c *DataWorksConnector) pollTask(ctx context.Context, taskID string) (*taskResultResponse, error) {
	path := fmt.Sprintf("/api/v2/projects/%s/tasks/result", c.cfg.ProjectID)

	for attempt := 1; attempt <= taskPollMaxTries; attempt++ {
		var resp taskResultResponse
		err := c.post(ctx, path, taskResultRequest{TaskID: taskID, PageNumber: 1, PageSize: taskResultPage}, &resp)
		if err != nil {
			return nil, err
		}

		switch resp.Data.Status {
		case "SUCCESS":
			return &resp, nil
		case "FAILED":
			return nil, fmt.Errorf("dataworks task %s failed: %s", taskID, resp.Data.ErrorMessage)
		default:
			// RUNNING, SUSPENDED or not yet visible.
			log.Debug().Str("taskId", taskID).Str("status", resp.Data.Status).Int("attempt", attempt).Msg("Polling DataWorks task")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(taskPollInterval):
		}
	}

	return nil, fmt.Errorf("dataworks task %s did not finish after %d attempts", taskID, taskPollMaxTries)
}

func (c *DataWorksConnector) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.Endpoint, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.signRequest(req, path, body)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("dataworks request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dataworks returned HTTP %d: %s", resp.StatusCode, string(msg))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// signRequest computes the keyed-hash signature over method, path,
// sorted query string, timestamp, caller id and body, and attaches it
// as headers. Transport authentication only; the SQL semantics are
// untouched.
func (c *DataWorksConnector) signRequest(req *http.Request, path string, body []byte) {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())

	canonical := req.Method + "\n" + path + "\n"
	if qs := canonicalQuery(req.URL.Query()); qs != "" {
		canonical += qs + "\n"
	}
	canonical += timestamp + "\n" + c.cfg.APIKey + "\n"
	if len(body) > 0 {
		canonical += string(body) + "\n"
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(canonical))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-acs-date", timestamp)
	req.Header.Set("x-acs-signature-method", "HMAC-SHA256")
	req.Header.Set("x-acs-signature-version", "1.0")
	req.Header.Set("x-acs-signature-nonce", uuid.NewString())
	req.Header.Set("x-acs-signature", signature)
}

func canonicalQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(values.Get(k)))
	}
	return strings.Join(parts, "&")
}

// inlineParams substitutes positional placeholders with escaped
// literals, left to right. A count mismatch is a fatal per-request
// error: binding would be wrong either way.
func inlineParams(sqlText string, params []interface{}) (string, error) {
	if strings.Count(sqlText, "?") != len(params) {
		return "", fmt.Errorf("placeholder count %d does not match parameter count %d",
			strings.Count(sqlText, "?"), len(params))
	}

	var b strings.Builder
	idx := 0
	for _, r := range sqlText {
		if r == '?' {
			b.WriteString(formatSQLValue(params[idx]))
			idx++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

func formatSQLValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteSQLString(v)
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return quoteSQLString(fmt.Sprintf("%v", v))
	}
}

// quoteSQLString produces a MySQL string literal. Backslashes must be
// escaped before quotes, otherwise a trailing backslash swallows the
// closing quote and the following text becomes live SQL. Control
// characters with their own escape forms are rewritten too.
func quoteSQLString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"'", "''",
		"\x00", `\0`,
		"\n", `\n`,
		"\r", `\r`,
		"\x1a", `\Z`,
	)
	return "'" + r.Replace(s) + "'"
}
