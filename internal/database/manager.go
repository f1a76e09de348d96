package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/models"
)

// ErrNoHealthyConnector is returned by Initialize when every configured
// backend fails its connection test.
var ErrNoHealthyConnector = errors.New("no healthy database connector available")

const maxQueryRetries = 2

type registeredConnector struct {
	kind Kind
	conn Connector
}

// Manager owns the configured connectors, selects a primary and
// orchestrates failover. Failed primary queries are retried against
// every secondary in registration order; when those fail too, the
// whole sequence repeats after an exponential backoff, up to a small
// fixed budget. Bounded latency is preferred over availability: a
// report page must not hang when the database tier is down.
type Manager struct {
	connectors []registeredConnector
	primary    Kind
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{}
	m.Register(KindOceanBase, NewMySQLConnector(cfg.Database))
	if cfg.DataWorks != nil {
		m.Register(KindDataWorks, NewDataWorksConnector(*cfg.DataWorks))
	}
	return m
}

func (m *Manager) Register(kind Kind, conn Connector) {
	m.connectors = append(m.connectors, registeredConnector{kind: kind, conn: conn})
}

// Initialize tests every connector and selects the primary: the pooled
// SQL connector when healthy, otherwise the first healthy alternative.
// It fails hard when nothing is reachable.
func (m *Manager) Initialize(ctx context.Context) error {
	var healthy []Kind
	for _, rc := range m.connectors {
		ok := rc.conn.TestConnection(ctx)
		log.Info().Str("connector", string(rc.kind)).Bool("healthy", ok).Msg("Connector tested")
		if ok {
			healthy = append(healthy, rc.kind)
		}
	}

	if len(healthy) == 0 {
		return ErrNoHealthyConnector
	}

	m.primary = healthy[0]
	for _, kind := range healthy {
		if kind == KindOceanBase {
			m.primary = KindOceanBase
			break
		}
	}

	log.Info().Str("primary", string(m.primary)).Msg("Connection manager initialized")
	return nil
}

func (m *Manager) Primary() Kind {
	return m.primary
}

func (m *Manager) connector(kind Kind) (Connector, error) {
	for _, rc := range m.connectors {
		if rc.kind == kind {
			return rc.conn, nil
		}
	}
	return nil, fmt.Errorf("connector not found: %s", kind)
}

// Query executes against the primary, falling back to the secondaries
// and finally retrying the whole sequence with exponential backoff.
func (m *Manager) Query(ctx context.Context, sqlText string, params []interface{}) (*models.QueryResult, error) {
	return m.queryWithRetry(ctx, sqlText, params, 0)
}

func (m *Manager) queryWithRetry(ctx context.Context, sqlText string, params []interface{}, retryCount int) (*models.QueryResult, error) {
	primary, err := m.connector(m.primary)
	if err != nil {
		return nil, err
	}

	result, err := primary.Query(ctx, sqlText, params)
	if err == nil {
		return result, nil
	}
	log.Error().Err(err).Str("primary", string(m.primary)).Msg("Primary query failed, attempting failover")

	if retryCount >= maxQueryRetries {
		return nil, err
	}

	for _, rc := range m.connectors {
		if rc.kind == m.primary {
			continue
		}
		fallbackResult, fbErr := rc.conn.Query(ctx, sqlText, params)
		if fbErr != nil {
			log.Error().Err(fbErr).Str("connector", string(rc.kind)).Msg("Secondary query failed")
			continue
		}
		log.Warn().Str("connector", string(rc.kind)).Msg("Query served by secondary data source")
		fallbackResult.Warning = fmt.Sprintf("served by secondary data source %s, results may lag", rc.kind)
		return fallbackResult, nil
	}

	// Everything failed: back off and try the primary again.
	delay := time.Duration(1<<uint(retryCount)) * time.Second
	log.Warn().Dur("delay", delay).Int("retry", retryCount+1).Msg("All connectors failed, backing off")
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	return m.queryWithRetry(ctx, sqlText, params, retryCount+1)
}

// TestAll reports per-connector health for the health endpoint.
func (m *Manager) TestAll(ctx context.Context) map[Kind]bool {
	results := make(map[Kind]bool, len(m.connectors))
	for _, rc := range m.connectors {
		results[rc.kind] = rc.conn.TestConnection(ctx)
	}
	return results
}

// CloseAll disconnects every connector. Individual failures are logged
// and swallowed so one bad connector cannot block the rest.
func (m *Manager) CloseAll() {
	for _, rc := range m.connectors {
		if err := rc.conn.Disconnect(); err != nil {
			log.Error().Err(err).Str("connector", string(rc.kind)).Msg("Failed to disconnect")
		}
	}
	log.Info().Msg("All database connectors closed")
}
