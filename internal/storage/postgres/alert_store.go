package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

const alertColumns = `id, cycle_id, chain, name, symbol, pair_id, token_address, source, url,
	score, market_cap_usd, liquidity_usd, holders, age_minutes, created_at`

// InsertBulk adds alerts atomically. Fails entire batch on any duplicate id.
func (s *AlertStore) InsertBulk(ctx context.Context, alerts []*domain.Alert) (err error) {
	if len(alerts) == 0 {
		return nil
	}
	for _, a := range alerts {
		if a == nil || a.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { observe("insert_alerts", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for _, a := range alerts {
		_, err = tx.Exec(ctx, query,
			a.ID,
			a.CycleID,
			string(a.Chain),
			a.Name,
			a.Symbol,
			a.PairID,
			a.TokenAddress,
			a.Source,
			a.URL,
			a.Score,
			a.MarketCapUSD,
			a.LiquidityUSD,
			a.Holders,
			a.AgeMinutes,
			a.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert alert in bulk: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves one alert. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, id string) (_ *domain.Alert, err error) {
	start := time.Now()
	defer func() { observe("get_alert", start, err) }()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`

	a, err := scanAlert(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return a, nil
}

// GetByCycle retrieves the alerts of one cycle ordered by score DESC.
func (s *AlertStore) GetByCycle(ctx context.Context, cycleID int64) (_ []*domain.Alert, err error) {
	start := time.Now()
	defer func() { observe("get_alerts_by_cycle", start, err) }()

	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE cycle_id = $1
		ORDER BY score DESC, created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("get alerts by cycle: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// Recent returns at most limit alerts, newest first.
func (s *AlertStore) Recent(ctx context.Context, limit int) (_ []*domain.Alert, err error) {
	if limit <= 0 {
		limit = 100
	}

	start := time.Now()
	defer func() { observe("recent_alerts", start, err) }()

	query := `SELECT ` + alertColumns + `
		FROM alerts
		ORDER BY created_at DESC, inserted_at DESC, id ASC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var a domain.Alert
	var chain string

	err := row.Scan(
		&a.ID,
		&a.CycleID,
		&chain,
		&a.Name,
		&a.Symbol,
		&a.PairID,
		&a.TokenAddress,
		&a.Source,
		&a.URL,
		&a.Score,
		&a.MarketCapUSD,
		&a.LiquidityUSD,
		&a.Holders,
		&a.AgeMinutes,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Chain = domain.Chain(chain)
	return &a, nil
}

func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var alerts []*domain.Alert

	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return alerts, nil
}
