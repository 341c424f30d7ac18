package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"runner-scout/internal/domain"
	"runner-scout/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

const observationColumns = `cycle_id, observed_at_ms, chain, pair_id, token_address, symbol, source,
	score, fdv_usd, liquidity_usd, volume_24h_usd, age_minutes, passed`

// InsertBulk appends observations in one batch.
func (s *ObservationStore) InsertBulk(ctx context.Context, obs []*domain.Observation) (err error) {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if o == nil || o.PairID == "" || o.CycleID < 0 {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { observe("insert_observations", start, err) }()

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO candidate_observations (`+observationColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		var passed uint8
		if o.Passed {
			passed = 1
		}
		err = batch.Append(
			uint64(o.CycleID), uint64(o.ObservedAtMs), string(o.Chain), o.PairID,
			o.TokenAddress, o.Symbol, o.Source, o.Score, o.FDVUSD,
			o.LiquidityUSD, o.Volume24hUSD, o.AgeMinutes, passed,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByCycle retrieves the observations of one cycle ordered by score DESC.
func (s *ObservationStore) GetByCycle(ctx context.Context, cycleID int64) (_ []*domain.Observation, err error) {
	start := time.Now()
	defer func() { observe("get_observations_by_cycle", start, err) }()

	query := `SELECT ` + observationColumns + `
		FROM candidate_observations
		WHERE cycle_id = ?
		ORDER BY score DESC, pair_id ASC`

	rows, err := s.conn.Query(ctx, query, uint64(cycleID))
	if err != nil {
		return nil, fmt.Errorf("query by cycle: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByPair retrieves observations of one pair ordered by observed_at ASC.
func (s *ObservationStore) GetByPair(ctx context.Context, chain domain.Chain, pairID string) (_ []*domain.Observation, err error) {
	start := time.Now()
	defer func() { observe("get_observations_by_pair", start, err) }()

	query := `SELECT ` + observationColumns + `
		FROM candidate_observations
		WHERE chain = ? AND pair_id = ?
		ORDER BY observed_at_ms ASC`

	rows, err := s.conn.Query(ctx, query, string(chain), pairID)
	if err != nil {
		return nil, fmt.Errorf("query by pair: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func scanObservations(rows driver.Rows) ([]*domain.Observation, error) {
	var result []*domain.Observation

	for rows.Next() {
		var (
			o             domain.Observation
			cycleID, atMs uint64
			chain         string
			passed        uint8
		)
		err := rows.Scan(
			&cycleID, &atMs, &chain, &o.PairID, &o.TokenAddress, &o.Symbol, &o.Source,
			&o.Score, &o.FDVUSD, &o.LiquidityUSD, &o.Volume24hUSD, &o.AgeMinutes, &passed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		o.CycleID = int64(cycleID)
		o.ObservedAtMs = int64(atMs)
		o.Chain = domain.Chain(chain)
		o.Passed = passed == 1
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}
	return result, nil
}
