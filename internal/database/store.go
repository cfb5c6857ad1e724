package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/weathervane/internal/model"
)

// Store persists raw candles and regime snapshots in PostgreSQL. Snapshots
// form an append-only audit log; the classification pipeline never reads
// them back.
type Store struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection and bootstraps the schema.
func New(params ConnectionParams) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &Store{DB: db, logger: log.With().Str("component", "database").Logger()}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			frequency INTEGER NOT NULL,
			ts BIGINT NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(symbol, frequency, ts)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_candles_symbol_freq_ts
		ON candles(symbol, frequency, ts DESC)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS regime_snapshots (
			id BIGSERIAL PRIMARY KEY,
			instrument TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			primary_regime TEXT NOT NULL,
			secondary_tag TEXT,
			confidence INTEGER NOT NULL,
			volatility_state TEXT NOT NULL,
			participation_state TEXT NOT NULL,
			balance_state TEXT NOT NULL,
			trend_quality TEXT NOT NULL,
			noise_level TEXT NOT NULL,
			session_phase TEXT NOT NULL,
			reliability_note TEXT,
			raw_features JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_instrument_ts
		ON regime_snapshots(instrument, ts DESC)
	`)

	return err
}

// InsertCandles batch inserts candles for one symbol and minute frequency,
// silently skipping duplicates on (symbol, frequency, timestamp).
func (s *Store) InsertCandles(symbol string, frequencyMinutes int, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("beginning candle insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO candles (symbol, frequency, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, frequency, ts) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, frequencyMinutes, c.Timestamp.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("inserting candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing candle insert: %w", err)
	}

	s.logger.Info().Str("symbol", symbol).Int("count", len(candles)).Msg("Candles persisted")
	return nil
}

// RecentCandles fetches candles for a symbol and minute frequency newer than
// the lookback window, ordered oldest first.
func (s *Store) RecentCandles(symbol string, frequencyMinutes int, lookback time.Duration, limit int) ([]model.Candle, error) {
	cutoff := time.Now().Add(-lookback).UnixMilli()

	query := `
		SELECT ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND frequency = $2 AND ts >= $3
		ORDER BY ts ASC
	`
	args := []any{symbol, frequencyMinutes, cutoff}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var ts int64
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scanning candle: %w", err)
		}
		c.Timestamp = time.UnixMilli(ts).UTC()
		candles = append(candles, c)
	}

	return candles, rows.Err()
}

// InsertSnapshot appends one regime snapshot, optionally with the serialized
// feature vector attached for audit.
func (s *Store) InsertSnapshot(snapshot *model.RegimeSnapshot, rawFeatures []byte) error {
	var features any
	if len(rawFeatures) > 0 {
		features = string(rawFeatures)
	}

	var tag any
	if snapshot.SecondaryTag != "" {
		tag = string(snapshot.SecondaryTag)
	}

	_, err := s.Exec(`
		INSERT INTO regime_snapshots (
			instrument, ts, primary_regime, secondary_tag, confidence,
			volatility_state, participation_state, balance_state,
			trend_quality, noise_level, session_phase, reliability_note,
			raw_features
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		snapshot.Instrument,
		snapshot.Timestamp,
		string(snapshot.PrimaryRegime),
		tag,
		snapshot.Confidence,
		string(snapshot.VolatilityState),
		string(snapshot.ParticipationState),
		string(snapshot.BalanceState),
		string(snapshot.TrendQuality),
		string(snapshot.NoiseLevel),
		string(snapshot.SessionPhase),
		snapshot.ReliabilityNote,
		features,
	)
	if err != nil {
		return fmt.Errorf("inserting regime snapshot: %w", err)
	}

	s.logger.Info().
		Str("instrument", snapshot.Instrument).
		Str("regime", string(snapshot.PrimaryRegime)).
		Int("confidence", snapshot.Confidence).
		Msg("Regime snapshot persisted")

	return nil
}

// SnapshotHistory returns the most recent snapshots for an instrument,
// newest first.
func (s *Store) SnapshotHistory(instrument string, limit int) ([]model.RegimeSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.Query(`
		SELECT instrument, ts, primary_regime, secondary_tag, confidence,
			volatility_state, participation_state, balance_state,
			trend_quality, noise_level, session_phase, reliability_note
		FROM regime_snapshots
		WHERE instrument = $1
		ORDER BY ts DESC
		LIMIT $2
	`, instrument, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.RegimeSnapshot
	for rows.Next() {
		var snap model.RegimeSnapshot
		var tag, note sql.NullString
		if err := rows.Scan(
			&snap.Instrument, &snap.Timestamp, &snap.PrimaryRegime, &tag,
			&snap.Confidence, &snap.VolatilityState, &snap.ParticipationState,
			&snap.BalanceState, &snap.TrendQuality, &snap.NoiseLevel,
			&snap.SessionPhase, &note,
		); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snap.SecondaryTag = model.SecondaryTag(tag.String)
		snap.ReliabilityNote = note.String
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// CleanupOldData deletes candles older than the retention window; snapshots
// are kept three times longer.
func (s *Store) CleanupOldData(retention time.Duration) error {
	candleCutoff := time.Now().Add(-retention)

	res, err := s.Exec(`DELETE FROM candles WHERE created_at < $1`, candleCutoff)
	if err != nil {
		return fmt.Errorf("deleting old candles: %w", err)
	}
	candlesDeleted, _ := res.RowsAffected()

	snapshotCutoff := time.Now().Add(-3 * retention)
	res, err = s.Exec(`DELETE FROM regime_snapshots WHERE created_at < $1`, snapshotCutoff)
	if err != nil {
		return fmt.Errorf("deleting old snapshots: %w", err)
	}
	snapshotsDeleted, _ := res.RowsAffected()

	s.logger.Info().
		Int64("candles", candlesDeleted).
		Int64("snapshots", snapshotsDeleted).
		Msg("Cleanup complete")

	return nil
}
