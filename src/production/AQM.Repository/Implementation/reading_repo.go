package implementation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

type PostgresReadingRepository struct {
	db *sql.DB
}

func NewPostgresReadingRepository(db *sql.DB) *PostgresReadingRepository {
	return &PostgresReadingRepository{db: db}
}

// CreateTables creates the readings table and its indexes if they don't exist
func (r *PostgresReadingRepository) CreateTables(ctx context.Context) error {
	createReadingsTable := `
		CREATE TABLE IF NOT EXISTS readings (
			device_id   TEXT NOT NULL,
			ts          BIGINT NOT NULL,
			metrics     JSONB NOT NULL,
			PRIMARY KEY (device_id, ts)
		);
	`

	createIndexes := `
		CREATE INDEX IF NOT EXISTS idx_readings_device_ts_desc ON readings (device_id, ts DESC);
		CREATE INDEX IF NOT EXISTS idx_readings_ts_desc ON readings (ts DESC);
	`

	for _, query := range []string{createReadingsTable, createIndexes} {
		if _, err := r.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// PutReading upserts a single reading
func (r *PostgresReadingRepository) PutReading(ctx context.Context, reading aqmmodels.Reading) error {
	query := `
		INSERT INTO readings (device_id, ts, metrics)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, ts)
		DO UPDATE SET metrics = EXCLUDED.metrics
	`

	metricsJSON, err := json.Marshal(ensureMetricsNotNull(reading.Metrics))
	if err != nil {
		return &interfaces.StoreWriteError{Err: fmt.Errorf("failed to marshal metrics: %w", err)}
	}

	if _, err := r.db.ExecContext(ctx, query, reading.DeviceID, reading.Timestamp, metricsJSON); err != nil {
		return &interfaces.StoreWriteError{Err: err}
	}
	return nil
}

func (r *PostgresReadingRepository) QueryByDevice(ctx context.Context, deviceID string, sinceTs int64) ([]aqmmodels.Reading, error) {
	if deviceID == "" {
		return nil, interfaces.ErrDeviceIDRequired
	}

	query := `
		SELECT device_id, ts, metrics
		FROM readings
		WHERE device_id = $1 AND ts >= $2
		ORDER BY ts DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, sinceTs, interfaces.MaxDeviceQueryItems)
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
	}
	defer rows.Close()

	readings, err := r.scanReadings(rows)
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
	}
	return readings, nil
}

func (r *PostgresReadingRepository) ScanSince(ctx context.Context, sinceTs int64) ([]aqmmodels.Reading, error) {
	query := `SELECT device_id, ts, metrics FROM readings WHERE ts >= $1`

	rows, err := r.db.QueryContext(ctx, query, sinceTs)
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
	}
	defer rows.Close()

	readings, err := r.scanReadings(rows)
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
	}
	return readings, nil
}

func (r *PostgresReadingRepository) ListDeviceIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT device_id FROM readings ORDER BY device_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
	}

	// collation may differ from byte order
	return distinctSorted(ids), nil
}

// Ping checks that the database answers a trivial query
func (r *PostgresReadingRepository) Ping(ctx context.Context) error {
	var result int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return &interfaces.StoreReadError{Op: interfaces.OpPing, Err: err}
	}
	return nil
}

func (r *PostgresReadingRepository) scanReadings(rows *sql.Rows) ([]aqmmodels.Reading, error) {
	readings := make([]aqmmodels.Reading, 0)

	for rows.Next() {
		var reading aqmmodels.Reading
		var metricsJSON []byte

		if err := rows.Scan(&reading.DeviceID, &reading.Timestamp, &metricsJSON); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(metricsJSON, &reading.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
		reading.Metrics = ensureMetricsNotNull(reading.Metrics)

		readings = append(readings, reading)
	}

	return readings, rows.Err()
}
