package implementation

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

func setupMockReadingsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresReadingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, NewPostgresReadingRepository(db)
}

func TestPostgresPutReading_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO readings`).
		WithArgs("dev-1", int64(1700000000000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.PutReading(context.Background(), aqmmodels.Reading{
		DeviceID:  "dev-1",
		Timestamp: 1700000000000,
		Metrics:   map[string]interface{}{"co2": 500.0},
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutReading_Failure(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO readings`).WillReturnError(errors.New("connection reset"))

	err := repo.PutReading(context.Background(), aqmmodels.Reading{DeviceID: "dev-1", Timestamp: 1})

	var writeErr *interfaces.StoreWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryByDevice_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"device_id", "ts", "metrics"}).
		AddRow("dev-1", int64(3000), []byte(`{"co2":600}`)).
		AddRow("dev-1", int64(2000), []byte(`{"co2":500,"label":"x"}`))

	mock.ExpectQuery(`SELECT device_id, ts, metrics FROM readings WHERE device_id = \$1 AND ts >= \$2 ORDER BY ts DESC LIMIT \$3`).
		WithArgs("dev-1", int64(1500), int64(interfaces.MaxDeviceQueryItems)).
		WillReturnRows(rows)

	readings, err := repo.QueryByDevice(context.Background(), "dev-1", 1500)

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, int64(3000), readings[0].Timestamp)
	assert.Equal(t, 600.0, readings[0].Metrics["co2"])
	assert.Equal(t, "x", readings[1].Metrics["label"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryByDevice_EmptyDeviceID(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	_, err := repo.QueryByDevice(context.Background(), "", 0)

	assert.ErrorIs(t, err, interfaces.ErrDeviceIDRequired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresScanSince_Failure(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT device_id, ts, metrics FROM readings WHERE ts >= \$1`).
		WithArgs(int64(10)).
		WillReturnError(errors.New("timeout"))

	readings, err := repo.ScanSince(context.Background(), 10)

	assert.Nil(t, readings)
	var readErr *interfaces.StoreReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, interfaces.OpScanSince, readErr.Op)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDeviceIDs(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"device_id"}).
		AddRow("b").
		AddRow("a").
		AddRow("c")
	mock.ExpectQuery(`SELECT DISTINCT device_id FROM readings`).WillReturnRows(rows)

	ids, err := repo.ListDeviceIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPing(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	require.NoError(t, repo.Ping(context.Background()))

	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("down"))
	err := repo.Ping(context.Background())
	var readErr *interfaces.StoreReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, interfaces.OpPing, readErr.Op)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateTables(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS readings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.CreateTables(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
