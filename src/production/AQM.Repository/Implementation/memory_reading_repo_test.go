package implementation

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

func seedMemory(t *testing.T, repo *MemoryReadingRepository, readings ...aqmmodels.Reading) {
	t.Helper()
	for _, r := range readings {
		require.NoError(t, repo.PutReading(context.Background(), r))
	}
}

func sampleReading(deviceID string, ts int64, co2 float64) aqmmodels.Reading {
	return aqmmodels.Reading{DeviceID: deviceID, Timestamp: ts, Metrics: map[string]interface{}{"co2": co2}}
}

func TestMemoryQueryByDevice_FiltersAndOrders(t *testing.T) {
	repo := NewMemoryReadingRepository()
	seedMemory(t, repo,
		sampleReading("a", 100, 1),
		sampleReading("a", 300, 3),
		sampleReading("a", 200, 2),
		sampleReading("b", 250, 9),
		sampleReading("a", 50, 0),
	)

	got, err := repo.QueryByDevice(context.Background(), "a", 100)
	require.NoError(t, err)

	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, "a", r.DeviceID)
		assert.GreaterOrEqual(t, r.Timestamp, int64(100))
		if i > 0 {
			assert.Greater(t, got[i-1].Timestamp, r.Timestamp)
		}
	}
}

func TestMemoryQueryByDevice_Cap(t *testing.T) {
	repo := NewMemoryReadingRepository()
	for i := 0; i < interfaces.MaxDeviceQueryItems+25; i++ {
		seedMemory(t, repo, sampleReading("a", int64(i), float64(i)))
	}

	got, err := repo.QueryByDevice(context.Background(), "a", 0)
	require.NoError(t, err)

	require.Len(t, got, interfaces.MaxDeviceQueryItems)
	assert.Equal(t, int64(interfaces.MaxDeviceQueryItems+24), got[0].Timestamp)
}

func TestMemoryScanSince_EqualsUnionOfDeviceQueries(t *testing.T) {
	repo := NewMemoryReadingRepository()
	for i := 0; i < 30; i++ {
		seedMemory(t, repo, sampleReading(fmt.Sprintf("dev-%d", i%3), int64(i*10), float64(i)))
	}
	const since = 95

	scanned, err := repo.ScanSince(context.Background(), since)
	require.NoError(t, err)

	ids, err := repo.ListDeviceIDs(context.Background())
	require.NoError(t, err)

	var union []aqmmodels.Reading
	for _, id := range ids {
		rs, err := repo.QueryByDevice(context.Background(), id, since)
		require.NoError(t, err)
		union = append(union, rs...)
	}

	key := func(rs []aqmmodels.Reading) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, fmt.Sprintf("%s/%d", r.DeviceID, r.Timestamp))
		}
		sort.Strings(out)
		return out
	}
	assert.Equal(t, key(union), key(scanned))
}

func TestMemoryListDeviceIDs_DistinctSortedIgnoresWindow(t *testing.T) {
	repo := NewMemoryReadingRepository()
	seedMemory(t, repo,
		sampleReading("kitchen", 1, 0),
		sampleReading("bedroom", 2, 0),
		sampleReading("kitchen", 3, 0),
		sampleReading("attic", 4, 0),
	)

	ids, err := repo.ListDeviceIDs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"attic", "bedroom", "kitchen"}, ids)
}

func TestMemoryPutReading_SameKeyOverwrites(t *testing.T) {
	repo := NewMemoryReadingRepository()
	seedMemory(t, repo, sampleReading("a", 1, 1), sampleReading("a", 1, 2))

	got, err := repo.QueryByDevice(context.Background(), "a", 0)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Metrics["co2"])
}

func TestMemoryQueryByDevice_EmptyDeviceID(t *testing.T) {
	_, err := NewMemoryReadingRepository().QueryByDevice(context.Background(), "", 0)
	assert.ErrorIs(t, err, interfaces.ErrDeviceIDRequired)
}

func TestMemoryCancelledContext(t *testing.T) {
	repo := NewMemoryReadingRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var readErr *interfaces.StoreReadError
	_, err := repo.ScanSince(ctx, 0)
	require.ErrorAs(t, err, &readErr)

	var writeErr *interfaces.StoreWriteError
	require.ErrorAs(t, repo.PutReading(ctx, sampleReading("a", 1, 1)), &writeErr)
}
