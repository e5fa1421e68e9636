package telemetry

import (
	"context"
	"math"
	"sort"
	"sync"

	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

// DefaultHoursWindow applies when the requested window is missing or not positive
const DefaultHoursWindow = 24.0

const millisPerHour = 3_600_000

// ReadingsView is a time window of readings, newest first. Err holds the
// store failure that emptied it, if any.
type ReadingsView struct {
	Readings    []aqmmodels.Reading
	HoursWindow float64
	DeviceID    string
	SinceTs     int64
	Err         error
}

func (v ReadingsView) Degraded() bool { return v.Err != nil }

// Dashboard is everything the dashboard page renders
type Dashboard struct {
	ReadingsView
	DeviceIDs  []string
	DevicesErr error
}

// Degraded reports whether either store read failed
func (d Dashboard) Degraded() bool {
	return d.Err != nil || d.DevicesErr != nil
}

// QueryService resolves time windows into reading lists. Store failures never
// surface as errors; they empty the affected part of the result.
type QueryService struct {
	repo   interfaces.ReadingRepository
	logger *logger.Logger
	opts   options
}

// NewQueryService creates a new query service reading from repo
func NewQueryService(repo interfaces.ReadingRepository, log *logger.Logger, opts ...Option) *QueryService {
	return &QueryService{
		repo:   repo,
		logger: log.WithComponent("query"),
		opts:   buildOptions(opts),
	}
}

// NormalizeHours maps missing, non-positive or non-finite windows to the default
func NormalizeHours(hours float64) float64 {
	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return DefaultHoursWindow
	}
	return hours
}

// Dashboard fetches the windowed readings and the full device list concurrently
func (s *QueryService) Dashboard(ctx context.Context, hours float64, deviceID string) Dashboard {
	var (
		wg         sync.WaitGroup
		ids        []string
		devicesErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ids, devicesErr = s.deviceIDs(ctx)
	}()

	view := s.RecentReadings(ctx, hours, deviceID)
	wg.Wait()

	return Dashboard{ReadingsView: view, DeviceIDs: ids, DevicesErr: devicesErr}
}

// RecentReadings returns readings newer than now minus the window, newest first
func (s *QueryService) RecentReadings(ctx context.Context, hours float64, deviceID string) ReadingsView {
	hours = NormalizeHours(hours)
	view := ReadingsView{
		HoursWindow: hours,
		DeviceID:    deviceID,
		SinceTs:     s.opts.now().UnixMilli() - int64(hours*millisPerHour),
		Readings:    []aqmmodels.Reading{},
	}

	var (
		readings []aqmmodels.Reading
		err      error
		op       = interfaces.OpScanSince
	)
	if deviceID != "" {
		op = interfaces.OpQueryByDevice
		readings, err = s.repo.QueryByDevice(ctx, deviceID, view.SinceTs)
	} else {
		readings, err = s.repo.ScanSince(ctx, view.SinceTs)
		sort.SliceStable(readings, func(i, j int) bool {
			return readings[i].Timestamp > readings[j].Timestamp
		})
	}

	if err != nil {
		s.absorb(op, err)
		view.Err = err
		return view
	}
	if readings != nil {
		view.Readings = readings
	}
	return view
}

func (s *QueryService) deviceIDs(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListDeviceIDs(ctx)
	if err != nil {
		s.absorb(interfaces.OpListDeviceIDs, err)
		return []string{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *QueryService) absorb(op string, err error) {
	s.opts.observer.StoreReadFailure(op)
	s.logger.WithField("operation", op).ErrorWithError(err, "Store read failed, serving empty result")
}
