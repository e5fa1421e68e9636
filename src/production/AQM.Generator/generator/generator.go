// Package generator produces synthetic air monitor readings with daily and
// weekly activity patterns. It does no I/O.
package generator

import (
	"math"
	"math/rand"
	"strings"
	"time"

	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
)

// Metrics every profile carries
const (
	Temperature = "temperature"
	Humidity    = "humidity"
	CO2         = "co2"
	TVOC        = "tvoc"
	PM25        = "mc2p5"
)

// DefaultProfiles returns the three simulated rooms
func DefaultProfiles() []aqmmodels.DeviceProfile {
	return []aqmmodels.DeviceProfile{
		{
			DeviceID:   "air-monitor-living-room",
			Baselines:  map[string]float64{Temperature: 22.5, Humidity: 45, CO2: 450, TVOC: 120, PM25: 8},
			Variations: map[string]float64{Temperature: 3, Humidity: 15, CO2: 200, TVOC: 80, PM25: 5},
		},
		{
			DeviceID:   "air-monitor-bedroom",
			Baselines:  map[string]float64{Temperature: 20.0, Humidity: 50, CO2: 380, TVOC: 90, PM25: 6},
			Variations: map[string]float64{Temperature: 2.5, Humidity: 12, CO2: 150, TVOC: 60, PM25: 4},
		},
		{
			DeviceID:   "air-monitor-kitchen",
			Baselines:  map[string]float64{Temperature: 24.0, Humidity: 55, CO2: 520, TVOC: 180, PM25: 12},
			Variations: map[string]float64{Temperature: 4, Humidity: 20, CO2: 300, TVOC: 120, PM25: 8},
		},
	}
}

// ActivityMultiplier scales occupancy-driven metrics (co2, tvoc, pm2.5) by time of day.
func ActivityMultiplier(deviceID string, ts time.Time) float64 {
	hour := ts.Hour()

	m := 1.0
	if hour >= 8 && hour <= 22 {
		m = 1.2
	}
	if strings.Contains(deviceID, "kitchen") && isMealtime(hour) {
		m = 1.5
	}
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		m *= 0.9
	}
	return m
}

func isMealtime(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 12 && hour <= 14) || (hour >= 18 && hour <= 20)
}

// Reading generates one sample for the profile at ts. Hours are taken in ts's location.
func Reading(p aqmmodels.DeviceProfile, ts time.Time, rng *rand.Rand) aqmmodels.Reading {
	m := ActivityMultiplier(p.DeviceID, ts)
	noise := func(metric string) float64 {
		return (rng.Float64() - 0.5) * p.Variations[metric]
	}

	temperature := round1(p.Baselines[Temperature] + noise(Temperature))
	humidity := clamp(round1(p.Baselines[Humidity]+noise(Humidity)), 20, 80)
	co2 := math.Max(300, math.Round(p.Baselines[CO2]*m+noise(CO2)))
	tvoc := math.Max(10, math.Round(p.Baselines[TVOC]*m+noise(TVOC)))
	pm25 := math.Max(1, round1(p.Baselines[PM25]*m+noise(PM25)))

	return aqmmodels.Reading{
		DeviceID:  p.DeviceID,
		Timestamp: ts.UnixMilli(),
		Metrics: map[string]interface{}{
			Temperature: temperature,
			Humidity:    humidity,
			CO2:         co2,
			TVOC:        tvoc,
			PM25:        pm25,
		},
	}
}

// Series generates a reading per profile at every interval step from from to to, inclusive.
func Series(profiles []aqmmodels.DeviceProfile, from, to time.Time, interval time.Duration, rng *rand.Rand) []aqmmodels.Reading {
	if interval <= 0 || to.Before(from) {
		return nil
	}

	steps := int(to.Sub(from)/interval) + 1
	readings := make([]aqmmodels.Reading, 0, steps*len(profiles))
	for ts := from; !ts.After(to); ts = ts.Add(interval) {
		for _, p := range profiles {
			readings = append(readings, Reading(p, ts, rng))
		}
	}
	return readings
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
