package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	container "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Container"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Generator/generator"
	"gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.IngestorService/client"
	logger "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Logger"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

const (
	pauseEvery   = 25
	pauseFor     = 100 * time.Millisecond
	progressStep = 100
)

func main() {
	mode := flag.String("mode", "backfill", "backfill writes history to the store, live posts to the API")
	days := flag.Int("days", 5, "backfill: days of history to generate")
	step := flag.Duration("step", 15*time.Minute, "backfill: spacing between samples")
	interval := flag.Duration("interval", time.Minute, "live: time between posts")
	apiURL := flag.String("api-url", "http://localhost:3000", "live: API base URL")
	apiKey := flag.String("api-key", "", "live: API key (defaults to INGEST_API_KEY)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	log := ctr.GetLogger().WithService("aqm-generator")
	rng := rand.New(rand.NewSource(*seed))
	profiles := generator.DefaultProfiles()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "backfill":
		repo, err := ctr.GetReadingRepository(ctx)
		if err != nil {
			log.FatalWithError(err, "Failed to open reading store")
		}
		now := time.Now()
		readings := generator.Series(profiles, now.Add(-time.Duration(*days)*24*time.Hour), now, *step, rng)
		log.Logger.Info().
			Int("readings", len(readings)).
			Int("devices", len(profiles)).
			Str("store", ctr.GetConfig().StoreName()).
			Msg("Generating test data")
		backfill(ctx, repo, readings, ctr.GetConfig().Store.Timeout, log)

	case "live":
		key := *apiKey
		if key == "" {
			key = ctr.GetConfig().Ingest.APIKey
		}
		live(ctx, client.NewAPIClient(*apiURL, key), profiles, *interval, rng, log)

	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q (want backfill or live)\n", *mode)
		os.Exit(2)
	}
}

// backfill writes readings with their own timestamps. Failures are logged and skipped.
func backfill(ctx context.Context, repo interfaces.ReadingRepository, readings []aqmmodels.Reading, timeout time.Duration, log *logger.Logger) {
	inserted := 0
	for i, r := range readings {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}

		putCtx, cancel := context.WithTimeout(ctx, timeout)
		err := repo.PutReading(putCtx, r)
		cancel()
		if err != nil {
			log.Logger.Error().Err(err).Str("device_id", r.DeviceID).Int64("timestamp", r.Timestamp).Msg("Error inserting reading")
		} else {
			inserted++
			if inserted%progressStep == 0 {
				log.Logger.Info().Msgf("Inserted %d/%d readings", inserted, len(readings))
			}
		}

		if (i+1)%pauseEvery == 0 {
			time.Sleep(pauseFor)
		}
	}

	log.Logger.Info().Int("inserted", inserted).Int("total", len(readings)).Msg("Backfill complete")
}

// live posts one reading per profile every interval until ctx is done
func live(ctx context.Context, api *client.APIClient, profiles []aqmmodels.DeviceProfile, interval time.Duration, rng *rand.Rand, log *logger.Logger) {
	if err := api.Health(ctx); err != nil {
		log.Logger.Warn().Err(err).Msg("API not reachable yet")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, p := range profiles {
			payload := generator.Reading(p, time.Now(), rng).Item()
			delete(payload, aqmmodels.TimestampKey)

			resp, err := api.PostReading(ctx, payload)
			if err != nil {
				log.Logger.Error().Err(err).Str("device_id", p.DeviceID).
					Interface("circuit_breaker", api.GetCircuitBreakerStatus()).
					Msg("Failed to post reading")
				continue
			}
			log.Logger.Debug().Str("device_id", resp.DeviceID).Int64("timestamp", resp.Timestamp).Msg("Posted reading")
		}

		select {
		case <-ctx.Done():
			log.Info("Stopping live generator")
			return
		case <-ticker.C:
		}
	}
}
