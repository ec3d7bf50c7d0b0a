// Command astroscheduler is a thin demonstration executor: it loads
// configuration, initializes logging, builds the scheduling collaborators,
// and runs one greedy selection pass over a small built-in job set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astroscheduler/pkg/config"
	"astroscheduler/pkg/constraint"
	"astroscheduler/pkg/duration"
	"astroscheduler/pkg/horizon"
	"astroscheduler/pkg/job"
	"astroscheduler/pkg/logging"
	"astroscheduler/pkg/modulestate"
	"astroscheduler/pkg/scheduler"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault("configs/scheduler.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/scheduler.yaml")
		return
	}

	if err := run(context.Background(), "configs/scheduler.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("astroscheduler started", "profile", cfg.Profile)

	geo := modulestate.GeoLocation{
		Latitude:  cfg.Geo.Latitude,
		Longitude: cfg.Geo.Longitude,
		Elevation: float64(cfg.Geo.Elevation),
	}
	horizonProfile := horizon.New([]horizon.Point{
		{AzimuthDeg: 0, MinAltitudeDeg: 15},
		{AzimuthDeg: 90, MinAltitudeDeg: 10},
		{AzimuthDeg: 180, MinAltitudeDeg: 20},
		{AzimuthDeg: 270, MinAltitudeDeg: 10},
	})

	state := modulestate.New(cfg, geo, horizonProfile, cfg.Profile)
	state.SetWeatherOK(true)

	evaluator := constraint.New(state)
	estimator := duration.New(demoSequenceLoader{}, cfg)
	selector := scheduler.New(cfg, evaluator, estimator, state, slog.Default())

	jobs := demoJobs()

	select {
	case <-ctx.Done():
		return nil
	default:
	}

	selected, startTime, ok := selector.ScheduleJobs(jobs, time.Now())
	if !ok {
		slog.Warn("no job is currently runnable")
		return nil
	}

	slog.Info("next job selected", "job", selected.GetName(), "start", startTime)
	return nil
}

// demoSequenceLoader returns a fixed sequence for any job so the demo
// binary runs end to end without a real sequence-file format.
type demoSequenceLoader struct{}

func (demoSequenceLoader) Load(sequenceFile string) ([]job.CaptureSubjob, error) {
	return []job.CaptureSubjob{
		{Filter: "L", FrameType: job.FrameLight, ExposureSeconds: 300, Count: 20, Signature: sequenceFile + ":L:300"},
	}, nil
}

func demoJobs() []*job.Job {
	m31 := job.New("M31 Andromeda Galaxy")
	m31.SequenceFile = "m31-luminance"
	m31.CompletionCondition = job.FinishSequence
	m31.SetTargetCoords(job.Coordinates{RAHours: 0.712, DecDeg: 41.27})
	m31.SetMinAltitude(30)
	m31.SetEnforceTwilight(true)
	m31.SetEnforceWeather(true)
	m31.SetMinMoonSeparation(45)

	m42 := job.New("M42 Orion Nebula")
	m42.SequenceFile = "m42-luminance"
	m42.CompletionCondition = job.FinishSequence
	m42.SetTargetCoords(job.Coordinates{RAHours: 5.588, DecDeg: -5.39})
	m42.SetMinAltitude(25)
	m42.SetEnforceTwilight(true)
	m42.SetEnforceWeather(true)

	return []*job.Job{m31, m42}
}
