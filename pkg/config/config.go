package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the scheduler's configuration.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Geo       GeoConfig       `yaml:"geo"`
	Log       LogConfig       `yaml:"log"`
	Profile   string          `yaml:"profile"`
}

// SchedulerConfig holds the tunables spec.md §6 names as recognized
// options.
type SchedulerConfig struct {
	RememberJobProgress           bool     `yaml:"remember_job_progress"`
	SchedulerRepeatEverything     bool     `yaml:"scheduler_repeat_everything"`
	GreedyScheduling              bool     `yaml:"greedy_scheduling"`
	DitherEnabled                 bool     `yaml:"dither_enabled"`
	DitherFrames                  int      `yaml:"dither_frames"`
	DitherSettle                  Duration `yaml:"dither_settle"`
	GuidingSettle                 Duration `yaml:"guiding_settle"`
	ResetGuideCalibration         bool     `yaml:"reset_guide_calibration"`
	EnableAltitudeLimits          bool     `yaml:"enable_altitude_limits"`
	EnforceMoonSeparation         bool     `yaml:"enforce_moon_separation"`
	EnforceMoonAltitude           bool     `yaml:"enforce_moon_altitude"`
	ApplyRefraction               bool     `yaml:"apply_refraction"`
	DawnOffsetMinutes             int      `yaml:"dawn_offset_minutes"`
	DuskOffsetMinutes             int      `yaml:"dusk_offset_minutes"`
	ScheduleResolutionMinutes     int      `yaml:"schedule_resolution_minutes"`
	PreferSequenceTimeOverFinish  bool     `yaml:"prefer_sequence_time_over_finish_at"`
	AbortDelaySeconds             int      `yaml:"abort_delay_seconds"`
	ErrorDelaySeconds              int      `yaml:"error_delay_seconds"`
	RescheduleAbortsImmediately   bool     `yaml:"reschedule_aborts_immediately"`
	RescheduleAbortsQueue         bool     `yaml:"reschedule_aborts_queue"`
	RescheduleErrors              bool     `yaml:"reschedule_errors"`
	MaxSimulationRepeats          int      `yaml:"max_simulation_repeats"`
}

// GeoConfig holds the observing site.
type GeoConfig struct {
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
	Elevation Distance `yaml:"elevation"`
}

// LogConfig holds logging settings for the scheduler's subsystems.
type LogConfig struct {
	Scheduler  LogSettings `yaml:"scheduler"`
	Constraint LogSettings `yaml:"constraint"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			RememberJobProgress:         true,
			SchedulerRepeatEverything:   false,
			GreedyScheduling:            true,
			DitherEnabled:               true,
			DitherFrames:                5,
			DitherSettle:                Duration(5 * time.Second),
			GuidingSettle:               Duration(5 * time.Second),
			ResetGuideCalibration:       false,
			EnableAltitudeLimits:        true,
			EnforceMoonSeparation:       true,
			EnforceMoonAltitude:         false,
			ApplyRefraction:             true,
			DawnOffsetMinutes:           0,
			DuskOffsetMinutes:           0,
			ScheduleResolutionMinutes:   2,
			PreferSequenceTimeOverFinish: false,
			AbortDelaySeconds:           0,
			ErrorDelaySeconds:          300,
			RescheduleAbortsImmediately: true,
			RescheduleAbortsQueue:       true,
			RescheduleErrors:            true,
			MaxSimulationRepeats:        5,
		},
		Geo: GeoConfig{
			Latitude:  51.6845,
			Longitude: 14.4234,
			Elevation: Distance(120),
		},
		Log: LogConfig{
			Scheduler: LogSettings{
				Path:  "./logs/scheduler.log",
				Level: "INFO",
			},
			Constraint: LogSettings{
				Path:  "./logs/constraint.log",
				Level: "INFO",
			},
		},
		Profile: "default",
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		// We ignore errors here because it's valid to rely solely on system
		// env vars; no profile secrets are required today, but the seam is
		// kept for forward compatibility.
		_ = godotenv.Load(".env.local", ".env")
		loadSecretsFromEnv(cfg)

		if err := validate(cfg); err != nil {
			return nil, err
		}

		return cfg, nil
	}

	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Geo.Latitude < -90 || cfg.Geo.Latitude > 90 {
		return fmt.Errorf("invalid geo.latitude %v: must be in [-90, 90]", cfg.Geo.Latitude)
	}
	if !isValidLongitude(cfg.Geo.Longitude) {
		return fmt.Errorf("invalid geo.longitude %v: must be in [-180, 180]", cfg.Geo.Longitude)
	}
	if cfg.Scheduler.ScheduleResolutionMinutes <= 0 {
		return fmt.Errorf("scheduler.schedule_resolution_minutes must be positive")
	}
	return nil
}

func isValidLongitude(lon float64) bool {
	return lon >= -180 && lon <= 180
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Observation Scheduler Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)

`)
	data = append(header, data...)

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n${1}level:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

func loadSecretsFromEnv(cfg *Config) {
	// No profile secrets are required by the scheduler core today; this
	// seam is kept so a future observatory-profile integration (INDI
	// credentials, remote-storage keys) has somewhere to load from without
	// reshaping Load/Save.
	_ = cfg
}
