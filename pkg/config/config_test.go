package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "scheduler.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if !cfg.Scheduler.RememberJobProgress {
					t.Error("expected default remember_job_progress true")
				}
				if cfg.Scheduler.ScheduleResolutionMinutes != 2 {
					t.Errorf("expected default schedule_resolution_minutes 2, got %d", cfg.Scheduler.ScheduleResolutionMinutes)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "schedule_resolution_minutes: 2") {
					t.Error("config file missing default values")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("scheduler:\n  greedy_scheduling: false\n  dither_frames: 7\ngeo:\n  latitude: 48.2\n  longitude: 11.6\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Scheduler.GreedyScheduling {
					t.Error("expected greedy_scheduling overridden to false")
				}
				if cfg.Scheduler.DitherFrames != 7 {
					t.Errorf("expected dither_frames 7, got %d", cfg.Scheduler.DitherFrames)
				}
				if cfg.Geo.Latitude != 48.2 {
					t.Errorf("expected latitude 48.2, got %v", cfg.Geo.Latitude)
				}
				// Untouched defaults should survive the merge.
				if cfg.Scheduler.ScheduleResolutionMinutes != 2 {
					t.Errorf("expected untouched default to survive merge, got %d", cfg.Scheduler.ScheduleResolutionMinutes)
				}
			},
		},
		{
			name: "InvalidLatitude",
			setup: func() {
				err := os.WriteFile(configPath, []byte("geo:\n  latitude: 120\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if tt.expectedError {
				if err == nil {
					t.Fatal("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefaultSkipsExistingFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "scheduler.yaml")

	if err := os.WriteFile(path, []byte("profile: custom\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := GenerateDefault(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "profile: custom\n" {
		t.Error("GenerateDefault overwrote an existing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "scheduler.yaml")

	cfg := DefaultConfig()
	cfg.Scheduler.DitherFrames = 9

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Scheduler.DitherFrames != 9 {
		t.Errorf("expected dither_frames 9 after round trip, got %d", loaded.Scheduler.DitherFrames)
	}
}
