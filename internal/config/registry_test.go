package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "home-sensor") {
		t.Errorf("GetConfigDir() = %v, should contain 'home-sensor'", configDir)
	}
	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg", "home-sensor") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME based path", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "sensors.yaml" {
		t.Errorf("GetConfigPath() should end with 'sensors.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry("x.yaml")

	if reg.Version != 1 {
		t.Errorf("Version = %v, want 1", reg.Version)
	}
	if reg.Sensors == nil {
		t.Error("Sensors should not be nil")
	}
	if reg.Preferences == nil || reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("Preferences = %+v, want DiscoverTimeout 5", reg.Preferences)
	}
	if reg.Path() != "x.yaml" {
		t.Errorf("Path() = %q", reg.Path())
	}
}

func TestRegistryEnsureSensor(t *testing.T) {
	reg := NewRegistry("")

	s1 := reg.EnsureSensor("abc")
	if s1 == nil {
		t.Fatal("EnsureSensor() returned nil")
	}
	if reg.EnsureSensor("abc") != s1 {
		t.Error("EnsureSensor() should return same instance for same id")
	}
	if reg.EnsureSensor("def") == s1 {
		t.Error("EnsureSensor() should create new instance for different id")
	}
}

func TestRegistryRecordPairing(t *testing.T) {
	reg := NewRegistry("")

	before := time.Now()
	reg.RecordPairing("abc", "192.168.1.40", 42069, "pair-1")
	reg.RecordPairing("def", "192.168.1.41", 42069, "pair-2")

	s := reg.GetSensor("abc")
	if s == nil {
		t.Fatal("sensor should exist after RecordPairing()")
	}
	if s.Host != "192.168.1.40" || s.Port != 42069 || s.PairID != "pair-1" {
		t.Errorf("sensor = %+v", s)
	}
	if s.LastSeen.Before(before) {
		t.Errorf("LastSeen = %v, want after %v", s.LastSeen, before)
	}
	if reg.Default != "abc" {
		t.Errorf("Default = %q, want first paired sensor", reg.Default)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry("")
	reg.RecordPairing("abc", "10.0.0.1", 42069, "p1")
	reg.RecordPairing("def", "10.0.0.2", 42069, "p2")
	reg.SetSensorNickname("def", "attic")

	tests := []struct {
		ref    string
		wantID string
		wantOK bool
	}{
		{"", "abc", true},
		{"def", "def", true},
		{"attic", "def", true},
		{"garage", "", false},
	}
	for _, tt := range tests {
		id, _, ok := reg.Resolve(tt.ref)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.ref, id, ok, tt.wantID, tt.wantOK)
		}
	}

	reg.Remove("abc")
	if _, _, ok := reg.Resolve(""); ok {
		t.Error("Resolve(\"\") after removing the default should fail")
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sensors.yaml")

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() on missing file error = %v", err)
	}
	reg.RecordPairing("abc", "10.0.0.1", 42069, "secret")
	reg.SetSensorNickname("abc", "kitchen")

	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	s := loaded.GetSensor("abc")
	if s == nil || s.PairID != "secret" || s.Nickname != "kitchen" {
		t.Fatalf("loaded sensor = %+v", s)
	}
	if loaded.Default != "abc" {
		t.Errorf("Default = %q", loaded.Default)
	}
}

func TestLoadRegistryRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensors.yaml")
	if err := os.WriteFile(path, []byte("version: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistryFrom(path); err == nil {
		t.Error("LoadRegistryFrom() error = nil, want unsupported version")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := NewRegistry("").Save(); err == nil {
		t.Error("Save() error = nil, want error")
	}
}
