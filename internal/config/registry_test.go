package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "sprk") {
		t.Errorf("GetConfigDir() = %v, should contain 'sprk'", configDir)
	}

	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg", "sprk") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME/sprk", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Robots == nil {
		t.Error("NewRegistry().Robots should not be nil")
	}
	if reg.Preferences.Timeout != DefaultTimeout {
		t.Errorf("NewRegistry().Preferences.Timeout = %v, want %v", reg.Preferences.Timeout, DefaultTimeout)
	}
	if reg.Preferences.StreamRate != DefaultStreamRate {
		t.Errorf("NewRegistry().Preferences.StreamRate = %v, want %v", reg.Preferences.StreamRate, DefaultStreamRate)
	}
}

func TestRegistryEnsureRobot(t *testing.T) {
	reg := &Registry{Version: 1}

	robot := reg.EnsureRobot("/dev/rfcomm0")
	if robot == nil {
		t.Fatal("EnsureRobot() returned nil")
	}

	if again := reg.EnsureRobot("/dev/rfcomm0"); again != robot {
		t.Error("EnsureRobot() should return the existing entry")
	}
	if reg.GetRobot("missing") != nil {
		t.Error("GetRobot() should return nil for unknown address")
	}
}

func TestRegistryUpdateRobotLastSeen(t *testing.T) {
	reg := NewRegistry()
	before := time.Now()

	reg.UpdateRobotLastSeen("AA:BB", TransportBLE, "SK-1234")
	robot := reg.GetRobot("AA:BB")
	require.NotNil(t, robot)

	assert.Equal(t, TransportBLE, robot.Transport)
	assert.Equal(t, "SK-1234", robot.Name)
	assert.False(t, robot.LastSeen.Before(before))

	// An empty name keeps the one we had.
	reg.UpdateRobotLastSeen("AA:BB", TransportBLE, "")
	assert.Equal(t, "SK-1234", robot.Name)
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.SetRobotNickname("AA:BB", "kitchen")
	reg.UpdateRobotLastSeen("CC:DD", TransportBLE, "BB-8A2F")
	reg.EnsureRobot("EE:FF")

	tests := []struct {
		ref  string
		want string
	}{
		{"AA:BB", "AA:BB"},
		{"kitchen", "AA:BB"},
		{"KITCHEN", "AA:BB"},
		{"bb-8a2f", "CC:DD"},
		{"/dev/ttyUSB0", "/dev/ttyUSB0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.Resolve(tt.ref))
		})
	}

	reg.Preferences.DefaultRobot = "kitchen"
	assert.Equal(t, "AA:BB", reg.Resolve(""))
}

func TestRegistryDisplayName(t *testing.T) {
	reg := NewRegistry()
	reg.SetRobotNickname("AA:BB", "kitchen")
	reg.UpdateRobotLastSeen("CC:DD", TransportSerial, "SK-1")

	assert.Equal(t, "kitchen", reg.DisplayName("AA:BB"))
	assert.Equal(t, "SK-1", reg.DisplayName("CC:DD"))
	assert.Equal(t, "EE:FF", reg.DisplayName("EE:FF"))
	assert.Equal(t, []string{"AA:BB", "CC:DD"}, reg.Addresses())
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.SetRobotNickname("AA:BB", "kitchen")
	reg.Preferences.Timeout = 750 * time.Millisecond
	reg.Preferences.MaskTableDir = "/etc/sprk/masks"
	require.NoError(t, reg.SaveFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# sprk configuration file"))
	assert.Contains(t, string(data), "timeout: 750ms")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", loaded.GetRobot("AA:BB").Nickname)
	assert.Equal(t, 750*time.Millisecond, loaded.Preferences.Timeout)
	assert.Equal(t, "/etc/sprk/masks", loaded.Preferences.MaskTableDir)
}

func TestLoadFile_Missing(t *testing.T) {
	reg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Version)
	assert.Empty(t, reg.Robots)
}

func TestLoadFile_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\npreferences:\n  stream_rate: 40\n"), 0600))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 40, reg.Preferences.StreamRate)
	assert.Equal(t, DefaultTimeout, reg.Preferences.Timeout)
	assert.Equal(t, DefaultScanTimeout, reg.Preferences.ScanTimeout)
	assert.NotNil(t, reg.Robots)
}

func TestLoadFile_BadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 2\n"), 0600))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unsupported config version")
}

func BenchmarkEnsureRobot(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureRobot("AA:BB")
	}
}
