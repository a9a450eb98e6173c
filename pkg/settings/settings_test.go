package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetDesignFile(); got != "design.yaml" {
		t.Errorf("GetDesignFile() default = %q, want %q", got, "design.yaml")
	}
	if s.GetRedisAddr() != "" {
		t.Errorf("GetRedisAddr() should be empty, got %q", s.GetRedisAddr())
	}
}

func TestSettings_GetSet(t *testing.T) {
	s := &Settings{}

	tests := []struct {
		key   string
		value string
	}{
		{"org_id", "549236"},
		{"org_name", "Lab Org"},
		{"design_file", "/etc/netcam/design.yaml"},
		{"base_url", "https://api.meraki.ca/api/v1"},
		{"redis_addr", "127.0.0.1:6379"},
		{"redis_db", "3"},
		{"metrics_addr", ":9273"},
		{"concurrency", "8"},
	}
	for _, tt := range tests {
		if err := s.Set(tt.key, tt.value); err != nil {
			t.Fatalf("Set(%q) failed: %v", tt.key, err)
		}
		got, err := s.Get(tt.key)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", tt.key, err)
		}
		if got != tt.value {
			t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
		}
	}

	if s.RedisDB != 3 || s.Concurrency != 8 {
		t.Errorf("integer settings not stored: redis_db=%d concurrency=%d", s.RedisDB, s.Concurrency)
	}
	if s.GetDesignFile() != "/etc/netcam/design.yaml" {
		t.Errorf("GetDesignFile() = %q", s.GetDesignFile())
	}

	if err := s.Set("concurrency", ""); err != nil {
		t.Fatalf("clearing concurrency failed: %v", err)
	}
	if s.Concurrency != 0 {
		t.Errorf("concurrency not cleared: %d", s.Concurrency)
	}
}

func TestSettings_SetErrors(t *testing.T) {
	s := &Settings{}

	err := s.Set("api_key", "secret")
	if err == nil {
		t.Fatal("Set(api_key) should fail: the key is never persisted")
	}
	if !strings.Contains(err.Error(), "org_id") {
		t.Errorf("error should list valid keys, got %v", err)
	}

	for _, v := range []string{"many", "-1"} {
		if err := s.Set("concurrency", v); err == nil {
			t.Errorf("Set(concurrency, %q) should fail", v)
		}
	}

	if _, err := s.Get("nope"); err == nil {
		t.Error("Get(nope) should fail")
	}
}

func TestSettings_Keys(t *testing.T) {
	keys := Keys()
	if len(keys) != 8 {
		t.Fatalf("Keys() = %v, want 8 keys", keys)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("Keys() not sorted: %v", keys)
		}
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		OrgID:      "1",
		DesignFile: "/path",
		RedisAddr:  "localhost:6379",
		RedisDB:    2,
	}

	s.Clear()

	if *s != (Settings{}) {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	original := &Settings{
		OrgName:     "Lab Org",
		DesignFile:  "design.yaml",
		RedisAddr:   "127.0.0.1:6379",
		RedisDB:     1,
		MetricsAddr: ":9273",
		Concurrency: 2,
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("settings file mode = %o, want 600", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if *loaded != *original {
		t.Errorf("round trip mismatch: got %+v, want %+v", *loaded, *original)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/settings.json")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.OrgID != "" || s.DesignFile != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{invalid json"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() invalid JSON should return error")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	path := DefaultSettingsPath()
	if !strings.HasSuffix(path, filepath.Join(".netcam-meraki", "settings.json")) &&
		path != "netcam-meraki_settings.json" {
		t.Errorf("DefaultSettingsPath() = %q", path)
	}
}

func TestDefaultAuditPath(t *testing.T) {
	if got, want := filepath.Dir(DefaultAuditPath()), filepath.Dir(DefaultSettingsPath()); got != want {
		t.Errorf("audit log dir = %q, want %q", got, want)
	}
}
