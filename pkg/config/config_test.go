package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

var errNoName = errors.New("name is required")

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errNoName
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CONFIG_NAME", "nomenclature")
	p := writeConfig(t, "name: ${TEST_CONFIG_NAME}\nport: 9090\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "nomenclature" || cfg.Port != 9090 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	p := writeConfig(t, "name: x\nprot: 9090\n")

	var cfg testConfig
	if err := Load(p, &cfg); err == nil {
		t.Fatal("misspelled key should fail")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeConfig(t, "")

	cfg := testConfig{Name: "preset"}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("empty file should keep defaults: %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_SET", "value")
	t.Setenv("TEST_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"${TEST_SET}", "value"},
		{"$TEST_SET/x", "value/x"},
		{"${TEST_SET:-fallback}", "value"},
		{"${TEST_EMPTY:-fallback}", "fallback"},
		{"${TEST_UNSET_VARIABLE:-./data}", "./data"},
		{"${TEST_UNSET_VARIABLE}", ""},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeConfig(t, "name: x\n")

	cfg := testConfig{Port: 8080}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Port)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeConfig(t, "port: 1\n")

	var cfg testConfig
	err := Load(p, &cfg)
	if !errors.Is(err, errNoName) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	p := writeConfig(t, "name: [unclosed\n")

	var cfg testConfig
	if err := Load(p, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWithDefaults_Fallback(t *testing.T) {
	def := writeConfig(t, "name: fallback\n")

	var cfg testConfig
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &cfg); err != nil {
		t.Fatalf("load with defaults: %v", err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("name = %q, want fallback", cfg.Name)
	}

	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &cfg); err == nil {
		t.Fatal("expected error without default file")
	}
}
