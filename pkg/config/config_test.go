package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("VALET_TEST_NAME", "desk-1")
	p := writeFile(t, "name: ${VALET_TEST_NAME}\nport: 9000\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "desk-1" || s.Port != 9000 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	p := writeFile(t, "name: x\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	if err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("defaults overwritten: %+v", s)
	}

	var empty sample
	if err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"), &empty); err == nil {
		t.Fatal("defaults still go through validation")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeFile(t, "port: 9100\n")
	s := sample{Name: "default", Port: 8080}
	if err := LoadOrDefault(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" || s.Port != 9100 {
		t.Errorf("got %+v", s)
	}
}
