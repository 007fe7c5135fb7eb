package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
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

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "folio")
	p := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := sample{Count: 3}
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "folio" || s.Count != 3 {
		t.Errorf("loaded = %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Error("expected error for missing file")
	}
	if err := Load(writeFile(t, "name: [unclosed"), &s); err == nil {
		t.Error("expected parse error")
	}
	err := Load(writeFile(t, "count: -1\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("validation error = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}

	s = sample{Count: -5}
	if err := LoadOptional("", &s); err == nil {
		t.Error("defaults should still be validated")
	}
}
