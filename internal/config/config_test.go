package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.TeacherPIN != "1234" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "addr: \":9090\"\nteacher_pin: \"9999\"\nseed: true\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CLASSBANK_TEACHER_PIN", "5678")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q, want file value", cfg.Addr)
	}
	if cfg.TeacherPIN != "5678" {
		t.Fatalf("teacher pin = %q, want env override", cfg.TeacherPIN)
	}
	if !cfg.Seed || cfg.Logging.Level != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/definitely/not/here.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
