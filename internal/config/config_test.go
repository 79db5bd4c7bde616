package config

import (
	"strings"
	"testing"
)

func TestLoadWithDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_ADDRESS", ":9999")
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("server address = %s", cfg.Server.Address)
	}
	if cfg.Kafka.Topic == "" {
		t.Fatalf("kafka topic default missing")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("Load should fail without JWT_SECRET")
	}
}

func TestStringMasksSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s := cfg.String(); s == "" || strings.Contains(s, "super-secret") {
		t.Fatalf("config string leaks secret: %s", s)
	}
}
