package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"), map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Storage.Backend != StorageFile || cfg.Storage.DataDir != "data" || cfg.Quiz.Difficulty != "medium" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  timePerQuestion: 20s
  topics: [Biology]
  difficulty: hard
storage:
  backend: redis
player:
  name: Ada
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadWithEnv(path, map[string]string{
		"QUIZ_SERVER_PORT": "7070",
		"QUIZ_TOPICS":      "Planets,Mixed",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env should override port, got %s", cfg.Server.Port)
	}
	if len(cfg.Quiz.Topics) != 2 || cfg.Quiz.Topics[0] != "Planets" || cfg.Quiz.Topics[1] != "Mixed" {
		t.Fatalf("env topics not applied: %v", cfg.Quiz.Topics)
	}
	if cfg.Player.Name != "Ada" || cfg.Quiz.Difficulty != "hard" || cfg.Storage.Backend != StorageRedis {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if got := TTLDuration(cfg.Quiz.TimePerQuestion, time.Second); got != 20*time.Second {
		t.Fatalf("expected 20s, got %s", got)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	if _, err := LoadWithEnv("", map[string]string{"QUIZ_STORAGE_BACKEND": "floppy"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := LoadWithEnv("", map[string]string{"QUIZ_STORAGE_BACKEND": "redis"}); err == nil {
		t.Fatalf("expected missing redis addr error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %s", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
