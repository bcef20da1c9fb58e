package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("PARAMI_DB_PATH", "/tmp/test.db")
	t.Setenv("PARAMI_TOKENS", "wolf:test_token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("expected db path /tmp/test.db, got %s", cfg.DBPath)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}

	if cfg.RotationMode != RotationDaily {
		t.Errorf("expected default rotation mode daily, got %s", cfg.RotationMode)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	t.Setenv("PARAMI_DB_PATH", "")
	t.Setenv("PARAMI_TOKENS", "")

	_, err := Load("")
	if err == nil {
		t.Error("expected error when missing required config")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		tokens string
		mode   string
	}{
		{"malformed token pair", "wolf", "daily"},
		{"empty actor", ":secret", "daily"},
		{"shared token", "wolf:same,wife:same", "daily"},
		{"unknown rotation mode", "wolf:t", "random"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PARAMI_DB_PATH", "/tmp/d")
			t.Setenv("PARAMI_TOKENS", tt.tokens)
			t.Setenv("PARAMI_ROTATION_MODE", tt.mode)

			if _, err := Load(""); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestActorFromToken(t *testing.T) {
	t.Setenv("PARAMI_DB_PATH", "/tmp/d")
	t.Setenv("PARAMI_TOKENS", "wolf:wolf_secret, wife:wife_secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	tests := []struct {
		token     string
		wantActor string
		wantValid bool
	}{
		{"wolf_secret", "wolf", true},
		{"wife_secret", "wife", true},
		{"invalid", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		actor, valid := cfg.ActorFromToken(tc.token)
		if actor != tc.wantActor || valid != tc.wantValid {
			t.Errorf("ActorFromToken(%q) = (%q, %v), want (%q, %v)",
				tc.token, actor, valid, tc.wantActor, tc.wantValid)
		}
	}

	actors := cfg.Actors()
	sort.Strings(actors)
	if len(actors) != 2 || actors[0] != "wife" || actors[1] != "wolf" {
		t.Errorf("Actors() = %v", actors)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("PARAMI_DB_PATH", "/tmp/d")
	t.Setenv("PARAMI_TOKENS", "wolf:t")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Timezone != "Europe/London" {
		t.Errorf("expected timezone Europe/London, got %s", cfg.Timezone)
	}
	if cfg.VaultPath != "" {
		t.Errorf("expected empty vault path, got %s", cfg.VaultPath)
	}
	if cfg.Log.Level != "info" || cfg.Log.MaxSize != 10 || cfg.Log.MaxBackups != 3 || !cfg.Log.Compress {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestConfigFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := "port: \"9090\"\ndb_path: /var/lib/parami.db\ntokens: wolf:file_token\nrotation_mode: queue\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PARAMI_PORT", "7070")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("expected env override 7070, got %s", cfg.Port)
	}
	if cfg.DBPath != "/var/lib/parami.db" || cfg.RotationMode != RotationQueue || cfg.Log.Level != "debug" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if actor, ok := cfg.ActorFromToken("file_token"); !ok || actor != "wolf" {
		t.Errorf("ActorFromToken(file_token) = (%q, %v)", actor, ok)
	}
}

func TestWithTokens(t *testing.T) {
	cfg := (Config{}).WithTokens(map[string]string{"wolf": "abc"})
	if actor, ok := cfg.ActorFromToken("abc"); !ok || actor != "wolf" {
		t.Errorf("ActorFromToken(abc) = (%q, %v)", actor, ok)
	}
}
