package config

import "testing"

func TestLoadRequiresOwner(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	t.Setenv("OWNER_NUMBER", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without owner number")
	}
}

func TestLoadAppliesEnvAndDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	t.Setenv("OWNER_NUMBER", "+254799999999")
	t.Setenv("DEFAULT_PREFIX", "!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OwnerNumber != "254799999999" {
		t.Fatalf("plus sign must be trimmed: %s", cfg.OwnerNumber)
	}
	if cfg.DefaultPrefix != "!" {
		t.Fatalf("env override lost: %s", cfg.DefaultPrefix)
	}
	if cfg.Warnings.KickThreshold != 3 || cfg.Capture.MaxMessages != 2000 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.BotName != "wasentry" {
		t.Fatalf("unexpected bot name: %s", cfg.BotName)
	}
}

func TestBuildLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := BuildLogger(level)
		if err != nil {
			t.Fatalf("level %s: %v", level, err)
		}
		_ = logger.Sync()
	}
}
