package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_URI", "")
	t.Setenv("TOKEN_EXPIRE_MINUTES", "")
	cfg := FromEnv()
	if cfg.StoreURI != "memory://" {
		t.Fatalf("expected memory store, got %q", cfg.StoreURI)
	}
	if cfg.TokenLifetime() != 120*time.Minute {
		t.Fatalf("expected 120m lifetime, got %s", cfg.TokenLifetime())
	}
	if cfg.UserURI() != cfg.StoreURI || cfg.CustomListURI() != cfg.StoreURI {
		t.Fatalf("expected derived uris to follow STORE_URI")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mlte.yaml")
	data := []byte("store_uri: fs:///tmp/store\nbackend_port: 9000\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORE_URI", "")
	t.Setenv("BACKEND_PORT", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreURI != "fs:///tmp/store" || cfg.BackendPort != 9000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env to win, got %q", cfg.LogLevel)
	}
}

func TestCatalogsParsesReadOnlyMarker(t *testing.T) {
	cfg := Config{CatalogURIs: "local=memory://, shared!=fs:///srv/catalog"}
	specs, err := cfg.Catalogs()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 catalogs, got %d", len(specs))
	}
	if specs[0].ID != "local" || specs[0].ReadOnly {
		t.Fatalf("unexpected first catalog %+v", specs[0])
	}
	if specs[1].ID != "shared" || !specs[1].ReadOnly || specs[1].URI != "fs:///srv/catalog" {
		t.Fatalf("unexpected second catalog %+v", specs[1])
	}
	if _, err := (Config{CatalogURIs: "broken"}).Catalogs(); err == nil {
		t.Fatalf("expected error for missing uri")
	}
}
