package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "redis", Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

func TestValidate_MemoryDriverNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "memory"
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "sqlite"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	expected := `database.driver must be "redis" or "memory", got "sqlite"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Export.DefaultPageSize = 500
	cfg.Export.MaxPageSize = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestValidate_APIKeys(t *testing.T) {
	tests := []struct {
		name    string
		keys    []APIKeyConfig
		wantErr bool
	}{
		{"valid", []APIKeyConfig{{Key: "k1", Capabilities: []string{"edit_views"}}}, false},
		{"empty key", []APIKeyConfig{{Key: ""}}, true},
		{"duplicate", []APIKeyConfig{{Key: "k1"}, {Key: "k1"}}, true},
		{"unknown capability", []APIKeyConfig{{Key: "k1", Capabilities: []string{"root"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Auth.APIKeys = tt.keys
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.KeyPrefix != "entrydex:" {
		t.Errorf("key prefix = %q", cfg.Database.KeyPrefix)
	}
	if cfg.Export.DefaultPageSize != 25 || cfg.Export.MaxPageSize != 300 {
		t.Errorf("page sizes = %d/%d", cfg.Export.DefaultPageSize, cfg.Export.MaxPageSize)
	}
	if !cfg.Export.WithBOM() {
		t.Error("BOM should default to enabled")
	}
	off := false
	cfg.Export.BOM = &off
	if cfg.Export.WithBOM() {
		t.Error("explicit bom: false ignored")
	}
}

func TestPrincipals(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.APIKeys = []APIKeyConfig{
		{Key: "k1", Principal: "editor", Capabilities: []string{"edit_views", "approve_entries"}},
		{Key: "k2"},
	}
	p := cfg.Principals()
	if len(p) != 2 {
		t.Fatalf("got %d principals", len(p))
	}
	if p["k1"].ID() != "editor" || !p["k1"].Can(access.CapApproveEntries) {
		t.Errorf("k1 = %+v", p["k1"])
	}
	if p["k2"].ID() != "key-1" || p["k2"].Can(access.CapEditViews) {
		t.Errorf("k2 = %+v", p["k2"])
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("ENTRYDEX_TEST_ADDR", "redis:6379")
	os.Unsetenv("ENTRYDEX_TEST_MISSING")

	got := string(expandEnvVars([]byte("a: ${ENTRYDEX_TEST_ADDR}\nb: ${ENTRYDEX_TEST_MISSING:-fallback}\nc: ${ENTRYDEX_TEST_MISSING}")))
	want := "a: redis:6379\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("ENTRYDEX_TEST_SECRET", "s3cret")
	path := filepath.Join(t.TempDir(), "test.yaml")
	doc := `
http:
  port: 9090
database:
  driver: memory
export:
  bom: false
  nonce_secret: ${ENTRYDEX_TEST_SECRET}
auth:
  api_keys:
    - key: abc
      principal: admin
      capabilities: [edit_views]
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Database.Driver != "memory" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Export.NonceSecret != "s3cret" || cfg.Export.WithBOM() {
		t.Errorf("export = %+v", cfg.Export)
	}
	if len(cfg.Auth.APIKeys) != 1 {
		t.Errorf("api keys = %+v", cfg.Auth.APIKeys)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("GetEnv() = %q", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("GetEnv() = %q", GetEnv())
	}
}

func TestLoad_LocalSample(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("EDITOR_API_KEY", "")
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("load local: %v", err)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("driver = %q, want memory", cfg.Database.Driver)
	}
	if cfg.Views.Path != "config/views.yaml" || cfg.Database.SeedPath != "config/seed.json" {
		t.Errorf("paths = %q / %q", cfg.Views.Path, cfg.Database.SeedPath)
	}
	if p, ok := cfg.Principals()["local-editor-key"]; !ok || !p.Can(access.CapEditViews) {
		t.Error("local editor key missing")
	}
}
