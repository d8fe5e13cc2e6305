package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Queue.ClaimTTL != 2*time.Minute {
		t.Fatalf("Queue.ClaimTTL = %v, want 2m", cfg.Queue.ClaimTTL)
	}
	if cfg.Generation.ValidationWorkers != 2 {
		t.Fatalf("Generation.ValidationWorkers = %d, want 2", cfg.Generation.ValidationWorkers)
	}
	if cfg.Telemetry.ServiceName != "roomhub" {
		t.Fatalf("Telemetry.ServiceName = %q, want %q", cfg.Telemetry.ServiceName, "roomhub")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("ROOMHUB_SERVER_HOST", "127.0.0.1")
	t.Setenv("ROOMHUB_SERVER_PORT", "4000")
	t.Setenv("ROOMHUB_DATABASE_DRIVER", "postgres")
	t.Setenv("ROOMHUB_DATABASE_DSN", "postgres://example")
	t.Setenv("ROOMHUB_GENERATION_BINARY_PATH", "/usr/local/bin/apgen")
	t.Setenv("ROOMHUB_TELEMETRY_OTLP_ENDPOINT", "http://collector:4318")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 4000 {
		t.Fatalf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("Database.Driver = %q, want %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database.DSN = %q, want %q", cfg.Database.DSN, "postgres://example")
	}
	if cfg.Generation.BinaryPath != "/usr/local/bin/apgen" {
		t.Fatalf("Generation.BinaryPath = %q, want %q", cfg.Generation.BinaryPath, "/usr/local/bin/apgen")
	}
	if cfg.Telemetry.OTLPEndpoint != "http://collector:4318" {
		t.Fatalf("Telemetry.OTLPEndpoint = %q, want %q", cfg.Telemetry.OTLPEndpoint, "http://collector:4318")
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roomhub.yaml")
	yamlBody := "server:\n  host: 10.0.0.1\n  port: 9090\nindex:\n  catalog_path: /etc/roomhub/catalog.yaml\ngeneration:\n  output_dir: /var/roomhub/out\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "10.0.0.1" {
		t.Fatalf("Server.Host = %q, want %q", cfg.Server.Host, "10.0.0.1")
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Index.CatalogPath != "/etc/roomhub/catalog.yaml" {
		t.Fatalf("Index.CatalogPath = %q, want %q", cfg.Index.CatalogPath, "/etc/roomhub/catalog.yaml")
	}

	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("ValidateServe: %v", err)
	}
}

func TestValidateServeRejectsMissingCatalogPath(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	cfg.Index.CatalogPath = ""

	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("expected ValidateServe to reject an empty catalog path")
	}
}

func TestAddrFormatsHostAndPort(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080

	if got, want := cfg.Addr(), "0.0.0.0:8080"; got != want {
		t.Fatalf("Addr() = %q, want %q", got, want)
	}
}
