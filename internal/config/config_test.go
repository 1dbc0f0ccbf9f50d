package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFailOn(t *testing.T) {
	cases := []struct {
		in   string
		want FailOn
		ok   bool
	}{
		{"ERROR", FailOnError, true},
		{"warn", FailOnWarn, true},
		{" Never ", FailOnNever, true},
		{"sometimes", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseFailOn(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ParseFailOn(%q): err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFailOn(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseCurrency != "USD" {
		t.Errorf("BaseCurrency = %s", cfg.BaseCurrency)
	}
	if cfg.FailOn != FailOnError {
		t.Errorf("FailOn = %s", cfg.FailOn)
	}
	if len(cfg.AllowedCurrencies) != 3 {
		t.Errorf("AllowedCurrencies = %v", cfg.AllowedCurrencies)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`base_currency: eur
allowed_currencies: [eur, usd]
fail_on: never
curated_dir: out/curated
warehouse:
  project_id: demo-project
  dataset: finance
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseCurrency != "EUR" {
		t.Errorf("BaseCurrency = %s, want EUR", cfg.BaseCurrency)
	}
	if cfg.FailOn != FailOnNever {
		t.Errorf("FailOn = %s, want NEVER", cfg.FailOn)
	}
	if cfg.CuratedDir != "out/curated" {
		t.Errorf("CuratedDir = %s", cfg.CuratedDir)
	}
	if cfg.Warehouse.ProjectID != "demo-project" || cfg.Warehouse.Dataset != "finance" {
		t.Errorf("Warehouse = %+v", cfg.Warehouse)
	}
}

func TestLoadRejectsBaseOutsideAllowed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`base_currency: GBP
allowed_currencies: [USD, TZS]
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("base currency outside the allowed set must be rejected")
	}
}
