package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNPassthrough(t *testing.T) {
	db := DBConfig{DSN: "postgres://u:p@localhost:5432/cartdash"}
	if err := db.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.DSN != "postgres://u:p@localhost:5432/cartdash" {
		t.Fatalf("DSN should be untouched, got %q", db.DSN)
	}
}

func TestEnsureDSNFromLegacyFields(t *testing.T) {
	db := DBConfig{
		LegacyHost:     "db.internal",
		LegacyPort:     5433,
		LegacyUser:     "cartdash",
		LegacyPassword: "s3cret",
		LegacyName:     "dispatch",
		LegacySSLMode:  "require",
	}
	if err := db.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fragment := range []string{"db.internal:5433", "dispatch", "sslmode=require", "cartdash:s3cret"} {
		if !strings.Contains(db.DSN, fragment) {
			t.Fatalf("DSN %q missing %q", db.DSN, fragment)
		}
	}
}

func TestEnsureDSNMissingLegacyFields(t *testing.T) {
	db := DBConfig{LegacyHost: "db.internal"}
	err := db.ensureDSN()
	if err == nil {
		t.Fatal("expected error when user and name are missing")
	}
	if !strings.Contains(err.Error(), EnvDBUser) || !strings.Contains(err.Error(), EnvDBName) {
		t.Fatalf("error should name the missing variables: %v", err)
	}
}

func TestAppEnvHelpers(t *testing.T) {
	app := AppConfig{Env: "DEV"}
	if !app.IsDev() || app.IsProd() {
		t.Fatalf("expected dev environment, got %+v", app)
	}
	app.Env = "prod"
	if !app.IsProd() || app.IsDev() {
		t.Fatalf("expected prod environment, got %+v", app)
	}
}
