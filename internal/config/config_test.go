package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var managedKeys = []string{
	"APP_PORT", "STORAGE_BACKEND", "DATA_DIR", "WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID",
	"META_VERIFY_TOKEN", "WHATSAPP_MANAGER_ID", "GOOGLE_SHEETS_CREDENTIALS_PATH",
	"GOOGLE_SHEET_DATABASE_ID", "REPORT_CRON_SCHEDULE", "TIMEZONE", "CURRENCY_LABEL",
	"MONGODB_URI", "MONGODB_DB_NAME", "LOG_LEVEL",
}

// clearEnv unsets every variable Load reads; godotenv never overrides a
// variable that is already present, even when empty.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Storage.Backend != BackendFile || cfg.Storage.DataDir != "./data" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Reporting.Currency != "Rs." || cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatalf("unexpected optional defaults: %+v", cfg)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nSTORAGE_BACKEND=mongodb\nMONGODB_URI=mongodb://localhost:27017\nCURRENCY_LABEL=INR\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Storage.Backend != BackendMongoDB || cfg.MongoDB.DBName != "dairy" || cfg.Reporting.Currency != "INR" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080"},
		Storage:   StorageConfig{Backend: BackendMemory},
		WhatsApp:  WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
		Reporting: ReportingConfig{CronSchedule: "0 20 * * 5", Timezone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errHas string
	}{
		{"ok", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "STORAGE_BACKEND"},
		{"mongo without uri", func(c *Config) { c.Storage.Backend = BackendMongoDB }, "MONGODB_URI"},
		{"file without dir", func(c *Config) { c.Storage.Backend = BackendFile }, "DATA_DIR"},
		{"partial whatsapp", func(c *Config) { c.WhatsApp.AccessToken = "tok" }, "WHATSAPP_PHONE_NUMBER_ID"},
		{"partial sheets", func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{"bad timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Base" }, "TIMEZONE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.errHas == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errHas) {
				t.Fatalf("expected error containing %q, got %v", tc.errHas, err)
			}
		})
	}
}
