package config

import (
	"os"
	"testing"
)

func unsetBotEnv() {
	_ = os.Unsetenv("MNEMOCARD_BOT_TOKEN")
	_ = os.Unsetenv("MNEMOCARD_DB_DRIVER")
	_ = os.Unsetenv("MNEMOCARD_POSTGRES_DSN")
	_ = os.Unsetenv("MNEMOCARD_SQLITE_PATH")
	_ = os.Unsetenv("MNEMOCARD_HTTP_PORT")
	_ = os.Unsetenv("MNEMOCARD_PER_PAGE")
}

func TestConfigLoad_Defaults(t *testing.T) {
	unsetBotEnv()
	_ = os.Setenv("MNEMOCARD_BOT_TOKEN", "123:abc")
	defer unsetBotEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.WebhookPath != "/api/updates" || cfg.PerPage != 8 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TelegramBaseURL != "https://api.telegram.org" {
		t.Fatalf("unexpected base URL: %s", cfg.TelegramBaseURL)
	}
}

func TestConfigLoad_MissingToken(t *testing.T) {
	unsetBotEnv()

	if _, err := New(); err == nil {
		t.Fatal("expected error for missing bot token")
	}
}

func TestResolveDefaultsAutoSQLite(t *testing.T) {
	unsetBotEnv()
	_ = os.Setenv("MNEMOCARD_BOT_TOKEN", "123:abc")
	defer unsetBotEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.SQLitePath == "" {
		t.Fatalf("unexpected driver mapping: %s %s", cfg.DBDriver, cfg.SQLitePath)
	}
}

func TestResolveDefaultsAutoPostgres(t *testing.T) {
	unsetBotEnv()
	_ = os.Setenv("MNEMOCARD_BOT_TOKEN", "123:abc")
	_ = os.Setenv("MNEMOCARD_POSTGRES_DSN", "postgres://localhost/mnemocard")
	defer unsetBotEnv()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres, got %s", cfg.DBDriver)
	}
}

func TestResolveDefaultsPostgresRequiresDSN(t *testing.T) {
	unsetBotEnv()
	_ = os.Setenv("MNEMOCARD_BOT_TOKEN", "123:abc")
	_ = os.Setenv("MNEMOCARD_DB_DRIVER", "postgres")
	defer unsetBotEnv()

	if _, err := New(); err == nil {
		t.Fatal("expected error for postgres driver without DSN")
	}
}

func TestResolveDefaultsUnknownDriver(t *testing.T) {
	unsetBotEnv()
	_ = os.Setenv("MNEMOCARD_BOT_TOKEN", "123:abc")
	_ = os.Setenv("MNEMOCARD_DB_DRIVER", "mongodb")
	defer unsetBotEnv()

	if _, err := New(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
