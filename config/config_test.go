package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/callbacks?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "callbacks-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "CALLBACKS_RETRY_BASE_DELAY_SECONDS", "90")
	setEnv(t, "CALLBACKS_RETRY_MULTIPLIER", "1.5")
	setEnv(t, "CALLBACKS_RETRY_MAX_DELAY_MINUTES", "120")
	setEnv(t, "CALLBACKS_RETRY_MAX_ATTEMPTS", "5")
	setEnv(t, "CALLBACKS_RETRY_JITTER_PCT", "0.1")
	setEnv(t, "CALLBACKS_RETRY_POLL_INTERVAL_SECONDS", "15")
	setEnv(t, "CALLBACKS_JOB_BATCH_SIZE", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "callbacks-test" {
		t.Fatalf("unexpected service name %q", cfg.App.ServiceName)
	}
	if cfg.HTTP.Host != "0.0.0.0" || cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected conn max lifetime %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Retry.BaseDelay != 90*time.Second {
		t.Fatalf("unexpected base delay %v", cfg.Retry.BaseDelay)
	}
	if cfg.Retry.Multiplier != 1.5 {
		t.Fatalf("unexpected multiplier %v", cfg.Retry.Multiplier)
	}
	if cfg.Retry.MaxDelay != 120*time.Minute {
		t.Fatalf("unexpected max delay %v", cfg.Retry.MaxDelay)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("unexpected max attempts %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.JitterPct != 0.1 {
		t.Fatalf("unexpected jitter pct %v", cfg.Retry.JitterPct)
	}
	if cfg.Jobs.RetryPollInterval != 15*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.Jobs.RetryPollInterval)
	}
	if cfg.Jobs.BatchSize != 99 {
		t.Fatalf("unexpected batch size %d", cfg.Jobs.BatchSize)
	}
}

func TestLoadGateways(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/callbacks?parseTime=true")
	setEnv(t, "GATEWAY_NAMES", "Acme-Pay, globalbank")
	setEnv(t, "GATEWAY_ACME_PAY_SECRET", "whsec_acme")
	setEnv(t, "GATEWAY_ACME_PAY_SIGNATURE_HEADER", "X-Acme-Signature")
	setEnv(t, "GATEWAY_ACME_PAY_SIGNATURE_TOLERANCE_SECONDS", "120")
	setEnv(t, "GATEWAY_ACME_PAY_ALLOW_OVERPAYMENT", "true")
	setEnv(t, "GATEWAY_GLOBALBANK_SECRET", "whsec_gb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(cfg.Gateways.HMAC) != 2 {
		t.Fatalf("expected 2 gateways, got %d", len(cfg.Gateways.HMAC))
	}

	acme := cfg.Gateways.HMAC[0]
	if acme.Name != "acme-pay" {
		t.Fatalf("expected lowercased name, got %q", acme.Name)
	}
	if acme.Secret != "whsec_acme" || acme.SignatureHeader != "X-Acme-Signature" {
		t.Fatalf("unexpected acme config %+v", acme)
	}
	if acme.ToleranceSeconds != 120 || !acme.AllowOverpayment {
		t.Fatalf("unexpected acme config %+v", acme)
	}

	gb := cfg.Gateways.HMAC[1]
	if gb.Name != "globalbank" || gb.Secret != "whsec_gb" {
		t.Fatalf("unexpected globalbank config %+v", gb)
	}
	if gb.SignatureHeader != "X-Signature" || gb.ToleranceSeconds != 300 || gb.AllowOverpayment {
		t.Fatalf("expected globalbank defaults, got %+v", gb)
	}
}
