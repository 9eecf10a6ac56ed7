package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Retry    RetryConfig
	Jobs     JobsConfig
	Gateways GatewaysConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// RetryConfig shapes the redelivery backoff for callbacks that failed on a
// transient error.
type RetryConfig struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	MaxAttempts int32
	JitterPct   float64
}

type JobsConfig struct {
	RetryPollInterval time.Duration
	BatchSize         int32
}

// GatewaysConfig declares the payment backends callbacks are accepted from.
// Each entry becomes an HMAC-verified adapter in the gateway registry.
type GatewaysConfig struct {
	HMAC []HMACGatewayConfig
}

type HMACGatewayConfig struct {
	Name             string
	Secret           string
	SignatureHeader  string
	ToleranceSeconds int64
	AllowOverpayment bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "callbacks-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Retry: RetryConfig{
			BaseDelay:   getSecondsEnv("CALLBACKS_RETRY_BASE_DELAY_SECONDS", time.Minute),
			Multiplier:  getFloatEnv("CALLBACKS_RETRY_MULTIPLIER", 2.0),
			MaxDelay:    getMinutesEnv("CALLBACKS_RETRY_MAX_DELAY_MINUTES", time.Hour),
			MaxAttempts: int32(getIntEnv("CALLBACKS_RETRY_MAX_ATTEMPTS", 10)),
			JitterPct:   getFloatEnv("CALLBACKS_RETRY_JITTER_PCT", 0.2),
		},
		Jobs: JobsConfig{
			RetryPollInterval: getSecondsEnv("CALLBACKS_RETRY_POLL_INTERVAL_SECONDS", 30*time.Second),
			BatchSize:         int32(getIntEnv("CALLBACKS_JOB_BATCH_SIZE", 100)),
		},
		Gateways: GatewaysConfig{
			HMAC: loadHMACGateways(),
		},
	}, nil
}

// loadHMACGateways reads GATEWAY_NAMES as a comma-separated list and, for each
// entry, its per-gateway settings under GATEWAY_<NAME>_*.
func loadHMACGateways() []HMACGatewayConfig {
	var gateways []HMACGatewayConfig
	for _, raw := range strings.Split(getEnv("GATEWAY_NAMES", "dummy"), ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		prefix := "GATEWAY_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
		gateways = append(gateways, HMACGatewayConfig{
			Name:             name,
			Secret:           getEnv(prefix+"SECRET", ""),
			SignatureHeader:  getEnv(prefix+"SIGNATURE_HEADER", "X-Signature"),
			ToleranceSeconds: int64(getIntEnv(prefix+"SIGNATURE_TOLERANCE_SECONDS", 300)),
			AllowOverpayment: getBoolEnv(prefix+"ALLOW_OVERPAYMENT", false),
		})
	}
	return gateways
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
