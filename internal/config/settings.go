package config

import (
	"strings"
	"time"
)

// Settings is the full application configuration. It is built once in main
// and handed to each component constructor instead of being read from the
// environment at call sites.
type Settings struct {
	Database  DatabaseSettings
	Redis     RedisSettings
	Gateway   GatewaySettings
	Identity  IdentitySettings
	Billing   BillingSettings
	Webhook   WebhookSettings
	Reconcile ReconcileSettings
	Queue     QueueSettings
	Storage   StorageSettings
	AutoBlacklistReasonCodes []string
}

type DatabaseSettings struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisSettings struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GatewaySettings struct {
	BaseURL        string
	APIKey         string
	SharedSecret   string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

type IdentitySettings struct {
	BaseURL     string
	APIKey      string
	MockMode    bool
	Timeout     time.Duration
	SampleSize  int
}

type BillingSettings struct {
	MinimumAmount   float64
	Currency        string
	Descriptor      string
	LifetimeCap     float64
	MaxAttemptCount int
}

type WebhookSettings struct {
	Token        string
	MaxBodyBytes int
	DedupTTL     time.Duration
	RateLimitMax int
	RateLimitWindow time.Duration
	MaxRetries   int
}

type ReconcileSettings struct {
	MinAge      time.Duration
	MaxAttempts int
	BulkLimit   int
	LockTTL     time.Duration
}

type QueueSettings struct {
	CriticalWorkers  int
	WebhookWorkers   int
	OperationWorkers int
	DefaultWorkers   int
}

type StorageSettings struct {
	Bucket   string
	Region   string
	Endpoint string
}

// Load assembles Settings from the environment with sane defaults.
func Load() Settings {
	return Settings{
		Database: DatabaseSettings{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "recoup"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisSettings{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Gateway: GatewaySettings{
			BaseURL:        GetEnv("GATEWAY_BASE_URL", "https://gateway.example.com/api"),
			APIKey:         GetEnv("GATEWAY_API_KEY", ""),
			SharedSecret:   GetEnv("GATEWAY_SHARED_SECRET", ""),
			ConnectTimeout: GetDurationEnv("GATEWAY_CONNECT_TIMEOUT", 5*time.Second),
			ReadTimeout:    GetDurationEnv("GATEWAY_READ_TIMEOUT", 30*time.Second),
		},
		Identity: IdentitySettings{
			BaseURL:    GetEnv("IDENTITY_BASE_URL", "https://identity.example.com/v1"),
			APIKey:     GetEnv("IDENTITY_API_KEY", ""),
			MockMode:   GetEnv("IDENTITY_MOCK_MODE", "false") == "true",
			Timeout:    GetDurationEnv("IDENTITY_TIMEOUT", 20*time.Second),
			SampleSize: GetIntEnv("IDENTITY_SAMPLE_SIZE", 25),
		},
		Billing: BillingSettings{
			MinimumAmount:   GetFloatEnv("BILLING_MINIMUM_AMOUNT", 1.00),
			Currency:        GetEnv("BILLING_CURRENCY", "EUR"),
			Descriptor:      GetEnv("BILLING_DESCRIPTOR", "RECOUP COLLECTION"),
			LifetimeCap:     GetFloatEnv("BILLING_LIFETIME_CAP", 5000.00),
			MaxAttemptCount: GetIntEnv("BILLING_MAX_ATTEMPTS", 3),
		},
		Webhook: WebhookSettings{
			Token:           GetEnv("WEBHOOK_TOKEN", ""),
			MaxBodyBytes:    GetIntEnv("WEBHOOK_MAX_BODY_BYTES", 64*1024),
			DedupTTL:        GetDurationEnv("WEBHOOK_DEDUP_TTL", 10*time.Minute),
			RateLimitMax:    GetIntEnv("WEBHOOK_RATE_LIMIT_MAX", 120),
			RateLimitWindow: GetDurationEnv("WEBHOOK_RATE_LIMIT_WINDOW", time.Minute),
			MaxRetries:      GetIntEnv("WEBHOOK_MAX_RETRIES", 3),
		},
		Reconcile: ReconcileSettings{
			MinAge:      GetDurationEnv("RECONCILE_MIN_AGE", 2*time.Hour),
			MaxAttempts: GetIntEnv("RECONCILE_MAX_ATTEMPTS", 10),
			BulkLimit:   GetIntEnv("RECONCILE_BULK_LIMIT", 200),
			LockTTL:     GetDurationEnv("RECONCILE_LOCK_TTL", 10*time.Minute),
		},
		Queue: QueueSettings{
			CriticalWorkers:  GetIntEnv("QUEUE_CRITICAL_WORKERS", 4),
			WebhookWorkers:   GetIntEnv("QUEUE_WEBHOOK_WORKERS", 4),
			OperationWorkers: GetIntEnv("QUEUE_OPERATION_WORKERS", 3),
			DefaultWorkers:   GetIntEnv("QUEUE_DEFAULT_WORKERS", 2),
		},
		Storage: StorageSettings{
			Bucket:   GetEnv("STORAGE_BUCKET", "recoup-files"),
			Region:   GetEnv("STORAGE_REGION", "eu-central-1"),
			Endpoint: GetEnv("STORAGE_ENDPOINT", ""),
		},
		AutoBlacklistReasonCodes: splitCSV(GetEnv("AUTO_BLACKLIST_REASON_CODES", "AC04,MD01,FRAD,AM04")),
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
