package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey string

	WalletDir       string
	MSPID           string
	PeerEndpoint    string
	PeerHostAlias   string
	PeerTLSCertPath string
	ChannelName     string
	ChaincodeName   string

	SchedulerIntervalSeconds int
	AnalyticsTTLSeconds      int
	SigningTimeoutSeconds    int

	EligibilityPolicyPath string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:    addr,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		WalletDir:       envDefault("WALLET_DIR", "wallet"),
		MSPID:           envDefault("MSP_ID", "Org1MSP"),
		PeerEndpoint:    envDefault("PEER_ENDPOINT", "localhost:7051"),
		PeerHostAlias:   envDefault("PEER_HOST_ALIAS", "peer0.org1.example.com"),
		PeerTLSCertPath: os.Getenv("PEER_TLS_CERT_PATH"),
		ChannelName:     envDefault("CHANNEL_NAME", "mychannel"),
		ChaincodeName:   envDefault("CHAINCODE_NAME", "basic"),

		SchedulerIntervalSeconds: envIntDefault("SCHEDULER_INTERVAL_SECONDS", 60),
		AnalyticsTTLSeconds:      envIntDefault("ANALYTICS_CACHE_TTL_SECONDS", 300),
		SigningTimeoutSeconds:    envIntDefault("SIGNING_TIMEOUT_SECONDS", 30),

		EligibilityPolicyPath: envDefault("ELIGIBILITY_POLICY_PATH", "policy/eligibility_v0"),

		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalSeconds) * time.Second
}

func (c Config) AnalyticsTTL() time.Duration {
	return time.Duration(c.AnalyticsTTLSeconds) * time.Second
}

func (c Config) SigningTimeout() time.Duration {
	return time.Duration(c.SigningTimeoutSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
