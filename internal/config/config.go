package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	StoreURI           string `yaml:"store_uri"`
	UserStoreURI       string `yaml:"user_store_uri"`
	CustomListStoreURI string `yaml:"custom_list_store_uri"`
	CatalogURIs        string `yaml:"catalog_uris"`

	BackendHost    string `yaml:"backend_host"`
	BackendPort    int    `yaml:"backend_port"`
	FrontendHost   string `yaml:"frontend_host"`
	FrontendPort   int    `yaml:"frontend_port"`
	AllowedOrigins string `yaml:"allowed_origins"`
	APIPrefix      string `yaml:"api_prefix"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	JWTSecretKey         string `yaml:"jwt_secret_key"`
	TokenExpireMinutes   int    `yaml:"token_expire_minutes"`
	DefaultAdminPassword string `yaml:"default_admin_password"`
	AuthzEngine          string `yaml:"authz_engine"`

	CatalogValidateTags bool `yaml:"catalog_validate_tags"`
	HTTPTimeoutSeconds  int  `yaml:"http_timeout_seconds"`

	RateLimitRequests      int  `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int  `yaml:"rate_limit_window_seconds"`
	RateLimitFailClosed    bool `yaml:"rate_limit_fail_closed"`
	RateLimitMaxKeys       int  `yaml:"rate_limit_max_keys"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	OTelEndpoint    string `yaml:"otel_endpoint"`
	OTelServiceName string `yaml:"otel_service_name"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`
}

const (
	AuthzNative = "native"
	AuthzOPA    = "opa"
)

func Defaults() Config {
	return Config{
		StoreURI:               "memory://",
		BackendHost:            "localhost",
		BackendPort:            8080,
		FrontendHost:           "localhost",
		FrontendPort:           8000,
		APIPrefix:              "/api",
		LogLevel:               "info",
		LogFormat:              "text",
		TokenExpireMinutes:     120,
		DefaultAdminPassword:   "admin1234",
		AuthzEngine:            AuthzNative,
		HTTPTimeoutSeconds:     30,
		RateLimitWindowSeconds: 60,
		RateLimitMaxKeys:       10000,
		OTelServiceName:        "mlte",
		MetricsEnabled:         true,
	}
}

// FromEnv reads the process environment over the defaults.
func FromEnv() Config {
	return Defaults().overlayEnv()
}

// Load reads an optional YAML file and then the environment; env wins.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		path = os.Getenv("MLTE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg.overlayEnv(), nil
}

func (c Config) overlayEnv() Config {
	c.StoreURI = envDefault("STORE_URI", c.StoreURI)
	c.UserStoreURI = envDefault("USER_STORE_URI", c.UserStoreURI)
	c.CustomListStoreURI = envDefault("CUSTOM_LIST_STORE_URI", c.CustomListStoreURI)
	c.CatalogURIs = envDefault("CATALOG_URIS", c.CatalogURIs)
	c.BackendHost = envDefault("BACKEND_HOST", c.BackendHost)
	c.BackendPort = envIntDefault("BACKEND_PORT", c.BackendPort)
	c.FrontendHost = envDefault("FRONTEND_HOST", c.FrontendHost)
	c.FrontendPort = envIntDefault("FRONTEND_PORT", c.FrontendPort)
	c.AllowedOrigins = envDefault("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.APIPrefix = envDefault("API_PREFIX", c.APIPrefix)
	c.LogLevel = envDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envDefault("LOG_FORMAT", c.LogFormat)
	c.JWTSecretKey = envDefault("JWT_SECRET_KEY", c.JWTSecretKey)
	c.TokenExpireMinutes = envIntDefault("TOKEN_EXPIRE_MINUTES", c.TokenExpireMinutes)
	c.DefaultAdminPassword = envDefault("DEFAULT_ADMIN_PASSWORD", c.DefaultAdminPassword)
	c.AuthzEngine = envDefault("AUTHZ_ENGINE", c.AuthzEngine)
	c.CatalogValidateTags = envBoolDefault("CATALOG_VALIDATE_TAGS", c.CatalogValidateTags)
	c.HTTPTimeoutSeconds = envIntDefault("HTTP_TIMEOUT_SECONDS", c.HTTPTimeoutSeconds)
	c.RateLimitRequests = envIntDefault("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindowSeconds = envIntDefault("RATE_LIMIT_WINDOW_SECONDS", c.RateLimitWindowSeconds)
	c.RateLimitFailClosed = envBoolDefault("RATE_LIMIT_FAIL_CLOSED", c.RateLimitFailClosed)
	c.RateLimitMaxKeys = envIntDefault("RATE_LIMIT_MAX_KEYS", c.RateLimitMaxKeys)
	c.RedisAddr = envDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envDefault("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = envIntDefault("REDIS_DB", c.RedisDB)
	c.OTelEndpoint = envDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTelEndpoint)
	c.OTelServiceName = envDefault("OTEL_SERVICE_NAME", c.OTelServiceName)
	c.MetricsEnabled = envBoolDefault("METRICS_ENABLED", c.MetricsEnabled)
	return c
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

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.BackendHost, c.BackendPort)
}

func (c Config) TokenLifetime() time.Duration {
	if c.TokenExpireMinutes <= 0 {
		return 120 * time.Minute
	}
	return time.Duration(c.TokenExpireMinutes) * time.Minute
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) UserURI() string {
	if c.UserStoreURI == "" {
		return c.StoreURI
	}
	return c.UserStoreURI
}

func (c Config) CustomListURI() string {
	if c.CustomListStoreURI == "" {
		return c.StoreURI
	}
	return c.CustomListStoreURI
}

// Origins splits ALLOWED_ORIGINS and always admits the frontend.
func (c Config) Origins() []string {
	out := []string{fmt.Sprintf("http://%s:%d", c.FrontendHost, c.FrontendPort)}
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type CatalogSpec struct {
	ID       string
	URI      string
	ReadOnly bool
}

// Catalogs parses CATALOG_URIS: comma separated id=uri pairs; an id ending
// in "!" is read-only.
func (c Config) Catalogs() ([]CatalogSpec, error) {
	var out []CatalogSpec
	for _, pair := range strings.Split(c.CatalogURIs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, uri, ok := strings.Cut(pair, "=")
		if !ok || id == "" || uri == "" {
			return nil, fmt.Errorf("invalid catalog entry %q: expected id=uri", pair)
		}
		spec := CatalogSpec{ID: strings.TrimSpace(id), URI: strings.TrimSpace(uri)}
		if strings.HasSuffix(spec.ID, "!") {
			spec.ID = strings.TrimSuffix(spec.ID, "!")
			spec.ReadOnly = true
		}
		out = append(out, spec)
	}
	return out, nil
}
