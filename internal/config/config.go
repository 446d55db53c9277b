package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string

	// Backend the client talks to
	BackendURL     string
	WebSocketURL   string
	RequestTimeout time.Duration
	AuthProvider   string
	JWKSURL        string

	SupabaseURL     string
	SupabaseAnonKey string

	// Optional stores
	MongoDBURI      string
	MongoDBPassword string
	SelectionTTL    time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	WindowCacheTTL  time.Duration

	// Realtime
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
	ReconnectAttempts int
	TypingTimeout     time.Duration
	PingPeriod        time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnvWithDefault("PORT", "8080"),
		Environment:     getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		AllowedOrigins:  splitList(getEnvWithDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
		BackendURL:      strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		WebSocketURL:    strings.TrimRight(os.Getenv("WS_URL"), "/"),
		AuthProvider:    getEnvWithDefault("AUTH_PROVIDER", "backend"),
		JWKSURL:         os.Getenv("JWKS_URL"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey: os.Getenv("SUPABASE_URL_ANON_KEY"),
		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 12*time.Second); err != nil {
		return nil, err
	}
	if cfg.SelectionTTL, err = getDuration("SELECTION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WindowCacheTTL, err = getDuration("WINDOW_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = getDuration("WS_RECONNECT_DELAY", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectMaxDelay, err = getDuration("WS_RECONNECT_MAX_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TypingTimeout, err = getDuration("TYPING_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PingPeriod, err = getDuration("WS_PING_PERIOD", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectAttempts, err = getInt("WS_RECONNECT_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	if cfg.WebSocketURL == "" {
		cfg.WebSocketURL = deriveWebSocketURL(cfg.BackendURL)
	}
	switch cfg.AuthProvider {
	case "backend":
	case "supabase":
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("SUPABASE_URL is required when AUTH_PROVIDER=supabase")
		}
		if cfg.SupabaseAnonKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL_ANON_KEY is required when AUTH_PROVIDER=supabase")
		}
	default:
		return nil, fmt.Errorf("AUTH_PROVIDER must be backend or supabase, got %q", cfg.AuthProvider)
	}
	if cfg.MongoDBURI != "" && strings.Contains(cfg.MongoDBURI, "<password>") && cfg.MongoDBPassword == "" {
		return nil, fmt.Errorf("MONGODB_PASSWORD is required for the configured MONGODB_URI")
	}
	if cfg.ReconnectAttempts < 1 {
		return nil, fmt.Errorf("WS_RECONNECT_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 12s, got %q", key, value)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// deriveWebSocketURL maps http(s)://host to ws(s)://host.
func deriveWebSocketURL(backendURL string) string {
	switch {
	case strings.HasPrefix(backendURL, "https://"):
		return "wss://" + strings.TrimPrefix(backendURL, "https://")
	case strings.HasPrefix(backendURL, "http://"):
		return "ws://" + strings.TrimPrefix(backendURL, "http://")
	}
	return backendURL
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
