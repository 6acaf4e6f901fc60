package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment driven setting of the service.
type Config struct {
	Port     int    // HTTP port (default: 8080)
	Env      string // dev, staging, prod (default: dev)
	LogLevel string // debug, info, warn, error (default: info)

	JWTSecret string // Required: shared HS256 signing secret

	MongoURI      string // Required: MONGO_URI or MONGOOSE_URL
	MongoDatabase string // default: noticeboard

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string // default: notices

	CORSAllowOrigins []string // default: *
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		Env:      getEnvOrDefault("APP_ENV", "dev"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),

		JWTSecret: os.Getenv("JWT_ADMIN_PASSWORD"),

		MongoURI:      getEnvOrDefault("MONGO_URI", os.Getenv("MONGOOSE_URL")),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "noticeboard"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    getEnvOrDefault("CLOUDINARY_FOLDER", "notices"),

		CORSAllowOrigins: splitList(getEnvOrDefault("CORS_ALLOW_ORIGINS", "*")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports all missing required settings at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_ADMIN_PASSWORD not set"))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI (or MONGOOSE_URL) not set"))
	}
	if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
		errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET must be set"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
