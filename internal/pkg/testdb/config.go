// internal/pkg/testdb/config.go
package testdb

import (
	"time"

	"github.com/your-org/storefront-api/internal/config"
)

// Config returns a configuration with the defaults Load would produce
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "Storefront API",
			Version:     "test",
			Environment: "test",
		},
		Server: config.ServerConfig{
			Port:           "0",
			RequestTimeout: 5 * time.Second,
		},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-at-least-32-bytes-long",
			Issuer:            "identity-provider",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{
			RateLimitPerMinute: 1000,
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
			SessionCookieName:  "session_id",
			SessionCookieTTL:   time.Hour,
		},
		Pricing: config.PricingConfig{
			DiscountPolicy: "unclamped",
			PreviewTTL:     time.Hour,
		},
		Catalog: config.CatalogConfig{
			CacheTTL:        time.Minute,
			DefaultPageSize: 12,
			MaxPageSize:     100,
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}
