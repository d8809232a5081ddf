package auth

import "os"

// Development defaults for operator tokens.
const (
	DefaultSigningKey = "dev-signing-key-change-me"
	DefaultIssuer     = "toba-water-monitor"
	DefaultAudience   = "toba-api"
)

// ConfigFromEnv reads JWT_SIGNING_KEY, JWT_ISSUER and JWT_AUDIENCE.
func ConfigFromEnv() JWTConfig {
	return JWTConfig{
		SigningKey: getEnvOrDefault("JWT_SIGNING_KEY", DefaultSigningKey),
		Issuer:     getEnvOrDefault("JWT_ISSUER", DefaultIssuer),
		Audience:   getEnvOrDefault("JWT_AUDIENCE", DefaultAudience),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
