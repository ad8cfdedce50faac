// utils/safelog.go
// ============================================================================
// SAFE LOGGING - keeps credentials out of logs
// ============================================================================
// Upstream URLs carry API keys in their query strings (SerpAPI) and error
// bodies sometimes echo request headers back. Everything that may contain
// such values goes through MaskString before it is logged or returned to a
// client.
// ============================================================================

package utils

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// IsProduction enables the stricter masking rules.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	secretsMu sync.RWMutex
	secrets   []string
)

var (
	apiKeyParamRegex  = regexp.MustCompile(`(?i)((?:api_key|apikey|key|token)=)[^&\s"]+`)
	apiKeyHeaderRegex = regexp.MustCompile(`(?i)((?:x-api-key|x-goog-api-key|authorization)"?\s*[:=]\s*"?)[^"\s,}]+`)
	emailRegex        = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// RegisterSecret adds values that must never appear in logs. Empty values
// and very short values are ignored.
func RegisterSecret(values ...string) {
	secretsMu.Lock()
	defer secretsMu.Unlock()
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) < 6 {
			continue
		}
		secrets = append(secrets, v)
	}
}

// MaskSecret replaces a credential entirely. No prefix or length survives.
func MaskSecret(_ string) string {
	return "***"
}

// MaskString removes registered secrets and key-looking query parameters
// and headers. In production e-mail addresses are masked as well.
func MaskString(input string) string {
	result := input

	secretsMu.RLock()
	for _, s := range secrets {
		result = strings.ReplaceAll(result, s, MaskSecret(s))
	}
	secretsMu.RUnlock()

	result = apiKeyParamRegex.ReplaceAllString(result, "${1}***")
	result = apiKeyHeaderRegex.ReplaceAllString(result, "${1}***")

	if IsProduction {
		result = emailRegex.ReplaceAllString(result, "***@***.***")
	}
	return result
}

// GetEnvMode returns "production" or "development".
func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

// LogStartup prints the startup banner.
func LogStartup(log zerolog.Logger, appName, version, port string) {
	log.Info().
		Str("app", appName).
		Str("version", version).
		Str("mode", GetEnvMode()).
		Str("port", port).
		Msg("🚀 starting")
	if IsProduction {
		log.Info().Msg("⚠️  production mode: sensitive data will be masked in logs")
	}
}
