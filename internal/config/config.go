package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file named by ADVISER_ENV (or .env by default), then
// its .secret sidecar if present. Variables already set in the environment
// win. All config is read through the accessors below.
func Load() error {
	envFile := os.Getenv("ADVISER_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// OntologyPath is the JSON or YAML domain definition to load.
func OntologyPath() string {
	return stringOr("ONTOLOGY_PATH", "resources/ontologies/restaurants_stuttgart.json")
}

// KBSource is a SQLite file path or a postgres:// URL holding the entity table.
func KBSource() string {
	return stringOr("KB_SOURCE", "resources/databases/restaurants_stuttgart.db")
}

// KBTable overrides the entity table name; empty means the ontology's domain.
func KBTable() string {
	return os.Getenv("KB_TABLE")
}

func GeocoderURL() string {
	return stringOr("GEOCODER_URL", "https://nominatim.openstreetmap.org")
}

func GeocoderUserAgent() string {
	return os.Getenv("GEOCODER_USER_AGENT")
}

// GeocoderRPS caps outbound geocoding requests. Defaults to 1, the public
// Nominatim usage limit.
func GeocoderRPS() float64 {
	return positiveFloat("GEOCODER_RPS", 1)
}

func GeocodeTimeout() time.Duration {
	return duration("GEOCODE_TIMEOUT", 10*time.Second)
}

// NATSURL enables the turn bridge when set.
func NATSURL() string {
	return os.Getenv("NATS_URL")
}

func NATSSubjectPrefix() string {
	return stringOr("NATS_SUBJECT_PREFIX", "adviser")
}

// APIKey protects /v1 when set.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	return positiveFloat("RATE_LIMIT_RPS", 100)
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// DialogueIdleTTL is how long a dialogue may go without a turn before it is
// forgotten.
func DialogueIdleTTL() time.Duration {
	return duration("DIALOGUE_IDLE_TTL", 30*time.Minute)
}

// CORSOrigins returns the allowed origins, comma separated in the
// environment. Defaults to any origin.
func CORSOrigins() []string {
	raw := stringOr("CORS_ORIGINS", "*")
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	return stringOr("LOG_LEVEL", "info")
}

func stringOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
