// ABOUTME: Runtime configuration for the wpembed service.
// ABOUTME: Reads WPEMBED_* environment variables, optionally from .env files, with defaults for local use.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/2389/wpembed/internal/wporg"
)

const (
	DefaultPort      = "9000"
	DefaultRateLimit = 60
	DefaultRateBurst = 10
)

// Config captures the runtime configuration for the service.
type Config struct {
	Port       string
	DBPath     string
	HomeURL    string // empty means derive from Port
	APIURL     string
	APITimeout time.Duration
	Debug      wporg.DebugLevel
	RateLimit  int // requests per minute per client IP
	RateBurst  int
	TrustProxy bool // take the client IP from X-Forwarded-For / X-Real-IP
}

// LoadEnvFiles loads the first .env found in the working directory or its
// parents, then the one in the home directory. Variables already set win.
func LoadEnvFiles() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		godotenv.Load(filepath.Join(home, ".env"))
	}
}

// Load reads configuration from the environment. Malformed numbers and
// durations fall back to their defaults; an out-of-range debug level is an error.
func Load() (Config, error) {
	cfg := Config{
		Port:       getString("WPEMBED_PORT", DefaultPort),
		DBPath:     DefaultDBPath(),
		HomeURL:    getString("WPEMBED_HOME_URL", ""),
		APIURL:     getString("WPEMBED_API_URL", wporg.DefaultEndpoint),
		APITimeout: wporg.EffectiveTimeout(getDuration("WPEMBED_API_TIMEOUT", wporg.MinTimeout)),
		RateLimit:  getInt("WPEMBED_RATE_LIMIT", DefaultRateLimit),
		RateBurst:  getInt("WPEMBED_RATE_BURST", DefaultRateBurst),
		TrustProxy: getBool("WPEMBED_TRUST_PROXY", false),
	}

	debug, err := wporg.ParseDebugLevel(getInt("WPEMBED_DEBUG", 0))
	if err != nil {
		return Config{}, fmt.Errorf("WPEMBED_DEBUG: %w", err)
	}
	cfg.Debug = debug

	return cfg, nil
}

// SiteURL is the home URL providers are registered against, always ending in "/".
func (c Config) SiteURL() string {
	home := c.HomeURL
	if home == "" {
		home = "http://localhost:" + c.Port + "/"
	}
	if !strings.HasSuffix(home, "/") {
		home += "/"
	}
	return home
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %d", key, value, fallback)
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: %s=%q is not a boolean, using %t", key, value, fallback)
		return fallback
	}
	return b
}

// getDuration accepts Go durations ("15s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: %s=%q is not a duration, using %s", key, value, fallback)
		return fallback
	}
	return d
}

// DefaultDBPath returns the default database path following XDG Base Directory conventions.
// Priority: WPEMBED_DB_PATH env var > ./wpembed.db > XDG_DATA_HOME/wpembed/wpembed.db
func DefaultDBPath() string {
	if envPath := strings.TrimSpace(os.Getenv("WPEMBED_DB_PATH")); envPath != "" {
		envPath = filepath.Clean(envPath)
		if envPath == "." {
			log.Printf("Warning: WPEMBED_DB_PATH is invalid, using default path")
		} else {
			return envPath
		}
	}

	cwdPath := "./wpembed.db"
	if _, err := os.Stat(cwdPath); err == nil {
		return cwdPath
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil || homeDir == "" || homeDir == "/" {
			log.Printf("Warning: Could not determine valid home directory (%q): %v, using %s", homeDir, err, cwdPath)
			return cwdPath
		}

		// Windows: %LOCALAPPDATA%; everything else: ~/.local/share
		if runtime.GOOS == "windows" {
			dataHome = os.Getenv("LOCALAPPDATA")
			if dataHome == "" {
				dataHome = filepath.Join(homeDir, "AppData", "Local")
			}
		} else {
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(dataHome, "wpembed")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Printf("Warning: Could not create data directory %s: %v, using %s", dataDir, err, cwdPath)
		return cwdPath
	}

	return filepath.Join(dataDir, "wpembed.db")
}
