package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server, database and token settings.  Each field
// corresponds to an environment variable.
type Config struct {
	Env              string        // application environment (dev, test, prod)
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	DBMaxOpenConns   int           // connection pool size
	DBLockWait       time.Duration // innodb_lock_wait_timeout
	MigrateOnStart   bool          // run schema migration at startup
	JWTSecret        string        // secret used to sign JWTs
	AccessTTLMin     int           // access token lifetime in minutes
	RefreshTTLDays   int           // refresh token lifetime in days
	BcryptCost       int           // bcrypt cost for password hashing
	MetricsNamespace string        // prometheus namespace
	ShutdownTimeout  time.Duration // graceful shutdown budget
}

// Load reads a .env file when present and then the process environment.
// Every missing required variable is reported in the returned error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var r required
	cfg := Config{
		Env:              r.must("APP_ENV"),
		Port:             r.must("APP_PORT"),
		DBUser:           r.must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"),
		DBHost:           r.must("DB_HOST"),
		DBPort:           r.must("DB_PORT"),
		DBName:           r.must("DB_NAME"),
		DBMaxOpenConns:   envInt("DB_MAX_OPEN_CONNS", 25),
		DBLockWait:       envDur("DB_LOCK_WAIT", 5*time.Second),
		MigrateOnStart:   envBool("DB_MIGRATE", true),
		JWTSecret:        r.must("JWT_SECRET"),
		AccessTTLMin:     r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:   r.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:       envInt("BCRYPT_COST", 10),
		MetricsNamespace: envStr("METRICS_NAMESPACE", "tour_booking"),
		ShutdownTimeout:  envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if err := r.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// required collects the problems found while reading mandatory variables.
type required struct {
	missing []string
	invalid []error
}

func (r *required) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *required) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.invalid = append(r.invalid, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}

func (r *required) err() error {
	errs := r.invalid
	if len(r.missing) > 0 {
		errs = append([]error{fmt.Errorf("missing required env vars: %s", strings.Join(r.missing, ", "))}, errs...)
	}
	return errors.Join(errs...)
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
