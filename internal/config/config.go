package config // package config loads application configuration from environment variables

import (
    "log"  // log reports a missing .env file
    "time" // time is used for the shutdown budget

    "github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Service metadata.  These never change at runtime and are attached to the
// application instance when it is built.
const (
    Title   = "Pet House API"
    Version = "0.0.1"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; every variable has a default so the service can
// start with an empty environment.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    ReadmePath      string        // documentation file used as the API description
    ShutdownTimeout time.Duration // graceful shutdown budget
    Cache           CacheConfig
    RateLimit       RateLimitConfig
    Broker          BrokerConfig
}

// Load reads a .env file if present and then builds a Config from the
// process environment.
func Load() Config {
    if err := godotenv.Load(); err != nil {
        log.Println("no .env file found, using process environment")
    }
    return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() Config {
    return Config{
        Env:             envStr("APP_ENV", "dev"),
        Port:            envStr("APP_PORT", "8000"),
        ReadmePath:      envStr("README_PATH", "README.md"),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
        Cache:           LoadCacheConfig(),
        RateLimit:       LoadRateLimitConfig(),
        Broker:          LoadBrokerConfig(),
    }
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string { return ":" + c.Port }
