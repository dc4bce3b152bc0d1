package config

// Redis backs the optional response cache and rate limiter that wrap the
// root route.  When neither feature is enabled, or the server cannot be
// reached, no client is returned and both middlewares become pass-through.

import (
    "context"
    "crypto/tls"
    "log"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from REDIS_* variables.
// REDIS_HOST+REDIS_PORT take precedence over REDIS_ADDR.
func RedisOptions() *redis.Options {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    var tlsConf *tls.Config
    if v := envStr("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  envStr("REDIS_PASSWORD", ""),
        DB:        envInt("REDIS_DB", 0),
        TLSConfig: tlsConf,
    }
}

// NewRedisClient returns a connected client, or nil when Redis is not needed
// by cfg or does not answer a ping within two seconds.
func NewRedisClient(ctx context.Context, cfg Config) *redis.Client {
    if !cfg.Cache.Enabled && !cfg.RateLimit.Enabled {
        return nil
    }
    opts := RedisOptions()
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Printf("redis: %s unreachable, cache and rate limiting disabled: %v", opts.Addr, err)
        _ = client.Close()
        return nil
    }
    return client
}
