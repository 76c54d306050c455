package redisgw

import (
	"crypto/tls"

	"github.com/redis/go-redis/v9"
)

// Config controls the gateway's connection and channel layout.
type Config struct {
	// Client options
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// IngressChannel carries inbound wire frames (device -> hub).
	IngressChannel string
	// EgressChannel carries outbound commands (hub -> device).
	EgressChannel string
}

// Defaults returns a config suitable for a local broker.
func Defaults() Config {
	return Config{
		Addr:           "127.0.0.1:6379",
		IngressChannel: "xhab:ingress",
		EgressChannel:  "xhab:egress",
	}
}

// client builds the redis client from the config.
func (c Config) client() *redis.Client {
	opts := &redis.Options{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    c.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}
	return redis.NewClient(opts)
}
