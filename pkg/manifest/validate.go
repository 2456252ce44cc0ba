package manifest

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) validateServer() error {
	s := c.Server
	if (strings.TrimSpace(s.TLSCert) == "") != (strings.TrimSpace(s.TLSKey) == "") {
		return fmt.Errorf("server: tls_cert and tls_key must be set together")
	}
	if s.ExchangeTimeoutMS < 0 {
		return fmt.Errorf("server: exchange_timeout_ms must be >= 0")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path %q must start with /", c.Metrics.Path)
	}
	return nil
}

func (c *Config) validateOrigin() error {
	if c.Origin.TimeoutMS < 0 {
		return fmt.Errorf("origin: timeout_ms must be >= 0")
	}
	raw := strings.TrimSpace(c.Origin.URL)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("origin: url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin: url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("origin: url %q has no host", raw)
	}
	return nil
}

func (c *Config) validateRelay() error {
	r := c.Relay
	if len(r.Targets) == 0 {
		return nil
	}
	for i, t := range r.Targets {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("relay: target %d is empty", i)
		}
	}
	switch strings.ToLower(r.Compress) {
	case "", "snappy":
	default:
		return fmt.Errorf("relay: unknown compress %q", r.Compress)
	}
	switch strings.ToLower(r.Encrypt) {
	case "":
	case "aesgcm":
		if k := strings.TrimSpace(r.AES256Hex); len(k) != 64 {
			return fmt.Errorf("relay: aes256_key_hex must be 32 bytes (64 hex)")
		} else if _, err := hex.DecodeString(k); err != nil {
			return fmt.Errorf("relay: aes256_key_hex: %w", err)
		}
	default:
		return fmt.Errorf("relay: unknown encrypt %q", r.Encrypt)
	}
	if r.TLS != nil && r.TLS.Enable {
		if strings.TrimSpace(r.TLS.ClientCert) == "" || strings.TrimSpace(r.TLS.ClientKey) == "" || strings.TrimSpace(r.TLS.CA) == "" {
			return fmt.Errorf("relay tls: client_cert, client_key, and ca are required when enable=true")
		}
	}
	return nil
}

func (c *Config) validatePlugins() error {
	for i := range c.Plugins {
		c.Plugins[i].Name = strings.TrimSpace(c.Plugins[i].Name)
		if c.Plugins[i].Name == "" {
			return fmt.Errorf("plugin %d: name required", i)
		}
	}
	return nil
}
