package manifest

import "time"

// Server configures the HTTP front end.
type Server struct {
	Listen            string `toml:"listen"`
	TLSCert           string `toml:"tls_cert"`
	TLSKey            string `toml:"tls_key"`
	ExchangeTimeoutMS int    `toml:"exchange_timeout_ms"`
}

// ExchangeTimeout bounds how long one exchange may stay paused on hooks.
func (s Server) ExchangeTimeout() time.Duration {
	return time.Duration(s.ExchangeTimeoutMS) * time.Millisecond
}

type Log struct {
	Dir        string   `toml:"dir"`
	File       string   `toml:"file"`
	AccessFile string   `toml:"access_file"`
	Level      string   `toml:"level"`
	BodyPaths  []string `toml:"body_paths"` // request bodies are logged only on these paths
}

type Metrics struct {
	Path      string   `toml:"path"`
	SkipPaths []string `toml:"skip_paths"`
}

// Origin is where requests go once the routing hooks have run. An empty URL
// answers every exchange with 502.
type Origin struct {
	URL       string `toml:"url"`
	TimeoutMS int    `toml:"timeout_ms"`
}

type RelayTLS struct {
	Enable     bool   `toml:"enable"`
	ClientCert string `toml:"client_cert"`
	ClientKey  string `toml:"client_key"`
	CA         string `toml:"ca"`
}

// Relay configures the electrician forward relay plugins may publish to.
type Relay struct {
	Targets       []string          `toml:"targets"`
	Compress      string            `toml:"compress"` // "snappy" | ""
	Encrypt       string            `toml:"encrypt"`  // "aesgcm" | ""
	AES256Hex     string            `toml:"aes256_key_hex"`
	StaticHeaders map[string]string `toml:"static_headers"`
	TLS           *RelayTLS         `toml:"tls"`
}

// Plugin is one [[plugin]] entry. Args follow the plugin name the way argv
// follows a program name.
type Plugin struct {
	Name string   `toml:"name"`
	Args []string `toml:"args"`
}

// Argv returns the plugin's argument vector, name first.
func (p Plugin) Argv() []string {
	return append([]string{p.Name}, p.Args...)
}
