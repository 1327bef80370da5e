package server

// DefaultAddr binds to loopback; the server fronts a single local user.
const DefaultAddr = "127.0.0.1:8787"

// Config holds HTTP surface parameters.
type Config struct {
	Addr           string   `json:"addr,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // Browser origins allowed to open the chat socket.
	Mode           string   `json:"mode,omitempty"`            // gin mode: debug, release or test.
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{Addr: DefaultAddr, Mode: "release"}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if len(source.AllowedOrigins) > 0 {
		c.AllowedOrigins = source.AllowedOrigins
	}
	if source.Mode != "" {
		c.Mode = source.Mode
	}
}
