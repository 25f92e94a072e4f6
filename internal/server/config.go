package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Assets *AssetSettings `hcl:"assets,block"`
	Audit  *AuditSettings `hcl:"audit,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	Seed     int64  `hcl:"seed,optional"`
}

// AssetSettings points at the deck image directories
type AssetSettings struct {
	Root string `hcl:"root,optional"`
}

// AuditSettings configures the Redis stream sink
type AuditSettings struct {
	Enabled  bool   `hcl:"enabled,optional"`
	RedisURL string `hcl:"redis_url,optional"`
	Password string `hcl:"password,optional"`
	Stream   string `hcl:"stream,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Assets: &AssetSettings{
			Root: "assets",
		},
		Audit: &AuditSettings{
			Enabled:  false,
			RedisURL: "redis://localhost:6379",
			Stream:   "onomatoparty:events",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A
// missing file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Assets == nil {
		config.Assets = &AssetSettings{}
	}
	if config.Assets.Root == "" {
		config.Assets.Root = "assets"
	}
	if config.Audit == nil {
		config.Audit = &AuditSettings{}
	}
	if config.Audit.RedisURL == "" {
		config.Audit.RedisURL = "redis://localhost:6379"
	}
	if config.Audit.Stream == "" {
		config.Audit.Stream = "onomatoparty:events"
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	if c.Assets.Root == "" {
		return fmt.Errorf("assets root must be set")
	}

	if c.Audit.Enabled && c.Audit.RedisURL == "" {
		return fmt.Errorf("audit enabled but redis_url not set")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
