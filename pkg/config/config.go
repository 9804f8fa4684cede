// Package config loads the server configuration and project definitions from
// JSON or YAML files.
package config

import (
	"fmt"

	"github.com/mockstack/mockstack/pkg/mockapi"
	"github.com/mockstack/mockstack/pkg/upload"
)

// Config is the top-level server configuration.
type Config struct {
	// Listen is the HTTP listen address (default ":8080")
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`

	// LogLevel is one of debug/info/warn/error (default "info")
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// LogFormat is "text" or "json" (default "text")
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`

	// DataFile enables file-backed persistence for accounts and
	// submissions; empty keeps everything in memory
	DataFile string `json:"dataFile,omitempty" yaml:"dataFile,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// S3 configures the object-storage collaborator for file uploads.
	// When nil, uploads are rejected at configuration load time if any
	// project declares file-kind fields.
	S3 *upload.S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// Accounts are the quota subjects owning the projects
	Accounts []mockapi.Account `json:"accounts,omitempty" yaml:"accounts,omitempty"`

	// Projects are the mock API definitions to serve
	Projects []mockapi.Project `json:"projects,omitempty" yaml:"projects,omitempty"`
}

// DefaultListen is used when Config.Listen is empty.
const DefaultListen = ":8080"

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// Validate checks the configuration for structural problems: every project
// must pass its own validation, project owners must reference declared
// accounts, and slugs must be unique.
func (c *Config) Validate() error {
	accounts := make(map[string]bool, len(c.Accounts))
	for i := range c.Accounts {
		if c.Accounts[i].ID == "" {
			return fmt.Errorf("account %d: missing id", i)
		}
		accounts[c.Accounts[i].ID] = true
	}

	slugs := make(map[string]string, len(c.Projects))
	for i := range c.Projects {
		p := &c.Projects[i]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("project %q: %w", p.Name, err)
		}
		if !accounts[p.OwnerID] {
			return fmt.Errorf("project %q: owner %q is not a declared account", p.Name, p.OwnerID)
		}
		slug := p.Slug()
		if other, dup := slugs[slug]; dup {
			return fmt.Errorf("projects %q and %q derive the same slug %q", other, p.Name, slug)
		}
		slugs[slug] = p.Name

		if c.S3 == nil && hasFileFields(p) {
			return fmt.Errorf("project %q declares file fields but no s3 storage is configured", p.Name)
		}
	}
	return nil
}

func hasFileFields(p *mockapi.Project) bool {
	for i := range p.Endpoints {
		for _, f := range p.Endpoints[i].Fields {
			if f.Type.IsFileKind() {
				return true
			}
		}
	}
	return false
}
