// Package config provides configuration management for go-mcnttp.
package config

import (
	"log"
	"sync"
	"time"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// NNTP protocol constants
	DOT  = "."
	CR   = "\r"
	LF   = "\n"
	CRLF = CR + LF

	// Command lines are capped per RFC 3977; article transfer reads are
	// larger.
	MaxCommandLineLength = 512

	// Default connection settings
	DefaultIdleTimeout    = 300 * time.Second
	DefaultMaxArticleSize = 1 << 20 // max article size in bytes

	// NNTPServer defaults
	NNTPServerMaxConns = 500 // Maximum concurrent NNTP connections
)

// MainConfig holds the main configuration for go-mcnttp
type MainConfig struct {
	MaxArtSize int `json:"max_article_size"`

	// Mutex for thread-safe access
	mux sync.Mutex `json:"-"`

	// Server settings
	Server ServerConfig `json:"server"`

	// Database settings
	Database DatabaseConfig `json:"database"`

	// Admin API settings
	Web WebConfig `json:"web"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// ServerConfig holds NNTP server configuration
type ServerConfig struct {
	Hostname string `json:"hostname"` // Server hostname for Path headers and identification
	NNTP     NNTPConfig `json:"nntp"`
}

// NNTPConfig holds the NNTP listener configuration. Three port kinds:
// clear-text, implicit TLS, and clear-text with STARTTLS advertised.
type NNTPConfig struct {
	Enabled      bool   `json:"enabled"`
	Port         int    `json:"port"`          // clear-text port, no STARTTLS
	TLSPort      int    `json:"tls_port"`      // implicit TLS
	StartTLSPort int    `json:"starttls_port"` // clear-text with STARTTLS
	MaxConns     int    `json:"max_connections"`
	TLSCert      string `json:"tls_cert"` // PEM certificate; empty generates self-signed
	TLSKey       string `json:"tls_key"`
	AllowPosting bool   `json:"allow_posting"`
	MaxArtSize   int    `json:"max_article_size"`
	IdleTimeout  time.Duration `json:"idle_timeout"`

	MOTDFile string `json:"motd_file"` // LIST MOTD source, optional

	// LIST DISTRIB.PATS / DISTRIBUTIONS data
	DistribPats   []DistribPat   `json:"distrib_pats"`
	Distributions []Distribution `json:"distributions"`
}

// DistribPat is one weight:wildmat:distribution entry
type DistribPat struct {
	Weight       int    `json:"weight"`
	Wildmat      string `json:"wildmat"`
	Distribution string `json:"distribution"`
}

// Distribution is one LIST DISTRIBUTIONS entry
type Distribution struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	MainDB    string `json:"main_db"`    // Path to main database
	BackupDir string `json:"backup_dir"` // Directory for backups
}

// WebConfig holds admin API configuration
type WebConfig struct {
	Enabled    bool   `json:"enabled"`
	ListenPort int    `json:"listen_port"`
	SSL        bool   `json:"ssl"`
	CertFile   string `json:"cert_file,omitempty"`
	KeyFile    string `json:"key_file,omitempty"`
	Debug      bool   `json:"debug"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,

		Server: ServerConfig{
			Hostname: "localhost",
			NNTP: NNTPConfig{
				Enabled:      true,
				Port:         1119,
				TLSPort:      1563,
				StartTLSPort: 0,
				MaxConns:     NNTPServerMaxConns,
				AllowPosting: true,
				MaxArtSize:   DefaultMaxArticleSize,
				IdleTimeout:  DefaultIdleTimeout,
				Distributions: []Distribution{
					{Name: "local", Description: "Local to this site"},
					{Name: "world", Description: "Worldwide distribution"},
				},
				DistribPats: []DistribPat{
					{Weight: 10, Wildmat: "*", Distribution: "world"},
					{Weight: 20, Wildmat: "local.*", Distribution: "local"},
				},
			},
		},
		Database: DatabaseConfig{
			MainDB:    "data/mcnttp.sq3",
			BackupDir: "backups",
		},
		Web: WebConfig{
			Enabled:    false,
			ListenPort: 11980,
		},
	}

	maincfg.mux.Lock()
	log.Printf("MainConfig initialized (version: %s)", maincfg.AppVersion)
	maincfg.mux.Unlock()
	return maincfg
}
