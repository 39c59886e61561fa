package config

import (
	"os"
	"time"
)

// ImageHostKind selects which upload backend stores post images.
type ImageHostKind string

const (
	// ImageHostHTTP is a multipart upload to a hosted image API that
	// answers with a public link.
	ImageHostHTTP ImageHostKind = "http"
	// ImageHostS3 uploads straight into an S3 bucket and derives the
	// public URL from the bucket config.
	ImageHostS3 ImageHostKind = "s3"
)

// Config holds runtime settings for the cosplaiii CLI.
//
// Endpoint fields are base URLs of the hosted services the client consumes;
// this program owns none of them. RequestTimeout bounds every outgoing call
// (the request itself stays non-cancelable once issued, but never hangs
// past the deadline).
type Config struct {
	RecognizerURL string
	IdentityURL   string
	IdentityKey   string
	DocStoreURL   string

	ImageHost       ImageHostKind
	ImageHostURL    string
	ImageHostClient string

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	DatabasePath   string
	RequestTimeout time.Duration
	MenuAnimation  time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RecognizerURL = "http://127.0.0.1:8000"
	c.IdentityURL = "https://identity.cosplaiii.app/v1"
	c.DocStoreURL = "https://store.cosplaiii.app/v1"
	c.ImageHost = ImageHostHTTP
	c.ImageHostURL = "https://api.imgur.com/3/upload"
	c.DatabasePath = "cosplaiii.db"
	c.RequestTimeout = 15 * time.Second
	c.MenuAnimation = 300 * time.Millisecond
	c.LogLevel = "info"
}

// loadEnv overlays secrets that should not live in a config file.
func (c *Config) loadEnv() {
	if v := os.Getenv("COSPLAIII_IDENTITY_KEY"); v != "" {
		c.IdentityKey = v
	}
	if v := os.Getenv("COSPLAIII_IMAGEHOST_CLIENT"); v != "" {
		c.ImageHostClient = v
	}
	if v := os.Getenv("COSPLAIII_S3_ACCESS_KEY"); v != "" {
		c.S3AccessKey = v
	}
	if v := os.Getenv("COSPLAIII_S3_SECRET_KEY"); v != "" {
		c.S3SecretKey = v
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), environment secrets, and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	cfg.loadEnv()
	parseFlags(cfg)
	return cfg
}
