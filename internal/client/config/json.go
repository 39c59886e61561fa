package config

import (
	"encoding/json"
	"os"

	"github.com/nicolasssh/cosplaiii/internal/flagx"
	"github.com/nicolasssh/cosplaiii/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like
// "300ms" or as integer nanoseconds. After parsing, values are copied into
// the runtime Config.
type JsonConfig struct {
	RecognizerURL string `json:"recognizer_url"`
	IdentityURL   string `json:"identity_url"`
	DocStoreURL   string `json:"doc_store_url"`

	ImageHost    string `json:"image_host"`
	ImageHostURL string `json:"image_host_url"`

	S3Region    string `json:"s3_region"`
	S3Bucket    string `json:"s3_bucket"`
	S3PublicURL string `json:"s3_public_url"`

	DatabasePath   string         `json:"database_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	MenuAnimation  timex.Duration `json:"menu_animation"`

	LogLevel string `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file located via
// the -c / -config flags. Zero-valued JSON fields leave the existing Config
// values untouched, so a partial file only overrides what it names.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.RecognizerURL != "" {
		cfg.RecognizerURL = jc.RecognizerURL
	}
	if jc.IdentityURL != "" {
		cfg.IdentityURL = jc.IdentityURL
	}
	if jc.DocStoreURL != "" {
		cfg.DocStoreURL = jc.DocStoreURL
	}
	if jc.ImageHost != "" {
		cfg.ImageHost = ImageHostKind(jc.ImageHost)
	}
	if jc.ImageHostURL != "" {
		cfg.ImageHostURL = jc.ImageHostURL
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3PublicURL != "" {
		cfg.S3PublicURL = jc.S3PublicURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MenuAnimation.Duration != 0 {
		cfg.MenuAnimation = jc.MenuAnimation.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
